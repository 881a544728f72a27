package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/learnhub/learnhub/internal/accounts"
	"github.com/learnhub/learnhub/internal/config"
	"github.com/learnhub/learnhub/internal/courses"
	"github.com/learnhub/learnhub/internal/models"
	"github.com/learnhub/learnhub/pkg/logger"
	"github.com/learnhub/learnhub/pkg/middleware"
)

// CoursesHandler serves the public catalog and the admin course CRUD.
type CoursesHandler struct {
	cfg   *config.Config
	store courses.Store
	repo  accounts.Repository
}

func NewCoursesHandler(cfg *config.Config, store courses.Store, repo accounts.Repository) *CoursesHandler {
	return &CoursesHandler{cfg: cfg, store: store, repo: repo}
}

func (h *CoursesHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/courses")
	g.GET("", h.List)
	g.GET("/categories", h.Categories)
	g.GET("/trending", h.Trending)
	g.GET("/:id", h.Get)
	g.POST("/:id/enroll", middleware.RequireAuth(h.cfg, h.repo), h.EnrollFree)

	admin := rg.Group("/admin/courses", middleware.RequireAuth(h.cfg, h.repo), middleware.RequireAdmin())
	admin.GET("", h.AdminList)
	admin.POST("", h.Create)
	admin.PUT("/:id", h.Update)
	admin.DELETE("/:id", h.Delete)
	admin.PATCH("/:id/publish", h.TogglePublish)
	admin.POST("/:id/modules", h.AddModule)
}

func parsePaging(c *gin.Context) (page, limit int64) {
	page, _ = strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	limit, _ = strconv.ParseInt(c.DefaultQuery("limit", "12"), 10, 64)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 12
	}
	return page, limit
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid id"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// List returns published courses, filterable by free-text search and category.
func (h *CoursesHandler) List(c *gin.Context) {
	page, limit := parsePaging(c)
	list, total, err := h.store.ListPublished(c.Request.Context(), c.Query("search"), c.Query("category"), page, limit)
	if err != nil {
		logger.Errorf("list courses: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch courses"})
		return
	}
	if list == nil {
		list = []models.Course{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"courses": list,
		"total":   total,
		"page":    page,
		"pages":   (total + limit - 1) / limit,
	})
}

func (h *CoursesHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "categories": models.CourseCategories})
}

// Trending returns the most-enrolled published courses for the landing page.
func (h *CoursesHandler) Trending(c *gin.Context) {
	list, err := h.store.Trending(c.Request.Context(), 8)
	if err != nil {
		logger.Errorf("trending courses: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch courses"})
		return
	}
	if list == nil {
		list = []models.Course{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "courses": list})
}

// Get returns a single course. Drafts are only visible through the admin
// listing, so an unpublished course is a 404 here.
func (h *CoursesHandler) Get(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	course, err := h.store.FindByID(c.Request.Context(), id)
	if err != nil {
		logger.Errorf("get course %s: %v", id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch course"})
		return
	}
	if course == nil || !course.IsPublished {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Course not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "course": course})
}

// EnrollFree enrolls the caller into a free published course. Paid courses
// go through the payment flow instead.
func (h *CoursesHandler) EnrollFree(c *gin.Context) {
	u := middleware.CurrentUser(c)
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	course, err := h.store.FindByID(c.Request.Context(), id)
	if err != nil {
		logger.Errorf("enroll: find course %s: %v", id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Enrollment failed"})
		return
	}
	if course == nil || !course.IsPublished {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Course not found"})
		return
	}
	if course.Price > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "This course requires purchase"})
		return
	}
	for _, e := range u.EnrolledCourses {
		if e == id {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Already enrolled in this course"})
			return
		}
	}
	if err := h.repo.AddEnrolledCourse(c.Request.Context(), u.ID, id); err != nil {
		logger.Errorf("enroll: update user %s: %v", u.ID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Enrollment failed"})
		return
	}
	if err := h.store.IncEnrolled(c.Request.Context(), id); err != nil {
		logger.Warnf("enroll: bump count for %s: %v", id.Hex(), err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Enrolled successfully"})
}

func (h *CoursesHandler) AdminList(c *gin.Context) {
	list, err := h.store.ListAll(c.Request.Context())
	if err != nil {
		logger.Errorf("admin list courses: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch courses"})
		return
	}
	if list == nil {
		list = []models.Course{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "courses": list})
}

type courseRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description" binding:"required"`
	Category    string  `json:"category" binding:"required"`
	Price       float64 `json:"price"`
	Instructor  string  `json:"instructor" binding:"required"`
	Thumbnail   string  `json:"thumbnail"`
}

func validCategory(cat string) bool {
	for _, c := range models.CourseCategories {
		if c == cat {
			return true
		}
	}
	return false
}

// Create adds a new course as an unpublished draft.
func (h *CoursesHandler) Create(c *gin.Context) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide title, description, category and instructor"})
		return
	}
	if !validCategory(req.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Unknown category"})
		return
	}
	if req.Price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Price cannot be negative"})
		return
	}
	course := &models.Course{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Instructor:  req.Instructor,
		Thumbnail:   req.Thumbnail,
		Modules:     []models.Module{},
	}
	if err := h.store.Insert(c.Request.Context(), course); err != nil {
		logger.Errorf("create course: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create course"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "course": course})
}

func (h *CoursesHandler) Update(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide title, description, category and instructor"})
		return
	}
	if !validCategory(req.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Unknown category"})
		return
	}
	matched, err := h.store.Update(c.Request.Context(), id, bson.M{
		"title":       req.Title,
		"description": req.Description,
		"category":    req.Category,
		"price":       req.Price,
		"instructor":  req.Instructor,
		"thumbnail":   req.Thumbnail,
	})
	if err != nil {
		logger.Errorf("update course %s: %v", id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update course"})
		return
	}
	if !matched {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Course not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Course updated"})
}

func (h *CoursesHandler) Delete(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	deleted, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		logger.Errorf("delete course %s: %v", id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to delete course"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Course not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Course deleted"})
}

type publishRequest struct {
	IsPublished *bool `json:"isPublished" binding:"required"`
}

func (h *CoursesHandler) TogglePublish(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide isPublished"})
		return
	}
	matched, err := h.store.SetPublished(c.Request.Context(), id, *req.IsPublished)
	if err != nil {
		logger.Errorf("publish course %s: %v", id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update course"})
		return
	}
	if !matched {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Course not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Course updated"})
}

type moduleRequest struct {
	Title string `json:"title" binding:"required"`
	Order int    `json:"order"`
}

func (h *CoursesHandler) AddModule(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req moduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide a module title"})
		return
	}
	course, err := h.store.FindByID(c.Request.Context(), id)
	if err != nil {
		logger.Errorf("add module: find course %s: %v", id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to add module"})
		return
	}
	if course == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Course not found"})
		return
	}
	order := req.Order
	if order == 0 {
		order = len(course.Modules) + 1
	}
	mod := models.Module{
		ID:     primitive.NewObjectID(),
		Title:  req.Title,
		Order:  order,
		Videos: []primitive.ObjectID{},
	}
	if err := h.store.AddModule(c.Request.Context(), id, mod); err != nil {
		logger.Errorf("add module to %s: %v", id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to add module"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "module": mod})
}

// canAccessCourse reports whether an account may watch a course's videos:
// admins always, students when enrolled or on an active subscription.
func canAccessCourse(u *models.User, courseID primitive.ObjectID) bool {
	if u.Role == models.RoleAdmin {
		return true
	}
	for _, id := range u.EnrolledCourses {
		if id == courseID {
			return true
		}
	}
	sub := u.Subscription
	return sub.Status == "active" && sub.ExpiresAt.After(time.Now())
}
