package handlers

import (
	"net/http"

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

// VideosHandler serves course videos to enrolled students and the admin
// video CRUD.
type VideosHandler struct {
	cfg   *config.Config
	store courses.Store
	repo  accounts.Repository
}

func NewVideosHandler(cfg *config.Config, store courses.Store, repo accounts.Repository) *VideosHandler {
	return &VideosHandler{cfg: cfg, store: store, repo: repo}
}

func (h *VideosHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/courses/:id/videos", middleware.RequireAuth(h.cfg, h.repo), h.ListByCourse)

	admin := rg.Group("/admin/videos", middleware.RequireAuth(h.cfg, h.repo), middleware.RequireAdmin())
	admin.POST("", h.Create)
	admin.PUT("/:id", h.Update)
	admin.DELETE("/:id", h.Delete)
}

// ListByCourse returns a course's videos in module order. Requires
// enrollment, an active subscription or the admin role.
func (h *VideosHandler) ListByCourse(c *gin.Context) {
	u := middleware.CurrentUser(c)
	courseID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	course, err := h.store.FindByID(c.Request.Context(), courseID)
	if err != nil {
		logger.Errorf("list videos: find course %s: %v", courseID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch videos"})
		return
	}
	if course == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Course not found"})
		return
	}
	if !canAccessCourse(u, courseID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Enroll in this course to watch its videos"})
		return
	}
	videos, err := h.store.VideosByCourse(c.Request.Context(), courseID)
	if err != nil {
		logger.Errorf("list videos for %s: %v", courseID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch videos"})
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "videos": videos})
}

type videoRequest struct {
	Title       string `json:"title" binding:"required"`
	YoutubeURL  string `json:"youtubeUrl" binding:"required,url"`
	Duration    string `json:"duration"`
	ModuleID    string `json:"moduleId" binding:"required"`
	CourseID    string `json:"courseId" binding:"required"`
	Order       int    `json:"order"`
	Description string `json:"description"`
}

func (h *VideosHandler) Create(c *gin.Context) {
	var req videoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide title, youtubeUrl, moduleId and courseId"})
		return
	}
	courseID, err := primitive.ObjectIDFromHex(req.CourseID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid courseId"})
		return
	}
	moduleID, err := primitive.ObjectIDFromHex(req.ModuleID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid moduleId"})
		return
	}
	course, err := h.store.FindByID(c.Request.Context(), courseID)
	if err != nil {
		logger.Errorf("create video: find course %s: %v", courseID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to add video"})
		return
	}
	if course == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Course not found"})
		return
	}
	moduleFound := false
	for _, m := range course.Modules {
		if m.ID == moduleID {
			moduleFound = true
			break
		}
	}
	if !moduleFound {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Module not found in this course"})
		return
	}
	v := &models.Video{
		Title:       req.Title,
		YoutubeURL:  req.YoutubeURL,
		Duration:    req.Duration,
		ModuleID:    moduleID,
		CourseID:    courseID,
		Order:       req.Order,
		Description: req.Description,
	}
	if err := h.store.InsertVideo(c.Request.Context(), v); err != nil {
		logger.Errorf("insert video: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to add video"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "video": v})
}

type videoUpdateRequest struct {
	Title       string `json:"title"`
	YoutubeURL  string `json:"youtubeUrl"`
	Duration    string `json:"duration"`
	Order       *int   `json:"order"`
	Description string `json:"description"`
}

func (h *VideosHandler) Update(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req videoUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}
	fields := bson.M{}
	if req.Title != "" {
		fields["title"] = req.Title
	}
	if req.YoutubeURL != "" {
		fields["youtubeUrl"] = req.YoutubeURL
	}
	if req.Duration != "" {
		fields["duration"] = req.Duration
	}
	if req.Order != nil {
		fields["order"] = *req.Order
	}
	if req.Description != "" {
		fields["description"] = req.Description
	}
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Nothing to update"})
		return
	}
	matched, err := h.store.UpdateVideo(c.Request.Context(), id, fields)
	if err != nil {
		logger.Errorf("update video %s: %v", id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update video"})
		return
	}
	if !matched {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Video not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Video updated"})
}

func (h *VideosHandler) Delete(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	deleted, err := h.store.DeleteVideo(c.Request.Context(), id)
	if err != nil {
		logger.Errorf("delete video %s: %v", id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to delete video"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Video not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Video deleted"})
}
