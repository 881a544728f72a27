package handlers

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnhub/learnhub/internal/accounts"
	"github.com/learnhub/learnhub/internal/config"
	"github.com/learnhub/learnhub/internal/courses"
	"github.com/learnhub/learnhub/internal/models"
	"github.com/learnhub/learnhub/internal/progress"
	"github.com/learnhub/learnhub/pkg/logger"
	"github.com/learnhub/learnhub/pkg/middleware"
)

// RatingsHandler lets enrolled students rate courses and keeps the
// denormalised rating stats on the course document in sync.
type RatingsHandler struct {
	cfg     *config.Config
	store   progress.Store
	courses courses.Store
	repo    accounts.Repository
}

func NewRatingsHandler(cfg *config.Config, store progress.Store, cs courses.Store, repo accounts.Repository) *RatingsHandler {
	return &RatingsHandler{cfg: cfg, store: store, courses: cs, repo: repo}
}

func (h *RatingsHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/courses/:id/ratings", h.List)
	rg.POST("/courses/:id/ratings", middleware.RequireAuth(h.cfg, h.repo), h.Submit)
}

func (h *RatingsHandler) List(c *gin.Context) {
	courseID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	page, limit := parsePaging(c)
	list, total, err := h.store.RatingsByCourse(c.Request.Context(), courseID, page, limit)
	if err != nil {
		logger.Errorf("list ratings for %s: %v", courseID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch ratings"})
		return
	}
	if list == nil {
		list = []models.Rating{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "ratings": list, "total": total, "page": page})
}

type ratingRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// Submit records or replaces the caller's rating, then refreshes the
// course's average and count.
func (h *RatingsHandler) Submit(c *gin.Context) {
	u := middleware.CurrentUser(c)
	courseID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Rating must be between 1 and 5"})
		return
	}
	course, err := h.courses.FindByID(c.Request.Context(), courseID)
	if err != nil {
		logger.Errorf("rate: find course %s: %v", courseID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to submit rating"})
		return
	}
	if course == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Course not found"})
		return
	}
	if !canAccessCourse(u, courseID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Enroll in this course to rate it"})
		return
	}
	r := &models.Rating{
		UserID:   u.ID,
		CourseID: courseID,
		Rating:   req.Rating,
		Comment:  req.Comment,
		UserName: u.Name,
	}
	if err := h.store.UpsertRating(c.Request.Context(), r); err != nil {
		logger.Errorf("upsert rating for %s/%s: %v", u.ID.Hex(), courseID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to submit rating"})
		return
	}
	avg, total, err := h.store.RatingStats(c.Request.Context(), courseID)
	if err != nil {
		logger.Warnf("rating stats for %s: %v", courseID.Hex(), err)
	} else if err := h.courses.SetRatingStats(c.Request.Context(), courseID, math.Round(avg*10)/10, int(total)); err != nil {
		logger.Warnf("store rating stats for %s: %v", courseID.Hex(), err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Rating submitted"})
}
