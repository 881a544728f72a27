package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/learnhub/learnhub/internal/accounts"
	"github.com/learnhub/learnhub/internal/config"
	"github.com/learnhub/learnhub/internal/courses"
	"github.com/learnhub/learnhub/internal/models"
	"github.com/learnhub/learnhub/internal/progress"
	"github.com/learnhub/learnhub/pkg/logger"
	"github.com/learnhub/learnhub/pkg/middleware"
)

// ProgressHandler tracks watch progress and issues completion certificates.
type ProgressHandler struct {
	cfg     *config.Config
	store   progress.Store
	courses courses.Store
	repo    accounts.Repository
}

func NewProgressHandler(cfg *config.Config, store progress.Store, cs courses.Store, repo accounts.Repository) *ProgressHandler {
	return &ProgressHandler{cfg: cfg, store: store, courses: cs, repo: repo}
}

func (h *ProgressHandler) Register(rg *gin.RouterGroup) {
	auth := middleware.RequireAuth(h.cfg, h.repo)

	g := rg.Group("/progress", auth)
	g.GET("", h.Mine)
	g.GET("/:courseId", h.ForCourse)
	g.POST("/:courseId/videos/:videoId/complete", h.CompleteVideo)
	g.PUT("/:courseId/position", h.SavePosition)

	rg.GET("/certificates", auth, h.MyCertificates)
	// public so third parties can check authenticity
	rg.GET("/certificates/:certificateId/verify", h.VerifyCertificate)
}

func (h *ProgressHandler) Mine(c *gin.Context) {
	u := middleware.CurrentUser(c)
	list, err := h.store.ByUser(c.Request.Context(), u.ID)
	if err != nil {
		logger.Errorf("progress for %s: %v", u.ID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch progress"})
		return
	}
	if list == nil {
		list = []models.Progress{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "progress": list})
}

func (h *ProgressHandler) ForCourse(c *gin.Context) {
	u := middleware.CurrentUser(c)
	courseID, ok := objectIDParam(c, "courseId")
	if !ok {
		return
	}
	p, err := h.store.Get(c.Request.Context(), u.ID, courseID)
	if err != nil {
		logger.Errorf("progress for %s/%s: %v", u.ID.Hex(), courseID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch progress"})
		return
	}
	if p == nil {
		// no progress yet is a normal state, not an error
		c.JSON(http.StatusOK, gin.H{"success": true, "progress": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "progress": p})
}

// CompleteVideo marks a video as watched. Reaching 100 percent issues a
// certificate exactly once per (user, course).
func (h *ProgressHandler) CompleteVideo(c *gin.Context) {
	u := middleware.CurrentUser(c)
	courseID, ok := objectIDParam(c, "courseId")
	if !ok {
		return
	}
	videoID, err := primitive.ObjectIDFromHex(c.Param("videoId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid id"})
		return
	}
	if !canAccessCourse(u, courseID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Enroll in this course to track progress"})
		return
	}
	v, err := h.courses.FindVideoByID(c.Request.Context(), videoID)
	if err != nil {
		logger.Errorf("complete video: find %s: %v", videoID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update progress"})
		return
	}
	if v == nil || v.CourseID != courseID {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Video not found in this course"})
		return
	}
	total, err := h.courses.CountVideosByCourse(c.Request.Context(), courseID)
	if err != nil {
		logger.Errorf("complete video: count for %s: %v", courseID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update progress"})
		return
	}
	p, err := h.store.MarkVideoCompleted(c.Request.Context(), u.ID, courseID, videoID, total)
	if err != nil {
		logger.Errorf("complete video %s for %s: %v", videoID.Hex(), u.ID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update progress"})
		return
	}

	var cert *models.Certificate
	if p.CompletionPercentage >= 100 {
		cert, err = h.issueCertificate(c, u, courseID)
		if err != nil {
			logger.Warnf("issue certificate for %s/%s: %v", u.ID.Hex(), courseID.Hex(), err)
		}
	}
	resp := gin.H{"success": true, "progress": p}
	if cert != nil {
		resp["certificate"] = cert
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProgressHandler) issueCertificate(c *gin.Context, u *models.User, courseID primitive.ObjectID) (*models.Certificate, error) {
	ctx := c.Request.Context()
	existing, err := h.store.CertificateFor(ctx, u.ID, courseID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	course, err := h.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	courseName := ""
	if course != nil {
		courseName = course.Title
	}
	cert := &models.Certificate{
		UserID:        u.ID,
		CourseID:      courseID,
		CertificateID: "CERT-" + strings.ToUpper(strings.SplitN(uuid.NewString(), "-", 2)[0]),
		StudentName:   u.Name,
		CourseName:    courseName,
	}
	if err := h.store.InsertCertificate(ctx, cert); err != nil {
		return nil, err
	}
	return cert, nil
}

type positionRequest struct {
	VideoID  string  `json:"videoId" binding:"required"`
	Position float64 `json:"position"`
}

func (h *ProgressHandler) SavePosition(c *gin.Context) {
	u := middleware.CurrentUser(c)
	courseID, ok := objectIDParam(c, "courseId")
	if !ok {
		return
	}
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide videoId"})
		return
	}
	videoID, err := primitive.ObjectIDFromHex(req.VideoID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid videoId"})
		return
	}
	if !canAccessCourse(u, courseID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Enroll in this course to track progress"})
		return
	}
	if err := h.store.SetLastWatched(c.Request.Context(), u.ID, courseID, videoID, req.Position); err != nil {
		logger.Errorf("save position for %s/%s: %v", u.ID.Hex(), courseID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save position"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Position saved"})
}

func (h *ProgressHandler) MyCertificates(c *gin.Context) {
	u := middleware.CurrentUser(c)
	list, err := h.store.CertificatesByUser(c.Request.Context(), u.ID)
	if err != nil {
		logger.Errorf("certificates for %s: %v", u.ID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch certificates"})
		return
	}
	if list == nil {
		list = []models.Certificate{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "certificates": list})
}

// VerifyCertificate is the public authenticity check by certificate id.
func (h *ProgressHandler) VerifyCertificate(c *gin.Context) {
	cert, err := h.store.CertificateByPublicID(c.Request.Context(), c.Param("certificateId"))
	if err != nil {
		logger.Errorf("verify certificate: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Verification failed"})
		return
	}
	if cert == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Certificate not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "certificate": cert})
}
