package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnhub/learnhub/internal/accounts"
	"github.com/learnhub/learnhub/internal/chats"
	"github.com/learnhub/learnhub/internal/config"
	"github.com/learnhub/learnhub/internal/courses"
	"github.com/learnhub/learnhub/internal/models"
	"github.com/learnhub/learnhub/internal/payments"
	"github.com/learnhub/learnhub/pkg/logger"
	"github.com/learnhub/learnhub/pkg/middleware"
)

// AdminHandler serves the dashboard stats and student management.
type AdminHandler struct {
	cfg      *config.Config
	repo     accounts.Repository
	courses  courses.Store
	payments payments.Store
	chats    chats.Store
}

func NewAdminHandler(cfg *config.Config, repo accounts.Repository, cs courses.Store, ps payments.Store, ds chats.Store) *AdminHandler {
	return &AdminHandler{cfg: cfg, repo: repo, courses: cs, payments: ps, chats: ds}
}

func (h *AdminHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/admin", middleware.RequireAuth(h.cfg, h.repo), middleware.RequireAdmin())
	g.GET("/dashboard", h.Dashboard)
	g.GET("/students", h.ListStudents)
	g.DELETE("/students/:id", h.DeleteStudent)
}

// Dashboard aggregates the headline numbers for the admin landing page.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	students, err := h.repo.CountByRole(ctx, models.RoleStudent)
	if err != nil {
		logger.Errorf("dashboard: count students: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch dashboard"})
		return
	}
	published, err := h.courses.CountPublished(ctx)
	if err != nil {
		logger.Errorf("dashboard: count courses: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch dashboard"})
		return
	}
	enrollments, err := h.courses.TotalEnrollment(ctx)
	if err != nil {
		logger.Errorf("dashboard: total enrollment: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch dashboard"})
		return
	}
	revenue, err := h.payments.Revenue(ctx)
	if err != nil {
		logger.Errorf("dashboard: revenue: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch dashboard"})
		return
	}
	openDoubts, err := h.chats.CountByStatus(ctx, models.ChatOpen)
	if err != nil {
		logger.Warnf("dashboard: count open doubts: %v", err)
	}
	recent, err := h.payments.RecentPaid(ctx, time.Now().AddDate(0, 0, -7), 10)
	if err != nil {
		logger.Warnf("dashboard: recent payments: %v", err)
	}
	if recent == nil {
		recent = []models.Payment{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"totalStudents":    students,
			"publishedCourses": published,
			"totalEnrollments": enrollments,
			"totalRevenue":     revenue,
			"openDoubts":       openDoubts,
		},
		"recentPayments": recent,
	})
}

// ListStudents pages through student accounts with optional name/email search.
func (h *AdminHandler) ListStudents(c *gin.Context) {
	page, limit := parsePaging(c)
	users, total, err := h.repo.ListStudents(c.Request.Context(), c.Query("search"), page, limit)
	if err != nil {
		logger.Errorf("list students: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch students"})
		return
	}
	out := make([]models.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"students": out,
		"total":    total,
		"page":     page,
		"pages":    (total + limit - 1) / limit,
	})
}

// DeleteStudent removes a student account. Admin accounts cannot be deleted
// through this endpoint.
func (h *AdminHandler) DeleteStudent(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	u, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		logger.Errorf("delete student: find %s: %v", id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to delete student"})
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Student not found"})
		return
	}
	if u.Role != models.RoleStudent {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Only student accounts can be deleted"})
		return
	}
	if _, err := h.repo.DeleteByID(c.Request.Context(), id); err != nil {
		logger.Errorf("delete student %s: %v", id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to delete student"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Student deleted"})
}
