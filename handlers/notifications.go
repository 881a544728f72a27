package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/learnhub/learnhub/internal/accounts"
	"github.com/learnhub/learnhub/internal/chats"
	"github.com/learnhub/learnhub/internal/config"
	"github.com/learnhub/learnhub/internal/models"
	"github.com/learnhub/learnhub/pkg/logger"
	"github.com/learnhub/learnhub/pkg/middleware"
)

// NotificationsHandler delivers announcements to students and lets admins
// publish them.
type NotificationsHandler struct {
	cfg   *config.Config
	store chats.Store
	repo  accounts.Repository
}

func NewNotificationsHandler(cfg *config.Config, store chats.Store, repo accounts.Repository) *NotificationsHandler {
	return &NotificationsHandler{cfg: cfg, store: store, repo: repo}
}

func (h *NotificationsHandler) Register(rg *gin.RouterGroup) {
	auth := middleware.RequireAuth(h.cfg, h.repo)

	g := rg.Group("/notifications", auth)
	g.GET("", h.List)
	g.PATCH("/:id/read", h.MarkRead)

	admin := rg.Group("/admin/notifications", auth, middleware.RequireAdmin())
	admin.POST("", h.Create)
	admin.DELETE("/:id", h.Delete)
}

func (h *NotificationsHandler) List(c *gin.Context) {
	u := middleware.CurrentUser(c)
	list, err := h.store.NotificationsForUser(c.Request.Context(), u.ID)
	if err != nil {
		logger.Errorf("notifications for %s: %v", u.ID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch notifications"})
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notifications": list})
}

func (h *NotificationsHandler) MarkRead(c *gin.Context) {
	u := middleware.CurrentUser(c)
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	matched, err := h.store.MarkNotificationRead(c.Request.Context(), id, u.ID)
	if err != nil {
		logger.Errorf("mark notification %s read: %v", id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update notification"})
		return
	}
	if !matched {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Notification marked as read"})
}

type notificationRequest struct {
	Title       string   `json:"title" binding:"required"`
	Message     string   `json:"message" binding:"required"`
	Type        string   `json:"type"`
	TargetAll   bool     `json:"targetAll"`
	TargetUsers []string `json:"targetUsers"`
}

// Create publishes an announcement to everyone or to a set of users.
func (h *NotificationsHandler) Create(c *gin.Context) {
	u := middleware.CurrentUser(c)
	var req notificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide title and message"})
		return
	}
	if !req.TargetAll && len(req.TargetUsers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Provide targetUsers or set targetAll"})
		return
	}
	targets := make([]primitive.ObjectID, 0, len(req.TargetUsers))
	for _, raw := range req.TargetUsers {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid user id in targetUsers"})
			return
		}
		targets = append(targets, id)
	}
	n := &models.Notification{
		Title:       req.Title,
		Message:     req.Message,
		Type:        req.Type,
		TargetAll:   req.TargetAll,
		TargetUsers: targets,
		CreatedBy:   u.ID,
	}
	if err := h.store.InsertNotification(c.Request.Context(), n); err != nil {
		logger.Errorf("insert notification: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create notification"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "notification": n})
}

func (h *NotificationsHandler) Delete(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	deleted, err := h.store.DeleteNotification(c.Request.Context(), id)
	if err != nil {
		logger.Errorf("delete notification %s: %v", id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to delete notification"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Notification deleted"})
}
