package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/learnhub/learnhub/internal/accounts"
	"github.com/learnhub/learnhub/internal/chats"
	"github.com/learnhub/learnhub/internal/config"
	"github.com/learnhub/learnhub/internal/courses"
	"github.com/learnhub/learnhub/internal/models"
	"github.com/learnhub/learnhub/pkg/logger"
	"github.com/learnhub/learnhub/pkg/middleware"
)

// ChatsHandler runs the doubt threads between students and admins.
type ChatsHandler struct {
	cfg     *config.Config
	store   chats.Store
	courses courses.Store
	repo    accounts.Repository
}

func NewChatsHandler(cfg *config.Config, store chats.Store, cs courses.Store, repo accounts.Repository) *ChatsHandler {
	return &ChatsHandler{cfg: cfg, store: store, courses: cs, repo: repo}
}

func (h *ChatsHandler) Register(rg *gin.RouterGroup) {
	auth := middleware.RequireAuth(h.cfg, h.repo)

	g := rg.Group("/chats", auth)
	g.POST("", h.Create)
	g.GET("", h.Mine)
	g.GET("/:id", h.Get)
	g.POST("/:id/messages", h.Reply)

	admin := rg.Group("/admin/chats", auth, middleware.RequireAdmin())
	admin.GET("", h.AdminList)
	admin.PATCH("/:id/status", h.SetStatus)
}

type chatRequest struct {
	CourseID string `json:"courseId" binding:"required"`
	Subject  string `json:"subject" binding:"required"`
	Text     string `json:"text" binding:"required"`
}

// Create opens a new doubt thread on a course the student can access.
func (h *ChatsHandler) Create(c *gin.Context) {
	u := middleware.CurrentUser(c)
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide courseId, subject and text"})
		return
	}
	courseID, err := primitive.ObjectIDFromHex(req.CourseID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid courseId"})
		return
	}
	if !canAccessCourse(u, courseID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Enroll in this course to ask doubts"})
		return
	}
	course, err := h.courses.FindByID(c.Request.Context(), courseID)
	if err != nil {
		logger.Errorf("create chat: find course %s: %v", courseID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create chat"})
		return
	}
	if course == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Course not found"})
		return
	}
	chat := &models.Chat{
		CourseID: courseID,
		UserID:   u.ID,
		Subject:  req.Subject,
		Messages: []models.ChatMessage{{
			Sender:     u.ID,
			SenderRole: u.Role,
			Text:       req.Text,
			SentAt:     time.Now().UTC(),
		}},
	}
	if err := h.store.InsertChat(c.Request.Context(), chat); err != nil {
		logger.Errorf("insert chat: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create chat"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "chat": chat})
}

func (h *ChatsHandler) Mine(c *gin.Context) {
	u := middleware.CurrentUser(c)
	list, err := h.store.ChatsByUser(c.Request.Context(), u.ID)
	if err != nil {
		logger.Errorf("chats for %s: %v", u.ID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch chats"})
		return
	}
	if list == nil {
		list = []models.Chat{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "chats": list})
}

// Get returns one thread. Students can only read their own.
func (h *ChatsHandler) Get(c *gin.Context) {
	u := middleware.CurrentUser(c)
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	chat, err := h.store.FindChatByID(c.Request.Context(), id)
	if err != nil {
		logger.Errorf("get chat %s: %v", id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch chat"})
		return
	}
	if chat == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Chat not found"})
		return
	}
	if u.Role != models.RoleAdmin && chat.UserID != u.ID {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Not your chat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "chat": chat})
}

type replyRequest struct {
	Text string `json:"text" binding:"required"`
}

// Reply appends a message. Replying reopens a resolved thread.
func (h *ChatsHandler) Reply(c *gin.Context) {
	u := middleware.CurrentUser(c)
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide text"})
		return
	}
	chat, err := h.store.FindChatByID(c.Request.Context(), id)
	if err != nil {
		logger.Errorf("reply: find chat %s: %v", id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send message"})
		return
	}
	if chat == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Chat not found"})
		return
	}
	if u.Role != models.RoleAdmin && chat.UserID != u.ID {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Not your chat"})
		return
	}
	msg := models.ChatMessage{
		Sender:     u.ID,
		SenderRole: u.Role,
		Text:       req.Text,
		SentAt:     time.Now().UTC(),
	}
	if _, err := h.store.AppendMessage(c.Request.Context(), id, msg); err != nil {
		logger.Errorf("append message to %s: %v", id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send message"})
		return
	}
	if chat.Status == models.ChatResolved {
		if _, err := h.store.SetChatStatus(c.Request.Context(), id, models.ChatOpen); err != nil {
			logger.Warnf("reopen chat %s: %v", id.Hex(), err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Message sent"})
}

func (h *ChatsHandler) AdminList(c *gin.Context) {
	status := c.Query("status")
	if status != "" && status != models.ChatOpen && status != models.ChatResolved {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Unknown status"})
		return
	}
	list, err := h.store.ListChats(c.Request.Context(), status)
	if err != nil {
		logger.Errorf("admin list chats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch chats"})
		return
	}
	if list == nil {
		list = []models.Chat{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "chats": list})
}

type chatStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *ChatsHandler) SetStatus(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req chatStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Status != models.ChatOpen && req.Status != models.ChatResolved) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Status must be open or resolved"})
		return
	}
	matched, err := h.store.SetChatStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		logger.Errorf("set chat status %s: %v", id.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update chat"})
		return
	}
	if !matched {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Chat not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chat updated"})
}
