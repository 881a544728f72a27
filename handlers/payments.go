package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/learnhub/learnhub/internal/accounts"
	"github.com/learnhub/learnhub/internal/config"
	"github.com/learnhub/learnhub/internal/courses"
	"github.com/learnhub/learnhub/internal/models"
	"github.com/learnhub/learnhub/internal/payments"
	"github.com/learnhub/learnhub/pkg/logger"
	"github.com/learnhub/learnhub/pkg/middleware"
)

// Subscription plans and their prices in INR.
var subscriptionPlans = map[string]struct {
	Price    float64
	Duration time.Duration
}{
	"monthly": {Price: 499, Duration: 30 * 24 * time.Hour},
	"yearly":  {Price: 4999, Duration: 365 * 24 * time.Hour},
}

// PaymentsHandler runs the Razorpay checkout flow: order creation, signature
// verification and granting what was bought.
type PaymentsHandler struct {
	cfg     *config.Config
	store   payments.Store
	gateway *payments.Client
	courses courses.Store
	repo    accounts.Repository
}

func NewPaymentsHandler(cfg *config.Config, store payments.Store, gateway *payments.Client, cs courses.Store, repo accounts.Repository) *PaymentsHandler {
	return &PaymentsHandler{cfg: cfg, store: store, gateway: gateway, courses: cs, repo: repo}
}

func (h *PaymentsHandler) Register(rg *gin.RouterGroup) {
	auth := middleware.RequireAuth(h.cfg, h.repo)

	g := rg.Group("/payments", auth)
	g.POST("/orders", h.CreateOrder)
	g.POST("/verify", h.Verify)
	g.GET("", h.Mine)

	admin := rg.Group("/admin/payments", auth, middleware.RequireAdmin())
	admin.GET("", h.AdminList)
}

type orderRequest struct {
	Type     string `json:"type" binding:"required"`
	CourseID string `json:"courseId"`
	Plan     string `json:"plan"`
}

// CreateOrder registers a gateway order for a paid course or a subscription
// plan and records the pending payment.
func (h *PaymentsHandler) CreateOrder(c *gin.Context) {
	u := middleware.CurrentUser(c)
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide a payment type"})
		return
	}

	var (
		amount   float64
		courseID primitive.ObjectID
	)
	switch req.Type {
	case models.PaymentTypeCourse:
		id, err := primitive.ObjectIDFromHex(req.CourseID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid courseId"})
			return
		}
		course, err := h.courses.FindByID(c.Request.Context(), id)
		if err != nil {
			logger.Errorf("create order: find course %s: %v", id.Hex(), err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create order"})
			return
		}
		if course == nil || !course.IsPublished {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Course not found"})
			return
		}
		if course.Price <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "This course is free, enroll directly"})
			return
		}
		for _, e := range u.EnrolledCourses {
			if e == id {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Already enrolled in this course"})
				return
			}
		}
		amount = course.Price
		courseID = id
	case models.PaymentTypeSubscription:
		plan, ok := subscriptionPlans[req.Plan]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Unknown subscription plan"})
			return
		}
		amount = plan.Price
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Type must be course or subscription"})
		return
	}

	receipt := "rcpt_" + uuid.NewString()[:18]
	order, err := h.gateway.CreateOrder(c.Request.Context(), int64(amount*100), "INR", receipt)
	if err != nil {
		logger.Errorf("create gateway order: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Payment gateway unavailable"})
		return
	}
	p := &models.Payment{
		UserID:          u.ID,
		CourseID:        courseID,
		Type:            req.Type,
		Amount:          amount,
		Currency:        "INR",
		RazorpayOrderID: order.ID,
		Status:          models.PaymentCreated,
	}
	if err := h.store.Insert(c.Request.Context(), p); err != nil {
		logger.Errorf("record payment for order %s: %v", order.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create order"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"order": gin.H{
			"id":       order.ID,
			"amount":   order.Amount,
			"currency": order.Currency,
			"keyId":    h.cfg.Razorpay.KeyID,
			"plan":     req.Plan,
		},
	})
}

type verifyRequest struct {
	OrderID   string `json:"razorpayOrderId" binding:"required"`
	PaymentID string `json:"razorpayPaymentId" binding:"required"`
	Signature string `json:"razorpaySignature" binding:"required"`
	Plan      string `json:"plan"`
}

// Verify checks the checkout signature and, when genuine, settles the
// payment and grants the purchase.
func (h *PaymentsHandler) Verify(c *gin.Context) {
	u := middleware.CurrentUser(c)
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide order id, payment id and signature"})
		return
	}
	p, err := h.store.FindByOrderID(c.Request.Context(), req.OrderID)
	if err != nil {
		logger.Errorf("verify: find order %s: %v", req.OrderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Verification failed"})
		return
	}
	if p == nil || p.UserID != u.ID {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
		return
	}
	if p.Status == models.PaymentPaid {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment already verified"})
		return
	}
	if !payments.VerifySignature(h.cfg.Razorpay.KeySecret, req.OrderID, req.PaymentID, req.Signature) {
		if err := h.store.MarkFailed(c.Request.Context(), req.OrderID); err != nil {
			logger.Warnf("mark order %s failed: %v", req.OrderID, err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid payment signature"})
		return
	}
	if err := h.store.MarkPaid(c.Request.Context(), req.OrderID, req.PaymentID, req.Signature); err != nil {
		logger.Errorf("mark order %s paid: %v", req.OrderID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Verification failed"})
		return
	}

	switch p.Type {
	case models.PaymentTypeCourse:
		if err := h.repo.AddEnrolledCourse(c.Request.Context(), u.ID, p.CourseID); err != nil {
			logger.Errorf("grant course %s to %s: %v", p.CourseID.Hex(), u.ID.Hex(), err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Payment verified but enrollment failed, contact support"})
			return
		}
		if err := h.courses.IncEnrolled(c.Request.Context(), p.CourseID); err != nil {
			logger.Warnf("bump enrolled count for %s: %v", p.CourseID.Hex(), err)
		}
	case models.PaymentTypeSubscription:
		plan, ok := subscriptionPlans[req.Plan]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Unknown subscription plan"})
			return
		}
		sub := models.Subscription{
			Plan:      req.Plan,
			Status:    "active",
			ExpiresAt: time.Now().UTC().Add(plan.Duration),
		}
		if err := h.repo.SetSubscription(c.Request.Context(), u.ID, sub); err != nil {
			logger.Errorf("grant subscription to %s: %v", u.ID.Hex(), err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Payment verified but activation failed, contact support"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment verified"})
}

func (h *PaymentsHandler) Mine(c *gin.Context) {
	u := middleware.CurrentUser(c)
	list, err := h.store.ByUser(c.Request.Context(), u.ID)
	if err != nil {
		logger.Errorf("payments for %s: %v", u.ID.Hex(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch payments"})
		return
	}
	if list == nil {
		list = []models.Payment{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payments": list})
}

func (h *PaymentsHandler) AdminList(c *gin.Context) {
	page, limit := parsePaging(c)
	list, total, err := h.store.ListAll(c.Request.Context(), c.Query("status"), page, limit)
	if err != nil {
		logger.Errorf("admin list payments: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch payments"})
		return
	}
	if list == nil {
		list = []models.Payment{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "payments": list, "total": total, "page": page})
}
