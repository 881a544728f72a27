package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnhub/learnhub/internal/accounts"
	"github.com/learnhub/learnhub/internal/config"
	"github.com/learnhub/learnhub/internal/storage"
	"github.com/learnhub/learnhub/pkg/logger"
	"github.com/learnhub/learnhub/pkg/middleware"
)

const maxUploadBytes = 5 << 20 // 5 MiB per image

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// UploadsHandler accepts admin image uploads (course thumbnails) and stores
// them in the media bucket.
type UploadsHandler struct {
	cfg   *config.Config
	media *storage.MediaStore
	repo  accounts.Repository
}

func NewUploadsHandler(cfg *config.Config, media *storage.MediaStore, repo accounts.Repository) *UploadsHandler {
	return &UploadsHandler{cfg: cfg, media: media, repo: repo}
}

func (h *UploadsHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/admin/uploads", middleware.RequireAuth(h.cfg, h.repo), middleware.RequireAdmin())
	g.POST("/thumbnail", h.Thumbnail)
}

// Thumbnail stores an uploaded image and returns a presigned URL to embed
// in the course document.
func (h *UploadsHandler) Thumbnail(c *gin.Context) {
	if h.media == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Media storage not configured"})
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please attach a file"})
		return
	}
	if fh.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "File too large, limit is 5 MB"})
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Only JPEG, PNG and WebP images are accepted"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		logger.Errorf("open upload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Upload failed"})
		return
	}
	defer f.Close()

	key := storage.ObjectKey("thumbnails", fh.Filename)
	if err := h.media.Upload(c.Request.Context(), key, f, fh.Size, contentType); err != nil {
		logger.Errorf("store upload %s: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Upload failed"})
		return
	}
	url, err := h.media.PresignedURL(c.Request.Context(), key, 7*24*time.Hour)
	if err != nil {
		logger.Errorf("presign %s: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Upload failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "key": key, "url": url})
}
