package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ibtikar/ibtikar-backend/internal/storage"
	"github.com/ibtikar/ibtikar-backend/pkg/middleware"
)

// AttachmentsHandler uploads files (portfolio samples, briefs, deliverables)
// and hands out presigned download links.
type AttachmentsHandler struct {
	store *storage.Attachments
}

func NewAttachmentsHandler(s *storage.Attachments) *AttachmentsHandler {
	return &AttachmentsHandler{store: s}
}

func (h *AttachmentsHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/attachments", h.Upload)
	rg.GET("/attachments/url", h.DownloadURL)
}

func (h *AttachmentsHandler) Upload(c *gin.Context) {
	ident, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read upload"})
		return
	}
	defer f.Close()

	key, err := h.store.Upload(c.Request.Context(), ident.ID, fh.Filename, f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key})
}

func (h *AttachmentsHandler) DownloadURL(c *gin.Context) {
	if _, ok := middleware.Identity(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key required"})
		return
	}
	url, err := h.store.PresignedURL(c.Request.Context(), key, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "presign failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
