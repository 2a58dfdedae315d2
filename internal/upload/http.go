package upload

import (
	"errors"
	"net/http"

	"github.com/abduss/secureupload/internal/logger"
	"github.com/abduss/secureupload/internal/token"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterRoutes mounts POST /uploads/:token.
func RegisterRoutes(router gin.IRoutes, service *Service, log *zap.Logger) {
	handler := &httpHandler{service: service, log: log}
	router.POST("/uploads/:token", handler.confirm)
}

type httpHandler struct {
	service *Service
	log     *zap.Logger
}

type confirmRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Key         string `json:"key"`
	Receipt     string `json:"receipt"`
}

func (h *httpHandler) confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	message, err := h.service.Confirm(c.Request.Context(), Confirmation{
		Token:       c.Param("token"),
		Filename:    req.Filename,
		ContentType: req.ContentType,
		Key:         req.Key,
		Receipt:     req.Receipt,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingFields), errors.Is(err, ErrInvalidFilename), errors.Is(err, ErrReceiptRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, token.ErrInvalidToken):
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid or expired token"})
		case errors.Is(err, ErrGrantMismatch):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			_ = c.Error(err)
			logger.FromContext(c, h.log).Error("confirm upload", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}
