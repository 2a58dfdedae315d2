package token

import (
	"errors"
	"net/http"
	"time"

	"github.com/abduss/secureupload/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterRoutes mounts POST /tokens. Guards run before the handler.
func RegisterRoutes(router gin.IRoutes, service *Service, log *zap.Logger, guards ...gin.HandlerFunc) {
	handler := &httpHandler{service: service, log: log}
	router.POST("/tokens", append(guards, handler.issue)...)
}

type httpHandler struct {
	service *Service
	log     *zap.Logger
}

type issueRequest struct {
	ClientID string `json:"client_id"`
}

type issueResponse struct {
	Token     string `json:"token"`
	UploadURL string `json:"upload_url"`
	CreatedAt string `json:"created_at"`
	ExpiresAt string `json:"expires_at"`
}

func (h *httpHandler) issue(c *gin.Context) {
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	tok, err := h.service.Issue(c.Request.Context(), req.ClientID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidClientID):
			c.JSON(http.StatusBadRequest, gin.H{"error": "client_id is required"})
		default:
			_ = c.Error(err)
			logger.FromContext(c, h.log).Error("issue token", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, issueResponse{
		Token:     tok.Value,
		UploadURL: "/upload-url/" + tok.Value,
		CreatedAt: tok.CreatedAt.Format(time.RFC3339Nano),
		ExpiresAt: tok.ExpiresAt.Format(time.RFC3339Nano),
	})
}
