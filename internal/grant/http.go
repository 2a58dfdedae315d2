package grant

import (
	"errors"
	"net/http"
	"time"

	"github.com/abduss/secureupload/internal/logger"
	"github.com/abduss/secureupload/internal/policy"
	"github.com/abduss/secureupload/internal/token"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterRoutes mounts GET /upload-url/:token.
func RegisterRoutes(router gin.IRoutes, service *Service, log *zap.Logger) {
	handler := &httpHandler{service: service, log: log}
	router.GET("/upload-url/:token", handler.grant)
}

type httpHandler struct {
	service *Service
	log     *zap.Logger
}

type grantQuery struct {
	Extension   string `form:"ext"`
	ContentType string `form:"contentType"`
}

type grantResponse struct {
	UploadURL        string            `json:"upload_url"`
	Method           string            `json:"method"`
	Headers          map[string]string `json:"headers,omitempty"`
	Filename         string            `json:"filename"`
	Key              string            `json:"key"`
	ContentType      string            `json:"content_type"`
	ExpiresInSeconds int64             `json:"expires_in_seconds"`
	Timestamp        string            `json:"timestamp"`
	Receipt          string            `json:"receipt,omitempty"`
}

func (h *httpHandler) grant(c *gin.Context) {
	var query grantQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}

	g, err := h.service.Grant(c.Request.Context(), Request{
		Token:       c.Param("token"),
		Extension:   query.Extension,
		ContentType: query.ContentType,
	})
	if err != nil {
		var typeErr *policy.UnsupportedTypeError
		switch {
		case isTokenError(err):
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid or expired token"})
		case errors.As(err, &typeErr):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":                 typeErr.Error(),
				"allowed_extensions":    typeErr.AllowedExtensions,
				"allowed_content_types": typeErr.AllowedContentTypes,
			})
		default:
			_ = c.Error(err)
			logger.FromContext(c, h.log).Error("grant upload", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	headers := make(map[string]string, len(g.Headers))
	for name := range g.Headers {
		headers[name] = g.Headers.Get(name)
	}

	c.JSON(http.StatusOK, grantResponse{
		UploadURL:        g.UploadURL,
		Method:           g.Method,
		Headers:          headers,
		Filename:         g.Filename,
		Key:              g.Key,
		ContentType:      g.ContentType,
		ExpiresInSeconds: int64(g.ExpiresIn.Seconds()),
		Timestamp:        g.IssuedAt.Format(time.RFC3339Nano),
		Receipt:          g.Receipt,
	})
}

func isTokenError(err error) bool {
	return errors.Is(err, token.ErrInvalidToken)
}
