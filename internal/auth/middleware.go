package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// OperatorKeyHeader carries the operator key on guarded requests.
const OperatorKeyHeader = "X-Operator-Key"

// OperatorMiddleware rejects requests whose operator key does not verify.
func OperatorMiddleware(service *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !service.Enabled() {
			c.Next()
			return
		}

		if err := service.Verify(c.GetHeader(OperatorKeyHeader)); err != nil {
			if !errors.Is(err, ErrUnauthorized) {
				_ = c.Error(err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Next()
	}
}
