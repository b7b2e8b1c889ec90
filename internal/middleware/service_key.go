package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ServiceKeyHeader = "X-Service-Key"

// ServiceKeyRequired guards endpoints called by other backend services
// (sign-up, investment processing). An empty key disables the routes.
func ServiceKeyRequired(key string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "internal endpoints disabled"})
			return
		}
		got := c.GetHeader(ServiceKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			log.Warn("rejected service call", zap.String("path", c.FullPath()), zap.String("ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid service key"})
			return
		}
		c.Next()
	}
}
