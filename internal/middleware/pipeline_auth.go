package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"moneta/internal/logger"
)

// PipelineKeyHeader carries the shared key of the external import function.
const PipelineKeyHeader = "X-API-Key"

// PipelineAuthMiddleware guards the machine-to-machine import endpoint. An
// empty configured key disables the endpoint instead of leaving it open.
func PipelineAuthMiddleware(apiKey string) gin.HandlerFunc {
	log := logger.Named("pipeline")
	return func(c *gin.Context) {
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": gin.H{"code": "PIPELINE_NOT_CONFIGURED", "message": "The import pipeline is not configured"}})
			return
		}
		key := c.GetHeader(PipelineKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			log.Warnw("rejected pipeline request", "client_ip", c.ClientIP(), "key_present", key != "")
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": gin.H{"code": "INVALID_API_KEY", "message": "Invalid or missing API key"}})
			return
		}
		c.Next()
	}
}
