package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/logger"
)

// ErrorHandler renders the last error attached to the context. AppErrors
// keep their code and message; anything else becomes a generic internal
// error and is logged.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		log := logger.Get().With("request_id", c.GetString(RequestIDKey), "path", c.Request.URL.Path)

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			if appErr.Internal != nil {
				log.Errorw("app error", "code", appErr.Code, "message", appErr.Message, "internal", appErr.Internal.Error())
			}
			c.JSON(appErr.StatusCode, gin.H{"error": gin.H{"code": appErr.Code, "message": appErr.Message}})
			return
		}

		log.Errorw("unexpected error", "error", err.Error(), "method", c.Request.Method)
		c.JSON(apperrors.ErrInternalServer.StatusCode, gin.H{
			"error": gin.H{
				"code":    apperrors.ErrInternalServer.Code,
				"message": apperrors.ErrInternalServer.Message,
			},
		})
	}
}
