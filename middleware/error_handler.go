package middleware

import (
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ziwuxx-intake/utils"
)

// ErrorHandler logs errors attached with c.Error and reports them to
// Sentry. The response itself is left to the handler.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		for _, ginErr := range c.Errors {
			logger.Error("request failed",
				zap.String("request_id", c.GetString(RequestIDKey)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("status", c.Writer.Status()),
				zap.Error(ginErr.Err),
			)

			extra := map[string]interface{}{
				"endpoint":   c.Request.URL.Path,
				"method":     c.Request.Method,
				"status":     c.Writer.Status(),
				"request_id": c.GetString(RequestIDKey),
			}
			if hub := sentry.GetHubFromContext(c.Request.Context()); hub != nil {
				hub.WithScope(func(scope *sentry.Scope) {
					scope.SetExtras(extra)
					hub.CaptureException(ginErr.Err)
				})
				continue
			}
			utils.CaptureError(ginErr.Err, extra)
		}
	}
}
