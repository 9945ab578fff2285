package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/catchment-service/internal/platform/ctxutil"
	"github.com/yungbote/catchment-service/internal/platform/logger"
)

// Recover turns a handler panic into a 500. When the response is already
// partially written it can only be logged and cut short.
func Recover(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			if log != nil {
				log.With(ctxutil.LogFields(c.Request.Context())...).
					Error("panic recovered", "panic", rec, "stack", string(debug.Stack()))
			}
			if !c.Writer.Written() {
				c.Header("Content-Type", "text/plain; charset=utf-8")
				c.Status(http.StatusInternalServerError)
				_, _ = c.Writer.WriteString("Internal server error\n\n")
			}
			c.Abort()
		}()
		c.Next()
	}
}
