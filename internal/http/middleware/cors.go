package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS lets browser map clients on the given origins call the service.
func CORS(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "X-Requested-With", headerRequestID},
		ExposeHeaders: []string{headerRequestID, headerTraceID},
		MaxAge:        12 * time.Hour,
	})
}
