package http

import (
	nethttp "net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/catchment-service/internal/config"
)

// NewServer wraps the engine in an http.Server. WriteTimeout stays zero:
// artifacts are streamed and may be large.
func NewServer(cfg config.HTTPConfig, engine *gin.Engine) *nethttp.Server {
	return &nethttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout.Duration,
		IdleTimeout:       cfg.IdleTimeout.Duration,
		WriteTimeout:      0,
	}
}
