package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	scratchRoot string
}

func NewHealthHandler(scratchRoot string) *HealthHandler {
	return &HealthHandler{scratchRoot: scratchRoot}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Ready reports whether per-request workspaces can still be created.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.scratchRoot != "" {
		dir, err := os.MkdirTemp(h.scratchRoot, ".ready-*")
		if err != nil {
			c.String(http.StatusServiceUnavailable, "scratch root not writable")
			return
		}
		_ = os.Remove(dir)
	}
	c.String(http.StatusOK, "ok")
}
