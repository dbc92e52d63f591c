package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/order_console/internal/repository"
	"github.com/GTDGit/order_console/internal/utils"
)

var startTime = time.Now()

// CacheStatter reports order cache state.
type CacheStatter interface {
	Stats() repository.CacheStats
}

// HealthHandler provides health endpoint.
type HealthHandler struct {
	cache        CacheStatter
	sessionStore string
	clients      func() int
	editors      func() int
}

// NewHealthHandler creates a new HealthHandler. clients and editors count
// live event streams and open order editors.
func NewHealthHandler(cache CacheStatter, sessionStore string, clients, editors func() int) *HealthHandler {
	return &HealthHandler{cache: cache, sessionStore: sessionStore, clients: clients, editors: editors}
}

// GetHealth responds with service and order cache status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	utils.Success(c, 200, "Service is healthy", gin.H{
		"status":       "healthy",
		"version":      "1.0.0",
		"uptime":       int(time.Since(startTime).Seconds()),
		"cache":        h.cache.Stats(),
		"sessionStore": h.sessionStore,
		"sseClients":   h.clients(),
		"openEditors":  h.editors(),
	})
}
