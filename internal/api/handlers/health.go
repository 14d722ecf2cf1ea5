package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jstittsworth/gridline/internal/services"
)

type HealthHandler struct {
	scheduler *services.SchedulerService
}

func NewHealthHandler(scheduler *services.SchedulerService) *HealthHandler {
	return &HealthHandler{
		scheduler: scheduler,
	}
}

// GetHealth returns basic health status - always returns 200 if server is running
// This is used for basic liveness probes
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"service":   "gridline",
	})
}

// GetSchedulerStatus returns the scheduler state and next job runs.
func (h *HealthHandler) GetSchedulerStatus(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusOK, gin.H{"is_running": false})
		return
	}
	c.JSON(http.StatusOK, h.scheduler.Status())
}
