package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvest/models"
	"github.com/use-agent/harvest/scrape"
)

// Health returns a handler for GET /api/v1/health.
func Health(svc *scrape.Service, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:        "healthy",
			UptimeSeconds: int64(time.Since(startTime).Seconds()),
			Providers:     svc.Providers(),
		})
	}
}
