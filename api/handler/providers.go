package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvest/models"
	"github.com/use-agent/harvest/scrape"
)

// CheckProvider returns a handler for GET /api/v1/providers?url=<url>.
// It reports whether any provider would accept the URL without
// performing a scrape.
func CheckProvider(svc *scrape.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawURL := c.Query("url")
		if rawURL == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "missing required query parameter: url",
				},
			})
			return
		}

		name, ok := svc.Match(rawURL)
		c.JSON(http.StatusOK, models.ProviderResponse{
			CanScrape: ok,
			Provider:  name,
		})
	}
}
