package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvest/cache"
	"github.com/use-agent/harvest/models"
	"github.com/use-agent/harvest/scrape"
)

// ScrapeProduct returns a handler for POST /api/v1/scrape/product.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup when the request allows stale results.
//  3. Service dispatch → provider scrape   (records navigation_ms)
//  4. Cache store, fill Timing, return 200.
func ScrapeProduct(svc *scrape.Service, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScrapeURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ProductResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		// ── 2. Cache lookup ─────────────────────────────────────────
		cacheKey := cache.Key(cache.KindProduct, req.URL)
		if cc != nil && req.MaxAge > 0 {
			if product, providerName, hit := cc.GetProduct(cacheKey, req.MaxAge); hit {
				c.JSON(http.StatusOK, models.ProductResponse{
					Success:     true,
					Product:     product,
					Provider:    providerName,
					CacheStatus: "hit",
					Timing: models.TimingInfo{
						TotalMs: time.Since(totalStart).Milliseconds(),
					},
				})
				return
			}
		}

		// ── 3. Scrape ───────────────────────────────────────────────
		navStart := time.Now()
		product, providerName, err := svc.ScrapeProduct(c.Request.Context(), &req)
		navigationMs := time.Since(navStart).Milliseconds()

		if err != nil {
			respondProductError(c, err, models.TimingInfo{
				TotalMs:      time.Since(totalStart).Milliseconds(),
				NavigationMs: navigationMs,
			})
			return
		}

		// ── 4. Cache store + respond ────────────────────────────────
		resp := models.ProductResponse{
			Success:  true,
			Product:  product,
			Provider: providerName,
			Timing: models.TimingInfo{
				TotalMs:      time.Since(totalStart).Milliseconds(),
				NavigationMs: navigationMs,
			},
		}
		if cc != nil && req.MaxAge > 0 {
			cc.SetProduct(cacheKey, product, providerName)
			resp.CacheStatus = "miss"
		}

		c.JSON(http.StatusOK, resp)
	}
}

// ScrapeSearch returns a handler for POST /api/v1/scrape/search. Same
// flow as the product handler with the search envelope.
func ScrapeSearch(svc *scrape.Service, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.ScrapeURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.SearchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		cacheKey := cache.Key(cache.KindSearch, req.URL)
		if cc != nil && req.MaxAge > 0 {
			if result, providerName, hit := cc.GetSearch(cacheKey, req.MaxAge); hit {
				c.JSON(http.StatusOK, models.SearchResponse{
					Success:     true,
					Result:      result,
					Provider:    providerName,
					CacheStatus: "hit",
					Timing: models.TimingInfo{
						TotalMs: time.Since(totalStart).Milliseconds(),
					},
				})
				return
			}
		}

		navStart := time.Now()
		result, providerName, err := svc.ScrapeSearch(c.Request.Context(), &req)
		navigationMs := time.Since(navStart).Milliseconds()

		if err != nil {
			respondSearchError(c, err, models.TimingInfo{
				TotalMs:      time.Since(totalStart).Milliseconds(),
				NavigationMs: navigationMs,
			})
			return
		}

		resp := models.SearchResponse{
			Success:  true,
			Result:   result,
			Provider: providerName,
			Timing: models.TimingInfo{
				TotalMs:      time.Since(totalStart).Milliseconds(),
				NavigationMs: navigationMs,
			},
		}
		if cc != nil && req.MaxAge > 0 {
			cc.SetSearch(cacheKey, result, providerName)
			resp.CacheStatus = "miss"
		}

		c.JSON(http.StatusOK, resp)
	}
}

func respondProductError(c *gin.Context, err error, timing models.TimingInfo) {
	scrapeErr := asScrapeError(err)
	c.JSON(mapErrorToStatus(scrapeErr), models.ProductResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
		Timing:  timing,
	})
}

func respondSearchError(c *gin.Context, err error, timing models.TimingInfo) {
	scrapeErr := asScrapeError(err)
	c.JSON(mapErrorToStatus(scrapeErr), models.SearchResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
		Timing:  timing,
	})
}

func asScrapeError(err error) *models.ScrapeError {
	scrapeErr, ok := err.(*models.ScrapeError)
	if !ok {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}
	return scrapeErr
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeChallenge, models.ErrCodeSessionCreate:
		return http.StatusBadGateway // 502
	case models.ErrCodeNoProvider:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
