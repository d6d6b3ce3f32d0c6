package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvest/api/handler"
	"github.com/use-agent/harvest/api/middleware"
	"github.com/use-agent/harvest/cache"
	"github.com/use-agent/harvest/config"
	"github.com/use-agent/harvest/scrape"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(svc *scrape.Service, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(svc, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Scrape
	protected.POST("/scrape/product", handler.ScrapeProduct(svc, cc))
	protected.POST("/scrape/search", handler.ScrapeSearch(svc, cc))

	// Provider lookup
	protected.GET("/providers", handler.CheckProvider(svc))

	return r
}
