package models

// TimingInfo reports where a request spent its time.
type TimingInfo struct {
	TotalMs      int64 `json:"total_ms"`
	NavigationMs int64 `json:"navigation_ms,omitempty"`
	ExtractionMs int64 `json:"extraction_ms,omitempty"`
}

// ErrorResponse is the envelope for failures that occur before an
// operation-specific response exists (auth, rate limiting).
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// ProductResponse is the envelope for POST /api/v1/scrape/product.
type ProductResponse struct {
	Success bool            `json:"success"`
	Product *ScrapedProduct `json:"product,omitempty"`
	Error   *ErrorDetail    `json:"error,omitempty"`

	// Provider is the name of the site provider that served the request.
	Provider string `json:"provider,omitempty"`

	// CacheStatus is "hit", "miss", or empty when caching was bypassed.
	CacheStatus string `json:"cache_status,omitempty"`

	Timing TimingInfo `json:"timing"`
}

// SearchResponse is the envelope for POST /api/v1/scrape/search.
type SearchResponse struct {
	Success bool                 `json:"success"`
	Result  *ScrapedSearchResult `json:"result,omitempty"`
	Error   *ErrorDetail         `json:"error,omitempty"`

	Provider    string     `json:"provider,omitempty"`
	CacheStatus string     `json:"cache_status,omitempty"`
	Timing      TimingInfo `json:"timing"`
}

// ProviderResponse is the envelope for GET /api/v1/providers.
type ProviderResponse struct {
	CanScrape bool   `json:"can_scrape"`
	Provider  string `json:"provider,omitempty"`
}

// HealthResponse is the envelope for GET /api/v1/health.
type HealthResponse struct {
	Status        string   `json:"status"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Providers     []string `json:"providers"`
}
