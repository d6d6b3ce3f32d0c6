package models

// ScrapeURLRequest is the payload for POST /api/v1/scrape/product and
// POST /api/v1/scrape/search.
type ScrapeURLRequest struct {
	// URL is the target page. Required. A bare hostname form (no scheme)
	// is accepted for provider matching but the scrape itself will
	// normalise it to https.
	URL string `json:"url" binding:"required"`

	// Timeout is the maximum duration in seconds for the entire scrape
	// (session acquisition + navigation + challenge handling + extraction).
	// Default: 60. Max: 300.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=300"`

	// MaxAge enables the response cache: a cached result younger than
	// MaxAge milliseconds is returned without touching the browser.
	// Default: 0 (cache bypassed).
	MaxAge int `json:"max_age_ms,omitempty" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeURLRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 60
	}
}
