// Package provider defines the site-scraping contract and the registry
// that maps an input URL to the one provider responsible for it.
package provider

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/use-agent/harvest/models"
)

// Provider is a site-specific implementation of the scraping contract.
type Provider interface {
	// Name identifies the provider ("amazon", "taobao").
	Name() string

	// CanScrape reports whether url belongs to this provider's site.
	// It must not perform I/O.
	CanScrape(url string) bool

	// ScrapeSearch extracts a search-result list from a listing URL.
	ScrapeSearch(ctx context.Context, url string) (*models.ScrapedSearchResult, error)

	// ScrapeProduct extracts a single product from a detail URL.
	ScrapeProduct(ctx context.Context, url string) (*models.ScrapedProduct, error)

	// Close releases the provider's browser session, if any.
	Close()
}

// Registry holds an ordered list of providers. Resolution is a pure
// mapping — no I/O and no session creation happens here.
type Registry struct {
	providers []Provider
}

// NewRegistry creates a registry with the given providers; order is
// resolution order.
func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// Resolve returns the first provider whose CanScrape accepts the URL.
// A provider that panics during matching is treated as "does not match"
// — one broken matcher must never abort dispatch.
func (r *Registry) Resolve(rawURL string) (Provider, error) {
	for _, p := range r.providers {
		if safeCanScrape(p, rawURL) {
			return p, nil
		}
	}
	return nil, models.NewScrapeError(
		models.ErrCodeNoProvider,
		"no provider matches URL: "+rawURL,
		nil,
	)
}

// Names lists the registered providers in resolution order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Close shuts every provider down.
func (r *Registry) Close() {
	for _, p := range r.providers {
		p.Close()
	}
}

func safeCanScrape(p Provider, rawURL string) (matched bool) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Warn("provider CanScrape panicked, treating as no match",
				"provider", p.Name(), "panic", rec)
			matched = false
		}
	}()
	return p.CanScrape(rawURL)
}

// MatchesDomain implements the shared hostname test: equality or
// dot-suffix match against the site's known domains, case-insensitive,
// tolerant of a missing scheme ("amazon.in" matches).
func MatchesDomain(rawURL string, domains []string) bool {
	host := hostnameOf(rawURL)
	if host == "" {
		return false
	}
	for _, d := range domains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func hostnameOf(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// NormalizeURL gives schemeless input an https scheme so navigation
// and matching agree on the same URL form.
func NormalizeURL(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return raw
	}
	if !strings.Contains(raw, "://") {
		return "https://" + raw
	}
	return raw
}
