// Package scrape dispatches incoming URLs to site providers and
// enforces per-request deadlines. It is the single boundary where
// provider errors become typed ScrapeErrors.
package scrape

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/use-agent/harvest/config"
	"github.com/use-agent/harvest/models"
	"github.com/use-agent/harvest/provider"
)

// Service routes scrape requests to the provider registry.
type Service struct {
	registry *provider.Registry
	cfg      config.ScraperConfig
}

// NewService creates the dispatch service.
func NewService(registry *provider.Registry, cfg config.ScraperConfig) *Service {
	return &Service{registry: registry, cfg: cfg}
}

// Providers lists registered provider names in resolution order.
func (s *Service) Providers() []string {
	return s.registry.Names()
}

// Match reports which provider, if any, would handle the URL. It
// performs no I/O.
func (s *Service) Match(rawURL string) (string, bool) {
	p, err := s.registry.Resolve(rawURL)
	if err != nil {
		return "", false
	}
	return p.Name(), true
}

// ScrapeProduct resolves a provider for the URL and runs a product
// scrape under the request's deadline. Resolution happens before any
// session work: an unsupported URL never costs a browser.
func (s *Service) ScrapeProduct(ctx context.Context, req *models.ScrapeURLRequest) (*models.ScrapedProduct, string, error) {
	p, err := s.registry.Resolve(req.URL)
	if err != nil {
		return nil, "", err
	}

	ctx, cancel := s.withDeadline(ctx, req.Timeout)
	defer cancel()

	slog.Info("dispatching product scrape", "provider", p.Name(), "url", req.URL)
	product, err := p.ScrapeProduct(ctx, req.URL)
	if err != nil {
		return nil, p.Name(), s.convertError(ctx, err, "product scrape failed")
	}
	return product, p.Name(), nil
}

// ScrapeSearch resolves a provider for the URL and runs a search
// scrape under the request's deadline.
func (s *Service) ScrapeSearch(ctx context.Context, req *models.ScrapeURLRequest) (*models.ScrapedSearchResult, string, error) {
	p, err := s.registry.Resolve(req.URL)
	if err != nil {
		return nil, "", err
	}

	ctx, cancel := s.withDeadline(ctx, req.Timeout)
	defer cancel()

	slog.Info("dispatching search scrape", "provider", p.Name(), "url", req.URL)
	result, err := p.ScrapeSearch(ctx, req.URL)
	if err != nil {
		return nil, p.Name(), s.convertError(ctx, err, "search scrape failed")
	}
	return result, p.Name(), nil
}

// withDeadline applies the requested timeout, clamped to the
// configured maximum, on top of whatever deadline the caller carries.
func (s *Service) withDeadline(ctx context.Context, timeoutSec int) (context.Context, context.CancelFunc) {
	timeout := time.Duration(timeoutSec) * time.Second
	if timeout <= 0 {
		timeout = s.cfg.DefaultTimeout
	}
	if s.cfg.MaxTimeout > 0 && timeout > s.cfg.MaxTimeout {
		timeout = s.cfg.MaxTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// convertError is the one place provider errors become API-facing
// typed errors. Deadline expiry wins over whatever error it surfaced
// as inside the provider.
func (s *Service) convertError(ctx context.Context, err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.NewScrapeError(models.ErrCodeTimeout, "scrape timed out", err)
	}
	var scrapeErr *models.ScrapeError
	if errors.As(err, &scrapeErr) {
		return scrapeErr
	}
	return models.NewScrapeError(models.ErrCodeInternal, msg, err)
}
