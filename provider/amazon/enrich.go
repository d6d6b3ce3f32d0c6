package amazon

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/use-agent/harvest/browser"
	"github.com/use-agent/harvest/extract"
	"github.com/use-agent/harvest/models"
)

// enrichBrands visits a bounded number of the extracted product pages
// to replace list-row brand guesses with the detail page's byline.
//
// Visits are strictly sequential and paced by a rate limiter — the
// reduced concurrency is what keeps the pass under Amazon's
// bot-detection radar, so it must not be parallelised. Per-item
// failures are swallowed; the original brand, if any, is kept.
func (p *Provider) enrichBrands(ctx context.Context, sess *browser.Session, summaries []models.ScrapedProductSummary) {
	if len(summaries) == 0 || p.cfg.EnrichmentLimit <= 0 {
		return
	}

	limiter := rate.NewLimiter(rate.Every(p.cfg.EnrichmentDelay), 1)
	limit := p.cfg.EnrichmentLimit
	if limit > len(summaries) {
		limit = len(summaries)
	}

	enriched := 0
	for i := 0; i < limit; i++ {
		if err := limiter.Wait(ctx); err != nil {
			// Deadline hit mid-pass; whatever is enriched so far stands.
			slog.Debug("brand enrichment cut short", "visited", i, "error", err)
			return
		}
		if brand := p.fetchBrand(ctx, sess, summaries[i].ProductURL); brand != "" {
			summaries[i].Brand = brand
			enriched++
		}
	}
	slog.Info("brand enrichment pass complete", "visited", limit, "enriched", enriched)
}

// fetchBrand opens one detail page and reads the byline. Any failure
// returns "" — enrichment never aborts the batch.
func (p *Provider) fetchBrand(ctx context.Context, sess *browser.Session, productURL string) string {
	page, err := browser.NewPage(sess, siteProfile())
	if err != nil {
		slog.Debug("enrichment page open failed", "url", productURL, "error", err)
		return ""
	}
	defer page.Close()

	// Single attempt on purpose: a flaky detail page is not worth the
	// extra traffic the retry loop would generate.
	if err := page.Navigate(ctx, productURL, browser.NavigateOptions{
		MaxAttempts:    1,
		AttemptTimeout: p.cfg.NavigationTimeout,
	}); err != nil {
		slog.Debug("enrichment navigation failed", "url", productURL, "error", err)
		return ""
	}

	pageHTML, err := page.HTML(ctx)
	if err != nil {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return ""
	}

	return extract.CleanBrand(extract.FirstMatch(doc.Selection, enrichBylineRules))
}
