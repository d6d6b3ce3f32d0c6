// Package amazon scrapes Amazon marketplace search and detail pages.
package amazon

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/harvest/browser"
	"github.com/use-agent/harvest/config"
	"github.com/use-agent/harvest/extract"
	"github.com/use-agent/harvest/models"
	"github.com/use-agent/harvest/provider"
)

const platformName = "amazon"

// Provider implements the scraping contract for Amazon marketplaces.
// Sessions are acquired per call and released on every exit path.
type Provider struct {
	sessions     *browser.Manager
	cfg          config.ScraperConfig
	preferRemote bool
}

// New creates the Amazon provider.
func New(sessions *browser.Manager, cfg config.ScraperConfig, preferRemote bool) *Provider {
	return &Provider{sessions: sessions, cfg: cfg, preferRemote: preferRemote}
}

func (p *Provider) Name() string { return platformName }

func (p *Provider) CanScrape(rawURL string) bool {
	return provider.MatchesDomain(rawURL, domains)
}

// Close is a no-op: sessions are scoped to calls, nothing is held.
func (p *Provider) Close() {}

// ScrapeSearch extracts a result list from an Amazon search URL. All
// three strategies run (network capture, embedded state, DOM cards,
// with link harvesting when every card selector misses) and their
// candidates are merged; a brand enrichment pass then visits a bounded
// number of detail pages.
func (p *Provider) ScrapeSearch(ctx context.Context, rawURL string) (*models.ScrapedSearchResult, error) {
	target := provider.NormalizeURL(rawURL)

	sess, err := p.sessions.Acquire(ctx, browser.Options{Stealth: true, Remote: p.preferRemote})
	if err != nil {
		return nil, err
	}
	defer p.sessions.Release(sess)

	page, err := browser.NewPage(sess, siteProfile())
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "failed to open page", err)
	}
	defer page.Close()

	// The capture must exist before navigation or the search AJAX
	// responses fired during load are lost.
	capture := page.InterceptResponses(isSearchAPI)
	defer capture.Stop()

	if err := page.Navigate(ctx, target, browser.NavigateOptions{
		MaxAttempts:    p.cfg.NavigationAttempts,
		AttemptTimeout: p.cfg.NavigationTimeout,
	}); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "search page navigation failed", err)
	}

	pageHTML, err := page.HTML(ctx)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "failed to read search page", err)
	}

	if isRobotPage(pageHTML) {
		slog.Warn("amazon robot check page, returning best-effort result", "url", target)
		return extract.FinishSearch(nil, target, pageFromURL(target)), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeMalformed, "failed to parse search page HTML", err)
	}

	base := baseURLOf(target)
	var candidates []extract.Candidate

	netRules := searchNetworkRules
	netRules.BaseURL = base
	netRules.ProductURL = detailURL(base)
	for _, body := range capture.Bodies() {
		candidates = append(candidates, extract.SummariesFromJSON(body.Body, netRules)...)
	}

	scriptRules := searchScriptRules
	scriptRules.Fields = netRules
	scriptRules.PlaceholderName = placeholderName
	candidates = append(candidates, extract.SummariesFromScripts(doc, scriptRules)...)

	listRules := searchListRules
	listRules.BaseURL = base
	domCandidates := extract.SummariesFromDOM(doc, listRules)
	if len(domCandidates) == 0 {
		// Card selectors drifted; harvest raw product links instead.
		hr := harvestRules
		hr.ProductURL = detailURL(base)
		hr.PlaceholderName = placeholderName
		domCandidates = extract.HarvestLinks(pageHTML, hr)
	}
	candidates = append(candidates, domCandidates...)

	merged := extract.Merge(candidates)
	slog.Info("amazon search extracted",
		"url", target,
		"candidates", len(candidates),
		"merged", len(merged),
	)

	p.enrichBrands(ctx, sess, merged)

	return extract.FinishSearch(merged, target, pageFromURL(target)), nil
}

// ScrapeProduct extracts a single product from a detail URL.
func (p *Provider) ScrapeProduct(ctx context.Context, rawURL string) (*models.ScrapedProduct, error) {
	target := provider.NormalizeURL(rawURL)

	sess, err := p.sessions.Acquire(ctx, browser.Options{Stealth: true, Remote: p.preferRemote})
	if err != nil {
		return nil, err
	}
	defer p.sessions.Release(sess)

	page, err := browser.NewPage(sess, siteProfile())
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "failed to open page", err)
	}
	defer page.Close()

	if err := page.Navigate(ctx, target, browser.NavigateOptions{
		MaxAttempts:    p.cfg.NavigationAttempts,
		AttemptTimeout: p.cfg.NavigationTimeout,
	}); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "product page navigation failed", err)
	}

	pageHTML, err := page.HTML(ctx)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "failed to read product page", err)
	}

	if isRobotPage(pageHTML) {
		slog.Warn("amazon robot check page, returning best-effort product", "url", target)
		product := &models.ScrapedProduct{
			SourceURL:      target,
			SourcePlatform: platformName,
		}
		return extract.FinishProduct(product, rawURL), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeMalformed, "failed to parse product page HTML", err)
	}

	rules := productRules
	rules.BaseURL = baseURLOf(target)
	product := extract.ProductFromDOM(doc, pageHTML, target, rules)

	if m := asinPattern.FindStringSubmatch(target); len(m) == 2 {
		product.Barcode = strings.ToUpper(m[1])
	}

	return extract.FinishProduct(product, rawURL), nil
}

func siteProfile() browser.SiteProfile {
	return browser.SiteProfile{AcceptLanguage: "en-US,en;q=0.9"}
}

// baseURLOf keeps product links on the marketplace the caller asked
// about (amazon.in links must not resolve against amazon.com).
func baseURLOf(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "https://www.amazon.com"
	}
	return u.Scheme + "://" + u.Host
}

func detailURL(base string) func(id string) string {
	return func(id string) string {
		return fmt.Sprintf("%s/dp/%s", base, strings.ToUpper(id))
	}
}

func placeholderName(id string) string {
	return "Amazon item " + strings.ToUpper(id)
}

func isRobotPage(pageHTML string) bool {
	lower := strings.ToLower(pageHTML)
	for _, marker := range robotMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func pageFromURL(target string) int {
	u, err := url.Parse(target)
	if err != nil {
		return 1
	}
	if n, err := strconv.Atoi(u.Query().Get("page")); err == nil && n > 0 {
		return n
	}
	return 1
}
