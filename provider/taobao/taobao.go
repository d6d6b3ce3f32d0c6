// Package taobao scrapes Taobao and Tmall search and detail pages.
//
// Sessions require considerably more care than other marketplaces:
// Taobao serves slider challenges aggressively and walls most detail
// content behind login, so both flows run between navigation and
// extraction. Neither is fatal; a blocked page yields a best-effort
// result rather than an error.
package taobao

import (
	"context"
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

const platformName = "taobao"

// Provider implements the scraping contract for Taobao and Tmall.
type Provider struct {
	sessions     *browser.Manager
	cfg          config.ScraperConfig
	preferRemote bool
	recovery     challengeHandler
}

// New creates the Taobao provider.
func New(sessions *browser.Manager, cfg config.ScraperConfig, preferRemote bool) *Provider {
	return &Provider{sessions: sessions, cfg: cfg, preferRemote: preferRemote}
}

func (p *Provider) Name() string { return platformName }

func (p *Provider) CanScrape(rawURL string) bool {
	return provider.MatchesDomain(rawURL, domains)
}

// Close is a no-op: sessions are scoped to calls, nothing is held.
func (p *Provider) Close() {}

// ScrapeSearch extracts a result list from a Taobao search URL. After
// navigation the page goes through challenge clearing and the login
// flow; then all three strategies run and merge, with link harvesting
// as the DOM fallback.
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

	// The capture must exist before navigation or the mtop responses
	// fired during load are lost.
	capture := page.InterceptResponses(isSearchAPI)
	defer capture.Stop()

	if err := page.Navigate(ctx, target, browser.NavigateOptions{
		MaxAttempts:    p.cfg.NavigationAttempts,
		AttemptTimeout: p.cfg.NavigationTimeout,
	}); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "search page navigation failed", err)
	}

	blocked := !p.recovery.ClearChallenge(ctx, page)
	if !blocked {
		switch outcome := p.recovery.EnsureLogin(ctx, page); outcome {
		case loginSucceeded:
			// Re-run the search after login lands on the homepage.
			if err := page.Navigate(ctx, target, browser.NavigateOptions{
				MaxAttempts:    p.cfg.NavigationAttempts,
				AttemptTimeout: p.cfg.NavigationTimeout,
			}); err != nil {
				return nil, models.NewScrapeError(models.ErrCodeNavigation, "post-login navigation failed", err)
			}
		case loginTimedOut, loginFailed:
			slog.Warn("taobao login unresolved, searching best-effort",
				"url", target, "outcome", outcome, "code", outcome.errorCode())
			blocked = true
		}
	}

	pageHTML, err := page.HTML(ctx)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "failed to read search page", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeMalformed, "failed to parse search page HTML", err)
	}

	var candidates []extract.Candidate

	netRules := searchNetworkRules
	netRules.BaseURL = "https://s.taobao.com"
	netRules.ProductURL = detailURL
	for _, body := range capture.Bodies() {
		candidates = append(candidates, extract.SummariesFromJSON(body.Body, netRules)...)
	}

	scriptRules := searchScriptRules
	scriptRules.Fields = netRules
	scriptRules.PlaceholderName = placeholderName
	candidates = append(candidates, extract.SummariesFromScripts(doc, scriptRules)...)

	listRules := searchListRules
	listRules.BaseURL = "https://s.taobao.com"
	domCandidates := extract.SummariesFromDOM(doc, listRules)
	if len(domCandidates) == 0 {
		hr := harvestRules
		hr.ProductURL = detailURL
		hr.PlaceholderName = placeholderName
		domCandidates = extract.HarvestLinks(pageHTML, hr)
	}
	candidates = append(candidates, domCandidates...)

	merged := extract.Merge(candidates)
	slog.Info("taobao search extracted",
		"url", target,
		"candidates", len(candidates),
		"merged", len(merged),
		"blocked", blocked,
	)

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

	if p.recovery.ClearChallenge(ctx, page) {
		switch outcome := p.recovery.EnsureLogin(ctx, page); outcome {
		case loginSucceeded:
			if err := page.Navigate(ctx, target, browser.NavigateOptions{
				MaxAttempts:    p.cfg.NavigationAttempts,
				AttemptTimeout: p.cfg.NavigationTimeout,
			}); err != nil {
				return nil, models.NewScrapeError(models.ErrCodeNavigation, "post-login navigation failed", err)
			}
		case loginTimedOut, loginFailed:
			slog.Warn("taobao login unresolved, extracting best-effort",
				"url", target, "outcome", outcome, "code", outcome.errorCode())
		}
	} else {
		slog.Warn("taobao challenge unresolved, extracting best-effort",
			"url", target, "code", models.ErrCodeChallenge)
	}

	pageHTML, err := page.HTML(ctx)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeNavigation, "failed to read product page", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeMalformed, "failed to parse product page HTML", err)
	}

	rules := productRules
	rules.BaseURL = baseURLOf(target)
	product := extract.ProductFromDOM(doc, pageHTML, target, rules)

	if id := itemIDOf(target); id != "" {
		product.Barcode = id
	}

	return extract.FinishProduct(product, rawURL), nil
}

func siteProfile() browser.SiteProfile {
	return browser.SiteProfile{AcceptLanguage: "zh-CN,zh;q=0.9,en;q=0.5"}
}

func baseURLOf(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "https://item.taobao.com"
	}
	return u.Scheme + "://" + u.Host
}

func detailURL(id string) string {
	return "https://item.taobao.com/item.htm?id=" + id
}

func placeholderName(id string) string {
	return "Taobao item " + id
}

// itemIDOf reads the id query parameter from a detail URL.
func itemIDOf(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	id := u.Query().Get("id")
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return ""
	}
	return id
}

func pageFromURL(target string) int {
	u, err := url.Parse(target)
	if err != nil {
		return 1
	}
	// Search pagination travels as s=<offset> in 44-item pages on the
	// classic frontend and page=<n> on the new one.
	if n, err := strconv.Atoi(u.Query().Get("page")); err == nil && n > 0 {
		return n
	}
	if off, err := strconv.Atoi(u.Query().Get("s")); err == nil && off > 0 {
		return off/44 + 1
	}
	return 1
}
