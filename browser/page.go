package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// desktopUA is the user agent presented to every scraped site.
const desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// backoffStep is the per-attempt navigation backoff unit (attempt×5s).
const backoffStep = 5 * time.Second

// SiteProfile carries the per-site fingerprint settings a page is
// configured with before any navigation happens.
type SiteProfile struct {
	// AcceptLanguage is the locale header for the target site,
	// e.g. "en-US,en;q=0.9" or "zh-CN,zh;q=0.9".
	AcceptLanguage string

	// ExtraHeaders are additional headers sent with every request.
	ExtraHeaders map[string]string
}

// maskHeadlessJS neutralises the headless-detection signals a bare
// browser leaks: the automation flag, the empty plugin list, and the
// empty language list. Installed before first navigation.
const maskHeadlessJS = `() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	Object.defineProperty(navigator, 'plugins', {
		get: () => [{ name: 'Chrome PDF Plugin' }, { name: 'Chrome PDF Viewer' }, { name: 'Native Client' }],
	});
	Object.defineProperty(navigator, 'languages', {
		get: () => ['en-US', 'en'],
	});
	window.chrome = window.chrome || { runtime: {} };
}`

// NavigateOptions control the retry behaviour of Page.Navigate.
type NavigateOptions struct {
	// MaxAttempts is the navigation retry budget. Default: 3.
	MaxAttempts int

	// AttemptTimeout bounds a single attempt. Default: 30s.
	AttemptTimeout time.Duration

	// Referer overrides the Referer of the initial document request.
	Referer string
}

func (o *NavigateOptions) defaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 30 * time.Second
	}
}

// Page wraps one browser tab with fingerprint-evasion settings applied
// and navigation-with-retry semantics. Not safe for concurrent use.
type Page struct {
	page    *rod.Page
	session *Session
	profile SiteProfile

	closeOnce sync.Once
}

// NewPage opens a tab on the session and applies the site profile:
// desktop user agent, 1920×1080 viewport, locale headers, and the
// headless-masking script (plus the stealth bundle when the session was
// acquired with the stealth option).
func NewPage(sess *Session, profile SiteProfile) (*Page, error) {
	p := &Page{session: sess, profile: profile}
	page, err := p.prepare()
	if err != nil {
		return nil, err
	}
	p.page = page
	return p, nil
}

// prepare creates a raw tab and installs all pre-navigation settings.
// Also used to rebuild the tab between navigation retries.
func (p *Page) prepare() (*rod.Page, error) {
	page, err := p.session.Browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if p.session.Stealth() {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}
	if _, err := page.EvalOnNewDocument(maskHeadlessJS); err != nil {
		slog.Warn("headless mask injection failed", "error", err)
	}

	if err := (proto.NetworkSetUserAgentOverride{
		UserAgent:      desktopUA,
		AcceptLanguage: p.profile.AcceptLanguage,
	}).Call(page); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("set user agent: %w", err)
	}

	if err := (&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}).Call(page); err != nil {
		slog.Warn("viewport override failed", "error", err)
	}

	headers := make(map[string]string, len(p.profile.ExtraHeaders)+1)
	if p.profile.AcceptLanguage != "" {
		headers["Accept-Language"] = p.profile.AcceptLanguage
	}
	for k, v := range p.profile.ExtraHeaders {
		headers[k] = v
	}
	if len(headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(page)
	}

	return page, nil
}

// Navigate loads url, retrying transient network failures up to
// opts.MaxAttempts times with an attempt×5s backoff and a fresh tab per
// retry. Non-network errors fail immediately. The wait strategy
// escalates across attempts (network idle → DOM stable → load event)
// because some sites never reach full network idle.
func (p *Page) Navigate(ctx context.Context, url string, opts NavigateOptions) error {
	opts.defaults()

	return retryNavigate(ctx, opts.MaxAttempts, backoffStep,
		func(attempt int) error {
			return p.navigateOnce(ctx, url, opts, attempt)
		},
		p.rebuild,
	)
}

// navigateOnce performs a single navigation attempt with its own deadline.
func (p *Page) navigateOnce(ctx context.Context, url string, opts NavigateOptions, attempt int) error {
	attemptCtx, cancel := context.WithTimeout(ctx, opts.AttemptTimeout)
	defer cancel()

	page := p.page.Context(attemptCtx)

	// Idle waiters must be registered before the navigation starts or
	// in-flight requests are missed and the wait returns instantly.
	var waitIdle func()
	if attempt == 1 {
		waitIdle = page.WaitRequestIdle(300*time.Millisecond, nil, nil, nil)
	}

	nav := proto.PageNavigate{URL: url}
	if opts.Referer != "" {
		nav.Referrer = opts.Referer
	}
	res, err := nav.Call(page)
	if err != nil {
		return err
	}
	if res.ErrorText != "" {
		return fmt.Errorf("navigation failed: %s", res.ErrorText)
	}

	switch attempt {
	case 1:
		waitIdle()
	case 2:
		if err := page.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
			slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
				"url", url, "error", err)
		}
	default:
		if err := page.WaitLoad(); err != nil {
			return err
		}
	}
	return attemptCtx.Err()
}

// rebuild replaces the underlying tab. Called between retries because a
// tab that just failed a navigation can be left in a broken renderer
// state.
func (p *Page) rebuild() error {
	old := p.page
	fresh, err := p.prepare()
	if err != nil {
		return err
	}
	p.page = fresh
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// retryNavigate drives the attempt loop. attempt is called with the
// 1-based attempt number; transient network failures wait attempt×step
// and retry on a rebuilt page, anything else fails immediately.
func retryNavigate(ctx context.Context, maxAttempts int, step time.Duration, attempt func(n int) error, rebuild func() error) error {
	var lastErr error
	for n := 1; n <= maxAttempts; n++ {
		lastErr = attempt(n)
		if lastErr == nil {
			return nil
		}
		if !isTransientNavError(lastErr) {
			return lastErr
		}
		if n == maxAttempts {
			break
		}

		slog.Warn("transient navigation failure, backing off",
			"attempt", n, "max_attempts", maxAttempts, "error", lastErr)
		select {
		case <-time.After(time.Duration(n) * step):
		case <-ctx.Done():
			return ctx.Err()
		}
		if rebuild != nil {
			if err := rebuild(); err != nil {
				return fmt.Errorf("rebuild page before retry: %w", err)
			}
		}
	}
	return fmt.Errorf("all %d navigation attempts failed: %w", maxAttempts, lastErr)
}

// isTransientNavError recognises the network-class failures worth
// retrying: connection resets, empty responses, DNS hiccups. Context
// expiry and renderer errors are not retryable.
func isTransientNavError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"net::err_connection_reset",
		"net::err_connection_closed",
		"net::err_connection_refused",
		"net::err_empty_response",
		"net::err_name_not_resolved",
		"net::err_network_changed",
		"net::err_timed_out",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// HTML returns the current document's outer HTML.
func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

// Text returns the visible body text, empty on any failure. Used for
// marker checks where a missing body simply means "no match".
func (p *Page) Text(ctx context.Context) string {
	body, err := p.page.Context(ctx).Element("body")
	if err != nil {
		return ""
	}
	text, err := body.Text()
	if err != nil {
		return ""
	}
	return text
}

// Eval evaluates a JS function on the page and returns its value.
func (p *Page) Eval(ctx context.Context, js string) (gson.JSON, error) {
	res, err := p.page.Context(ctx).Eval(js)
	if err != nil {
		return gson.New(nil), err
	}
	return res.Value, nil
}

// Has reports whether any element matches the selector right now.
func (p *Page) Has(ctx context.Context, selector string) bool {
	has, _, err := p.page.Context(ctx).Has(selector)
	return err == nil && has
}

// clickTimeout bounds one element lookup and click. Rod's Element is a
// waiter that retries until the deadline, so every lookup here carries
// its own short ceiling instead of the caller's scrape deadline.
const clickTimeout = 2 * time.Second

// ClickFirst clicks the first present selector. When none of the
// candidates exist and textMarker is non-empty, an element whose text
// matches the marker is tried instead. Absent elements cost one Has
// probe each, never a wait. Reports whether anything was clicked.
func (p *Page) ClickFirst(ctx context.Context, selectors []string, textMarker string) bool {
	rp := p.page.Context(ctx)
	for _, sel := range selectors {
		if !p.Has(ctx, sel) {
			continue
		}
		el, err := rp.Timeout(clickTimeout).Element(sel)
		if err != nil || el == nil {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err == nil {
			return true
		}
	}
	if textMarker == "" || !strings.Contains(p.Text(ctx), textMarker) {
		return false
	}
	el, err := rp.Timeout(clickTimeout).ElementR("a, div, span", textMarker)
	if err != nil || el == nil {
		return false
	}
	return el.Click(proto.InputMouseButtonLeft, 1) == nil
}

// URL returns the page's current location, empty on failure.
func (p *Page) URL(ctx context.Context) string {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Cookies returns all cookies visible to the page.
func (p *Page) Cookies(ctx context.Context) ([]*proto.NetworkCookie, error) {
	return p.page.Context(ctx).Cookies(nil)
}

// Rod exposes the underlying rod page for site-specific interactions
// (clicking login affordances, element probing).
func (p *Page) Rod() *rod.Page { return p.page }

// Close tears the tab down. Idempotent.
func (p *Page) Close() {
	p.closeOnce.Do(func() {
		if p.page != nil {
			if err := p.page.Close(); err != nil {
				slog.Debug("page close failed", "error", err)
			}
		}
	})
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
