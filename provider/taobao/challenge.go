package taobao

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/harvest/browser"
	"github.com/use-agent/harvest/models"
)

// Timing defaults for the challenge and login state machines. Every
// wait is context-bounded on top of these ceilings.
const (
	challengeGrace = 10 * time.Second
	loginPoll      = 3 * time.Second
	loginMaxWait   = 2 * time.Minute

	// loginCookieThreshold is how many known auth cookies must be
	// present before the cookie check counts as logged in.
	loginCookieThreshold = 3
)

const loginEntryURL = "https://login.taobao.com/member/login.jhtml"

// qrTextMarker is the text-content fallback for the QR affordance.
const qrTextMarker = "扫码登录"

// challengeTextMarkers appear in the body of Taobao's bot interstitials.
var challengeTextMarkers = []string{
	"亲，请拖动下方滑块完成验证",
	"请完成安全验证",
	"安全验证",
	"访问受限",
	"captcha",
}

// challengeSelectors are the DOM containers of the slider/captcha widgets.
var challengeSelectors = []string{
	"#nc_1_wrapper",
	".nc-container",
	"#nocaptcha",
	`iframe[src*="punish"]`,
	"#baxia-dialog-content",
}

// loginTextMarkers appear on the login wall.
var loginTextMarkers = []string{
	"扫码登录",
	"密码登录",
	"手机号登录",
	"亲，请登录",
}

// qrSelectors locate the QR-login affordance, tried in order before
// the text-content fallback.
var qrSelectors = []string{
	".icon-qrcode",
	"#J_QRCodeLogin",
	".login-switch",
	".qrcode-login-switch",
}

// loggedInSelectors mark an authenticated session in the page chrome.
var loggedInSelectors = []string{
	".site-nav-login-info-nick",
	".site-nav-user",
	`[class*="memberNick"]`,
}

// authCookieNames are the cookies Taobao sets on successful login.
var authCookieNames = map[string]struct{}{
	"_tb_token_": {},
	"cookie2":    {},
	"unb":        {},
	"sn":         {},
	"uc1":        {},
	"uc3":        {},
	"sg":         {},
	"skt":        {},
}

// loginOutcome is the terminal state of the manual-login flow.
type loginOutcome int

const (
	loginNotNeeded loginOutcome = iota
	loginSucceeded
	loginTimedOut
	loginFailed
)

func (o loginOutcome) String() string {
	switch o {
	case loginNotNeeded:
		return "not_needed"
	case loginSucceeded:
		return "succeeded"
	case loginTimedOut:
		return "timed_out"
	default:
		return "failed"
	}
}

// errorCode maps an unresolved outcome onto the error taxonomy for
// best-effort logging. Succeeded and not-needed outcomes carry no code.
func (o loginOutcome) errorCode() string {
	if o == loginTimedOut {
		return models.ErrCodeLoginTimeout
	}
	return models.ErrCodeLoginRequired
}

// recoveryPage is the slice of the page surface the recovery state
// machines need. *browser.Page satisfies it; tests script a fake.
type recoveryPage interface {
	Has(ctx context.Context, selector string) bool
	Text(ctx context.Context) string
	URL(ctx context.Context) string
	Cookies(ctx context.Context) ([]*proto.NetworkCookie, error)
	Navigate(ctx context.Context, url string, opts browser.NavigateOptions) error
	ClickFirst(ctx context.Context, selectors []string, textMarker string) bool
}

// challengeHandler drives the two Taobao recovery state machines:
// challenge (Normal → ChallengeDetected → ResolvedByProvider |
// StillBlocked) and login (Normal → LoginRequired → LoginSucceeded |
// LoginTimedOut | LoginFailed). Zero-value timings mean the package
// defaults.
type challengeHandler struct {
	grace   time.Duration
	poll    time.Duration
	maxWait time.Duration
}

func (h challengeHandler) graceOrDefault() time.Duration {
	if h.grace > 0 {
		return h.grace
	}
	return challengeGrace
}

func (h challengeHandler) pollOrDefault() time.Duration {
	if h.poll > 0 {
		return h.poll
	}
	return loginPoll
}

func (h challengeHandler) maxWaitOrDefault() time.Duration {
	if h.maxWait > 0 {
		return h.maxWait
	}
	return loginMaxWait
}

// ClearChallenge detects a bot interstitial and gives the session
// provider's automated solving one grace period to clear it. Returns
// true when the page is usable; false means StillBlocked — the caller
// reports a best-effort result, never a crash.
func (h challengeHandler) ClearChallenge(ctx context.Context, page recoveryPage) bool {
	if !h.challengePresent(ctx, page) {
		return true
	}
	slog.Warn("bot challenge detected, waiting for automated solving",
		"grace", h.graceOrDefault())

	select {
	case <-time.After(h.graceOrDefault()):
	case <-ctx.Done():
		return false
	}

	if h.challengePresent(ctx, page) {
		slog.Warn("bot challenge still present after grace period")
		return false
	}
	return true
}

func (h challengeHandler) challengePresent(ctx context.Context, page recoveryPage) bool {
	for _, sel := range challengeSelectors {
		if page.Has(ctx, sel) {
			return true
		}
	}
	text := page.Text(ctx)
	for _, marker := range challengeTextMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// EnsureLogin checks for a login wall and, when present, drives the
// manual QR-login flow: open the login entry, surface the QR affordance,
// then poll until a success condition holds or the ceiling expires.
// All outcomes are non-fatal; the scrape proceeds best-effort.
func (h challengeHandler) EnsureLogin(ctx context.Context, page recoveryPage) loginOutcome {
	if !h.loginPresent(ctx, page) {
		return loginNotNeeded
	}
	slog.Info("login wall detected, starting manual QR login flow")

	if err := page.Navigate(ctx, loginEntryURL, browser.NavigateOptions{MaxAttempts: 1}); err != nil {
		slog.Warn("login entry navigation failed", "error", err)
		return loginFailed
	}

	// Best-effort: most login pages already default to the QR pane.
	// Absent affordances cost a probe each, never a wait.
	page.ClickFirst(ctx, qrSelectors, qrTextMarker)

	deadline := time.Now().Add(h.maxWaitOrDefault())
	ticker := time.NewTicker(h.pollOrDefault())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return loginTimedOut
		case <-ticker.C:
		}
		if time.Now().After(deadline) {
			slog.Warn("manual login timed out, proceeding best-effort")
			return loginTimedOut
		}
		if h.loggedIn(ctx, page) {
			slog.Info("manual login completed")
			return loginSucceeded
		}
	}
}

// loggedIn evaluates the three success conditions; the first satisfied
// one wins.
func (h challengeHandler) loggedIn(ctx context.Context, page recoveryPage) bool {
	// 1. Navigated away from the login URL.
	if cur := page.URL(ctx); cur != "" && !strings.Contains(cur, "login") {
		return true
	}

	// 2. Enough auth cookies and no login prompt text left.
	if cookies, err := page.Cookies(ctx); err == nil {
		count := 0
		for _, c := range cookies {
			if _, ok := authCookieNames[c.Name]; ok && c.Value != "" {
				count++
			}
		}
		if count >= loginCookieThreshold && !h.loginPresent(ctx, page) {
			return true
		}
	}

	// 3. Logged-in-user marker in the page chrome.
	for _, sel := range loggedInSelectors {
		if page.Has(ctx, sel) {
			return true
		}
	}
	return false
}

func (h challengeHandler) loginPresent(ctx context.Context, page recoveryPage) bool {
	if strings.Contains(page.URL(ctx), "login.taobao.com") {
		return true
	}
	text := page.Text(ctx)
	for _, marker := range loginTextMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
