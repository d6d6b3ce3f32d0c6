package taobao

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/harvest/browser"
	"github.com/use-agent/harvest/models"
)

// scriptedPage drives the recovery state machines without a browser.
// urlFn/textFn receive a 1-based call counter so a test can change the
// page state between polls.
type scriptedPage struct {
	urlFn     func(call int) string
	textFn    func(call int) string
	selectors map[string]bool
	cookies   []*proto.NetworkCookie
	cookieErr error
	navErr    error

	urlCalls  int
	textCalls int
	navigated []string
	clickHits int
}

func (s *scriptedPage) Has(_ context.Context, sel string) bool {
	return s.selectors[sel]
}

func (s *scriptedPage) Text(context.Context) string {
	s.textCalls++
	if s.textFn == nil {
		return ""
	}
	return s.textFn(s.textCalls)
}

func (s *scriptedPage) URL(context.Context) string {
	s.urlCalls++
	if s.urlFn == nil {
		return ""
	}
	return s.urlFn(s.urlCalls)
}

func (s *scriptedPage) Cookies(context.Context) ([]*proto.NetworkCookie, error) {
	return s.cookies, s.cookieErr
}

func (s *scriptedPage) Navigate(_ context.Context, url string, _ browser.NavigateOptions) error {
	s.navigated = append(s.navigated, url)
	return s.navErr
}

func (s *scriptedPage) ClickFirst(context.Context, []string, string) bool {
	s.clickHits++
	return true
}

func constURL(u string) func(int) string  { return func(int) string { return u } }
func constText(t string) func(int) string { return func(int) string { return t } }

func authCookies(names ...string) []*proto.NetworkCookie {
	out := make([]*proto.NetworkCookie, 0, len(names))
	for _, n := range names {
		out = append(out, &proto.NetworkCookie{Name: n, Value: "v"})
	}
	return out
}

// fastHandler keeps every ceiling short enough for a unit test.
func fastHandler() challengeHandler {
	return challengeHandler{
		grace:   20 * time.Millisecond,
		poll:    5 * time.Millisecond,
		maxWait: 150 * time.Millisecond,
	}
}

func TestClearChallenge_CleanPage(t *testing.T) {
	page := &scriptedPage{}
	if !fastHandler().ClearChallenge(context.Background(), page) {
		t.Error("clean page reported as blocked")
	}
}

func TestClearChallenge_ResolvedDuringGrace(t *testing.T) {
	page := &scriptedPage{
		textFn: func(call int) string {
			if call == 1 {
				return "请完成安全验证"
			}
			return "item page content"
		},
	}
	if !fastHandler().ClearChallenge(context.Background(), page) {
		t.Error("challenge cleared during grace still reported as blocked")
	}
	if page.textCalls < 2 {
		t.Errorf("textCalls = %d, want a re-check after the grace period", page.textCalls)
	}
}

func TestClearChallenge_StillBlocked(t *testing.T) {
	page := &scriptedPage{selectors: map[string]bool{"#nocaptcha": true}}
	if fastHandler().ClearChallenge(context.Background(), page) {
		t.Error("persistent challenge reported as cleared")
	}
}

func TestClearChallenge_ContextCanceledDuringGrace(t *testing.T) {
	// Default 10s grace; the context must cut the wait short.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	page := &scriptedPage{textFn: constText("安全验证")}
	start := time.Now()
	if (challengeHandler{}).ClearChallenge(ctx, page) {
		t.Error("canceled wait reported as cleared")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("grace wait ignored the context, took %v", elapsed)
	}
}

func TestEnsureLogin_NotNeeded(t *testing.T) {
	page := &scriptedPage{
		urlFn:  constURL("https://item.taobao.com/item.htm?id=123"),
		textFn: constText("item page content"),
	}
	if got := fastHandler().EnsureLogin(context.Background(), page); got != loginNotNeeded {
		t.Errorf("EnsureLogin = %v, want %v", got, loginNotNeeded)
	}
	if len(page.navigated) != 0 {
		t.Errorf("navigated %v, want no navigation without a login wall", page.navigated)
	}
}

func TestEnsureLogin_EntryNavigationFails(t *testing.T) {
	page := &scriptedPage{
		textFn: constText("扫码登录"),
		navErr: errors.New("net::ERR_CONNECTION_RESET"),
	}
	if got := fastHandler().EnsureLogin(context.Background(), page); got != loginFailed {
		t.Errorf("EnsureLogin = %v, want %v", got, loginFailed)
	}
	if len(page.navigated) != 1 || page.navigated[0] != loginEntryURL {
		t.Errorf("navigated %v, want exactly the login entry", page.navigated)
	}
}

func TestEnsureLogin_SucceedsOnRedirectAway(t *testing.T) {
	page := &scriptedPage{
		urlFn: func(call int) string {
			if call <= 2 {
				return loginEntryURL
			}
			return "https://www.taobao.com/"
		},
	}
	if got := fastHandler().EnsureLogin(context.Background(), page); got != loginSucceeded {
		t.Errorf("EnsureLogin = %v, want %v", got, loginSucceeded)
	}
	if page.clickHits != 1 {
		t.Errorf("clickHits = %d, want the QR affordance surfaced once", page.clickHits)
	}
}

func TestEnsureLogin_SucceedsOnAuthCookies(t *testing.T) {
	// URL keeps the word "login" (blocks the redirect condition) but is
	// not the login host; the prompt text disappears after the wall.
	page := &scriptedPage{
		urlFn: constURL("https://www.taobao.com/?from=login"),
		textFn: func(call int) string {
			if call == 1 {
				return "亲，请登录"
			}
			return "首页"
		},
		cookies: authCookies("_tb_token_", "cookie2", "unb"),
	}
	if got := fastHandler().EnsureLogin(context.Background(), page); got != loginSucceeded {
		t.Errorf("EnsureLogin = %v, want %v", got, loginSucceeded)
	}
}

func TestEnsureLogin_SucceedsOnDOMMarker(t *testing.T) {
	page := &scriptedPage{
		urlFn:     constURL(loginEntryURL),
		textFn:    constText("扫码登录"),
		selectors: map[string]bool{".site-nav-login-info-nick": true},
	}
	if got := fastHandler().EnsureLogin(context.Background(), page); got != loginSucceeded {
		t.Errorf("EnsureLogin = %v, want %v", got, loginSucceeded)
	}
}

func TestEnsureLogin_TimesOut(t *testing.T) {
	page := &scriptedPage{
		urlFn:  constURL(loginEntryURL),
		textFn: constText("扫码登录"),
	}
	start := time.Now()
	if got := fastHandler().EnsureLogin(context.Background(), page); got != loginTimedOut {
		t.Errorf("EnsureLogin = %v, want %v", got, loginTimedOut)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("poll loop overran its ceiling, took %v", elapsed)
	}
}

func TestEnsureLogin_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	h := challengeHandler{poll: 5 * time.Millisecond, maxWait: time.Minute}
	page := &scriptedPage{
		urlFn:  constURL(loginEntryURL),
		textFn: constText("扫码登录"),
	}
	start := time.Now()
	if got := h.EnsureLogin(ctx, page); got != loginTimedOut {
		t.Errorf("EnsureLogin = %v, want %v", got, loginTimedOut)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("poll loop ignored the context, took %v", elapsed)
	}
}

func TestLoggedIn_CookieThreshold(t *testing.T) {
	h := fastHandler()
	tests := []struct {
		name    string
		cookies []*proto.NetworkCookie
		text    string
		want    bool
	}{
		{"three auth cookies", authCookies("_tb_token_", "cookie2", "unb"), "首页", true},
		{"two auth cookies", authCookies("_tb_token_", "cookie2"), "首页", false},
		{"unknown cookies ignored", authCookies("isg", "l", "tfstk"), "首页", false},
		{"empty values ignored", []*proto.NetworkCookie{
			{Name: "_tb_token_", Value: "v"},
			{Name: "cookie2", Value: ""},
			{Name: "unb", Value: "v"},
		}, "首页", false},
		{"login prompt still showing", authCookies("_tb_token_", "cookie2", "unb"), "扫码登录", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &scriptedPage{
				urlFn:   constURL("https://www.taobao.com/?from=login"),
				textFn:  constText(tt.text),
				cookies: tt.cookies,
			}
			if got := h.loggedIn(context.Background(), page); got != tt.want {
				t.Errorf("loggedIn = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoginOutcome_Strings(t *testing.T) {
	tests := []struct {
		outcome loginOutcome
		want    string
	}{
		{loginNotNeeded, "not_needed"},
		{loginSucceeded, "succeeded"},
		{loginTimedOut, "timed_out"},
		{loginFailed, "failed"},
	}
	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.outcome, got, tt.want)
		}
	}
}

func TestLoginOutcome_ErrorCodes(t *testing.T) {
	if got := loginTimedOut.errorCode(); got != models.ErrCodeLoginTimeout {
		t.Errorf("timed-out code = %q, want %q", got, models.ErrCodeLoginTimeout)
	}
	if got := loginFailed.errorCode(); got != models.ErrCodeLoginRequired {
		t.Errorf("failed code = %q, want %q", got, models.ErrCodeLoginRequired)
	}
}
