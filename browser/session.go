package browser

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"

	"github.com/use-agent/harvest/config"
	"github.com/use-agent/harvest/models"
)

// Options selects how a session is acquired.
type Options struct {
	// Stealth enables fingerprint-evasion on every page of the session.
	Stealth bool

	// Remote prefers a broker-hosted session when a broker is configured.
	// Quota rejections from the broker silently downgrade to local.
	Remote bool
}

// Session is a handle to one running browser, local or broker-hosted.
// Independent pages from the same session may be used concurrently;
// a single page may not.
type Session struct {
	Browser *rod.Browser

	remote  bool
	stealth bool
	launch  *launcher.Launcher  // nil for remote sessions
	cancel  context.CancelFunc  // drops the CDP connection, remote only
}

// Remote reports whether the session is hosted by the broker.
func (s *Session) Remote() bool { return s.remote }

// Stealth reports whether pages should carry the stealth script.
func (s *Session) Stealth() bool { return s.stealth }

// Manager acquires and releases browser sessions. It is safe for
// concurrent use; each Acquire returns an independent session.
type Manager struct {
	browserCfg config.BrowserConfig
	broker     *BrokerClient
}

// NewManager creates a session manager. The broker client is only built
// when a broker URL is configured.
func NewManager(browserCfg config.BrowserConfig, brokerCfg config.BrokerConfig) *Manager {
	m := &Manager{browserCfg: browserCfg}
	if brokerCfg.URL != "" {
		m.broker = NewBrokerClient(brokerCfg)
	}
	return m
}

// Acquire returns a running browser session.
//
// The remote path is only attempted when requested AND a broker is
// configured. A broker quota rejection downgrades to a local launch with
// a logged warning; any other broker failure is fatal and propagates as
// a typed SESSION_CREATE_FAILED error.
func (m *Manager) Acquire(ctx context.Context, opts Options) (*Session, error) {
	if opts.Remote && m.broker != nil {
		sess, err := m.acquireRemote(ctx, opts)
		if err == nil {
			return sess, nil
		}
		var quota *QuotaError
		if !errors.As(err, &quota) {
			return nil, models.NewScrapeError(
				models.ErrCodeSessionCreate,
				"remote session creation failed",
				err,
			)
		}
		slog.Warn("session broker quota exceeded, downgrading to local browser",
			"error", err)
	}
	return m.acquireLocal(opts)
}

// Release tears a session down. Remote sessions are disconnected only —
// cancelling the session context drops the CDP websocket and the broker
// tears the hosted browser down itself. Local sessions are closed and
// their launcher cleaned up so no Chrome process outlives the call.
func (m *Manager) Release(s *Session) {
	if s == nil || s.Browser == nil {
		return
	}
	if s.remote {
		if s.cancel != nil {
			s.cancel()
		}
		return
	}
	if err := s.Browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	if s.launch != nil {
		s.launch.Kill()
		s.launch.Cleanup()
	}
}

// acquireRemote creates a broker-hosted session and connects rod to its
// CDP endpoint.
func (m *Manager) acquireRemote(ctx context.Context, opts Options) (*Session, error) {
	remote, err := m.broker.CreateSession(ctx, opts.Stealth)
	if err != nil {
		return nil, err
	}

	// The session owns its connection lifetime: binding the per-call ctx
	// here would sever the websocket when the first scrape's deadline
	// fires. A watchdog still honours ctx for the handshake itself.
	sessCtx, cancel := context.WithCancel(context.Background())
	browser := rod.New().ControlURL(remote.ConnectURL).Context(sessCtx)

	handshakeDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-handshakeDone:
		}
	}()
	err = browser.Connect()
	close(handshakeDone)
	if err != nil {
		cancel()
		return nil, models.NewScrapeError(
			models.ErrCodeSessionCreate,
			"failed to connect to broker session",
			err,
		)
	}
	slog.Info("remote browser session connected", "session_id", remote.ID)

	return &Session{Browser: browser, remote: true, stealth: opts.Stealth, cancel: cancel}, nil
}

// acquireLocal launches a headless browser on this host.
func (m *Manager) acquireLocal(opts Options) (*Session, error) {
	l := launcher.New().
		Headless(m.browserCfg.Headless).
		NoSandbox(m.browserCfg.NoSandbox)

	if m.browserCfg.BrowserBin != "" {
		l = l.Bin(m.browserCfg.BrowserBin)
	}
	if m.browserCfg.Proxy != "" {
		l = l.Proxy(m.browserCfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeSessionCreate,
			"failed to launch browser",
			err,
		)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeSessionCreate,
			"failed to connect to browser",
			err,
		)
	}
	slog.Info("local browser launched", "headless", m.browserCfg.Headless)

	return &Session{
		Browser: browser,
		stealth: opts.Stealth,
		launch:  l,
	}, nil
}
