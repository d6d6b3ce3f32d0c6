package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	tls2 "github.com/refraction-networking/utls"

	"github.com/use-agent/harvest/config"
)

// QuotaError is returned by the broker client when the remote provider
// rejects session creation for rate/quota reasons. The session manager
// downgrades to a local launch on this error instead of failing the scrape.
type QuotaError struct {
	Status int
	Body   string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("session broker quota exceeded (HTTP %d): %s", e.Status, e.Body)
}

// RemoteSession describes a session created on the broker.
type RemoteSession struct {
	ID string `json:"id"`

	// ConnectURL is the CDP websocket endpoint of the hosted browser.
	ConnectURL string `json:"connect_url"`
}

// createSessionRequest is the broker's session-creation payload.
type createSessionRequest struct {
	Stealth bool `json:"stealth"`
}

// BrokerClient talks to the remote browser-session broker.
//
// The broker endpoint sits behind the same anti-bot edge as the scraped
// sites, so the client dials TLS with a Chrome fingerprint (utls) rather
// than the Go default.
type BrokerClient struct {
	cfg    config.BrokerConfig
	client *http.Client
}

// NewBrokerClient creates a broker client for the configured endpoint.
func NewBrokerClient(cfg config.BrokerConfig) *BrokerClient {
	transport := &http.Transport{
		DialTLSContext: dialTLSChrome,
	}
	return &BrokerClient{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
	}
}

// CreateSession asks the broker for a stealth-enabled hosted browser and
// returns its CDP connect endpoint.
//
// Quota/limit rejections (HTTP 429, or a limit error code in the body)
// surface as *QuotaError; everything else is a plain error.
func (b *BrokerClient) CreateSession(ctx context.Context, stealth bool) (*RemoteSession, error) {
	payload, err := json.Marshal(createSessionRequest{Stealth: stealth})
	if err != nil {
		return nil, fmt.Errorf("broker: encode request: %w", err)
	}

	endpoint := strings.TrimRight(b.cfg.URL, "/") + "/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("broker: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("broker: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("broker: read response: %w", err)
	}

	if isQuotaResponse(resp.StatusCode, body) {
		return nil, &QuotaError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("broker: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var sess RemoteSession
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, fmt.Errorf("broker: decode response: %w", err)
	}
	if sess.ConnectURL == "" {
		return nil, fmt.Errorf("broker: response missing connect_url")
	}
	return &sess, nil
}

// isQuotaResponse recognises the broker's quota/limit rejections. Brokers
// differ in how they report these, so both the status code and well-known
// body markers are checked.
func isQuotaResponse(status int, body []byte) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	if status < 400 {
		return false
	}
	lower := strings.ToLower(string(body))
	for _, marker := range []string{"session limit", "quota", "too many sessions", "rate limit"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint via utls.
func dialTLSChrome(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{}
	rawConn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{
		ServerName:         host,
		InsecureSkipVerify: false,
	}, tls2.HelloChrome_Auto)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}
