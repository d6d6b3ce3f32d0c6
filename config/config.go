package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Broker    BrokerConfig
	Scraper   ScraperConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls locally launched Rod browser instances.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for all browser traffic.
	Proxy string
}

// BrokerConfig controls the remote browser-session broker.
type BrokerConfig struct {
	// URL is the broker API base URL. Empty disables the remote path.
	URL string

	// APIKey authenticates broker requests.
	APIKey string

	// PreferRemote makes sessions remote-first when a broker is
	// configured. Local launch remains the fallback either way.
	PreferRemote bool // default: false

	// RequestTimeout is the deadline for broker API calls.
	RequestTimeout time.Duration // default: 15s
}

// ScraperConfig controls scraping behavior.
type ScraperConfig struct {
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout time.Duration // default: 60s

	// MaxTimeout is the maximum allowed timeout from the client.
	MaxTimeout time.Duration // default: 300s

	// NavigationTimeout is the max time for a single navigation attempt.
	NavigationTimeout time.Duration // default: 30s

	// NavigationAttempts is the retry budget for transient navigation failures.
	NavigationAttempts int // default: 3

	// EnrichmentLimit caps the number of detail-page visits in the
	// brand enrichment pass.
	EnrichmentLimit int // default: 20

	// EnrichmentDelay is the enforced pause between enrichment visits.
	EnrichmentDelay time.Duration // default: 2s
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// CacheConfig controls the scrape result cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached results.
	MaxEntries int // default: 500
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("HARVEST_HOST", "0.0.0.0"),
			Port: envIntOr("HARVEST_PORT", 8080),
			Mode: envOr("HARVEST_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("HARVEST_HEADLESS", true),
			NoSandbox:  envBoolOr("HARVEST_NO_SANDBOX", false),
			BrowserBin: os.Getenv("HARVEST_BROWSER_BIN"),
			Proxy:      os.Getenv("HARVEST_PROXY"),
		},
		Broker: BrokerConfig{
			URL:            os.Getenv("HARVEST_BROKER_URL"),
			APIKey:         os.Getenv("HARVEST_BROKER_API_KEY"),
			PreferRemote:   envBoolOr("HARVEST_PREFER_REMOTE", false),
			RequestTimeout: envDurationOr("HARVEST_BROKER_TIMEOUT", 15*time.Second),
		},
		Scraper: ScraperConfig{
			DefaultTimeout:     envDurationOr("HARVEST_DEFAULT_TIMEOUT", 60*time.Second),
			MaxTimeout:         envDurationOr("HARVEST_MAX_TIMEOUT", 300*time.Second),
			NavigationTimeout:  envDurationOr("HARVEST_NAV_TIMEOUT", 30*time.Second),
			NavigationAttempts: envIntOr("HARVEST_NAV_ATTEMPTS", 3),
			EnrichmentLimit:    envIntOr("HARVEST_ENRICH_LIMIT", 20),
			EnrichmentDelay:    envDurationOr("HARVEST_ENRICH_DELAY", 2*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("HARVEST_AUTH_ENABLED", true),
			APIKeys: envSliceOr("HARVEST_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("HARVEST_RATE_RPS", 2.0),
			Burst:             envIntOr("HARVEST_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("HARVEST_CACHE_MAX_ENTRIES", 500),
		},
		Log: LogConfig{
			Level:  envOr("HARVEST_LOG_LEVEL", "info"),
			Format: envOr("HARVEST_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
