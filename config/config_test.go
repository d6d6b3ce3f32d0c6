package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.Mode != "release" {
		t.Errorf("mode = %q", cfg.Server.Mode)
	}
	if !cfg.Browser.Headless {
		t.Error("headless should default to true")
	}
	if cfg.Broker.PreferRemote {
		t.Error("remote sessions should be opt-in")
	}
	if cfg.Scraper.DefaultTimeout != 60*time.Second {
		t.Errorf("default timeout = %v", cfg.Scraper.DefaultTimeout)
	}
	if cfg.Scraper.MaxTimeout != 300*time.Second {
		t.Errorf("max timeout = %v", cfg.Scraper.MaxTimeout)
	}
	if cfg.Scraper.NavigationAttempts != 3 {
		t.Errorf("navigation attempts = %d", cfg.Scraper.NavigationAttempts)
	}
	if cfg.Scraper.EnrichmentLimit != 20 {
		t.Errorf("enrichment limit = %d", cfg.Scraper.EnrichmentLimit)
	}
	if !cfg.Auth.Enabled {
		t.Error("auth should default to enabled")
	}
	if cfg.Cache.MaxEntries != 500 {
		t.Errorf("cache max entries = %d", cfg.Cache.MaxEntries)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HARVEST_PORT", "9090")
	t.Setenv("HARVEST_HEADLESS", "false")
	t.Setenv("HARVEST_DEFAULT_TIMEOUT", "90s")
	t.Setenv("HARVEST_API_KEYS", "key-a, key-b, ,key-c")
	t.Setenv("HARVEST_RATE_RPS", "0.5")

	cfg := Load()

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Browser.Headless {
		t.Error("headless override ignored")
	}
	if cfg.Scraper.DefaultTimeout != 90*time.Second {
		t.Errorf("default timeout = %v", cfg.Scraper.DefaultTimeout)
	}
	if len(cfg.Auth.APIKeys) != 3 || cfg.Auth.APIKeys[1] != "key-b" {
		t.Errorf("api keys = %v", cfg.Auth.APIKeys)
	}
	if cfg.RateLimit.RequestsPerSecond != 0.5 {
		t.Errorf("rps = %v", cfg.RateLimit.RequestsPerSecond)
	}
}

func TestLoad_MalformedEnvFallsBack(t *testing.T) {
	t.Setenv("HARVEST_PORT", "not-a-number")
	t.Setenv("HARVEST_NAV_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Server.Port != 8080 {
		t.Errorf("malformed port should fall back, got %d", cfg.Server.Port)
	}
	if cfg.Scraper.NavigationTimeout != 30*time.Second {
		t.Errorf("malformed duration should fall back, got %v", cfg.Scraper.NavigationTimeout)
	}
}
