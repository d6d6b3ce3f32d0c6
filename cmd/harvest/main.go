package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/harvest/api"
	"github.com/use-agent/harvest/browser"
	"github.com/use-agent/harvest/cache"
	"github.com/use-agent/harvest/config"
	"github.com/use-agent/harvest/provider"
	"github.com/use-agent/harvest/provider/amazon"
	"github.com/use-agent/harvest/provider/taobao"
	"github.com/use-agent/harvest/scrape"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("harvest starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"remoteSessions", cfg.Broker.PreferRemote && cfg.Broker.URL != "",
	)

	// ── 3. Initialise session manager and providers ─────────────────
	sessions := browser.NewManager(cfg.Browser, cfg.Broker)
	preferRemote := cfg.Broker.PreferRemote && cfg.Broker.URL != ""

	registry := provider.NewRegistry(
		amazon.New(sessions, cfg.Scraper, preferRemote),
		taobao.New(sessions, cfg.Scraper, preferRemote),
	)
	defer registry.Close()

	svc := scrape.NewService(registry, cfg.Scraper)
	slog.Info("providers registered", "providers", registry.Names())

	// ── 4. Initialise cache ─────────────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries)

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(svc, cfg, cc, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("harvest stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
