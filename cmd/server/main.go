// Alpha/Omega tracker server - forecasting loop, screen capture, and WebSocket push
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pr-poehali-dev/alpha-omega-bot/internal/config"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/forecast"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/metrics"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/recognizer"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/server"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/tracker"
)

func main() {
	// .env is optional; env vars win either way
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg)
	slog.Info("configuration loaded", "config", cfg.String())

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		slog.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	forecaster, err := forecast.New(cfg.Strategy)
	if err != nil {
		slog.Error("invalid forecast strategy", "strategy", cfg.Strategy, "error", err)
		os.Exit(1)
	}

	rec := recognizer.New(cfg.RecognizerURL, cfg.RecognizerTimeout)
	trk := tracker.New(cfg, rec, forecaster)

	if cfg.AutoCapture {
		if err := trk.SetAutoCapture(true); err != nil {
			slog.Warn("auto-capture unavailable, continuing without it", "error", err)
		}
	}

	srv := server.New(trk, cfg)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "http", cfg.HTTPAddr, "recognizer", cfg.RecognizerURL)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	trk.Stop()
	slog.Info("shutdown complete")
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogJSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
