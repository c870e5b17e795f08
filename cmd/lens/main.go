// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command lens starts the Aleutian Lens API server.
//
// Aleutian Lens extracts structure from JavaScript bundles:
//   - Raw counts, extended metrics and quality scores
//   - Classes, functions, variables and call relations
//   - Class and call graph diagrams (JSON or Mermaid)
//   - Snapshot history with diffs between runs
//
// Usage:
//
//	go run ./cmd/lens
//	go run ./cmd/lens -port 9090 -config ./lens.config.yaml
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/lens/health
//
//	# Analyze a bundle
//	curl -F bundle=@site.zip http://localhost:8080/v1/lens/analyze
//
//	# Analyze a bare source file
//	curl --data-binary @app.js "http://localhost:8080/v1/lens/analyze?name=app.js"
//
//	# Call graph as Mermaid
//	curl "http://localhost:8080/v1/lens/latest/diagrams?format=mermaid&kind=call"
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/AleutianLens/services/lens"
	"github.com/AleutianAI/AleutianLens/services/lens/app"
	"github.com/AleutianAI/AleutianLens/services/lens/config"
	"github.com/AleutianAI/AleutianLens/services/lens/telemetry"
)

func main() {
	port := flag.Int("port", 0, "Port to listen on (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug mode")
	configPath := flag.String("config", "", "Path to lens.config.yaml (default: $LENS_CONFIG or ./lens.config.yaml)")
	flag.Parse()

	if err := run(*port, *debug, *configPath); err != nil {
		slog.Error("Aleutian Lens server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(port int, debug bool, configPath string) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path, optional := config.ResolvePath(configPath)
	cfg, err := config.LoadFile(ctx, path, optional)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry, telemetry.Options{})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			slog.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	rt, err := app.New(cfg, logger, app.Options{Snapshots: true, Sink: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			slog.Warn("Failed to close runtime", slog.String("error", err.Error()))
		}
	}()

	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	router.Use(lens.RequestID())
	if debug {
		router.Use(gin.Logger())
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers := lens.NewHandlers(rt.Session, rt.Reader, rt.Store, cfg.Server.MaxUploadBytes)
	v1 := router.Group("/v1")
	lens.RegisterRoutes(v1, handlers, lens.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))

	printBanner(cfg.Server.Port, rt.Store != nil)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting Aleutian Lens server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down Aleutian Lens server")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func printBanner(port int, snapshots bool) {
	snapshotStatus := "DISABLED (snapshot store unavailable)"
	if snapshots {
		snapshotStatus = "ENABLED"
	}

	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                      ALEUTIAN LENS SERVER                         ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Structural extraction and metrics for JavaScript bundles.        ║
║  Snapshots: %-53s ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%-5d/v1/lens/health                   │  ║
║  │                                                             │  ║
║  │ # Analyze a bundle                                          │  ║
║  │ curl -F bundle=@site.zip \                                  │  ║
║  │   http://localhost:%-5d/v1/lens/analyze                     │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── Analyze: /analyze, /analyze/ast                              ║
║  ├── Latest: /latest, /metrics, /structure, /diagrams, /ast       ║
║  ├── Snapshots: /snapshots, /snapshots/diff, /snapshots/:id       ║
║  └── Stream: /stream (WebSocket)                                  ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, snapshotStatus, port, port)
}
