// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/stashbridge/internal/api"
	"github.com/tomtom215/stashbridge/internal/auth"
	"github.com/tomtom215/stashbridge/internal/config"
	"github.com/tomtom215/stashbridge/internal/imageproxy"
	"github.com/tomtom215/stashbridge/internal/library"
	"github.com/tomtom215/stashbridge/internal/logging"
	"github.com/tomtom215/stashbridge/internal/metrics"
	"github.com/tomtom215/stashbridge/internal/stash"
	"github.com/tomtom215/stashbridge/internal/stream"
	"github.com/tomtom215/stashbridge/internal/supervisor"
	"github.com/tomtom215/stashbridge/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logConfig(cfg))

	logging.Info().
		Str("version", version).
		Str("stash_url", logging.SanitizeURL(cfg.Stash.URL)).
		Str("server_name", cfg.Server.Name).
		Strs("tag_groups", cfg.Library.TagGroups).
		Msg("Starting Stashbridge")
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	client, err := stash.NewClient(stashConfig(cfg))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create Stash client")
	}
	backend := stash.NewCircuitBreakerClient(client)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	probeBackend(ctx, backend)

	gate, err := auth.NewGate(gateConfig(cfg))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize security gate")
	}

	images := imageproxy.New(backend, imageConfig(cfg))

	handler, err := api.NewHandler(apiConfig(cfg), api.Dependencies{
		Gate:    gate,
		Backend: backend,
		Library: library.NewBuilder(backend, libraryConfig(cfg)),
		Streams: stream.New(backend),
		Images:  images,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create API handler")
	}

	server := &http.Server{
		Handler:           api.NewRouter(handler).SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ErrorLog:          logging.NewStdLogger("http"),
	}

	treeCfg := supervisor.DefaultTreeConfig()
	// Leave the HTTP service time to close lingering streams after draining.
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout + 5*time.Second
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddMaintenanceService(services.NewCleanupService(cfg.Security.CleanupInterval,
		services.CleanupTask{Name: "sessions", Run: gate.PurgeExpired},
		services.CleanupTask{Name: "images", Run: images.Purge},
	))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Addr(), cfg.Server.ShutdownTimeout))

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("server_id", handler.ServerID()).
		Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	<-ctx.Done()
	logging.Info().Msg("Shutdown signal received, waiting for services to stop")

	// ServeBackground sends exactly one value and never closes the channel.
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor shutdown error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Stashbridge stopped")
}

// probeBackend logs whether Stash answers. Clients can still connect while
// Stash is down; they get 503s until it comes back.
func probeBackend(ctx context.Context, backend stash.Backend) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	v, err := backend.Version(probeCtx)
	if err != nil {
		logging.Warn().Err(err).Msg("Stash is not reachable yet")
		return
	}
	logging.Info().Str("stash_version", v).Msg("Connected to Stash")
}
