// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

/*
Package supervisor runs the gateway's long-lived services under suture v4.

# Overview

	RootSupervisor ("stashbridge")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   └── CleanupService (session and ban expiry, image cache expiry)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A failing cleanup task restarts inside its own layer. Streams served by the
API layer are not interrupted.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMaintenanceService(services.NewCleanupService(cfg.Security.CleanupInterval,
	    services.CleanupTask{Name: "sessions", Run: gate.PurgeExpired},
	    services.CleanupTask{Name: "images", Run: images.Purge},
	))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Addr(), cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = tree.Serve(ctx)

# Failure Handling

Each failure increments a counter that decays with FailureDecay. Past
FailureThreshold the supervisor waits FailureBackoff before the next
restart. Supervisor events are logged through sutureslog.

# Service Interface

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return nil to stop without restart, an error to be restarted, and
ctx.Err() promptly once the context is canceled.

# Shutdown

ShutdownTimeout must exceed the HTTP drain timeout, otherwise suture
abandons the server before it closes open streams. Services that miss
the deadline appear in UnstoppedServiceReport.
*/
package supervisor
