// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

/*
Package main is the entry point for the Stashbridge server.

Stashbridge answers the Jellyfin REST API so that stock Jellyfin clients
(Infuse, Swiftfin, Findroid, the Jellyfin web and TV apps) can browse and
play a Stash library. Every request is translated into Stash GraphQL
queries; media and images are proxied from Stash.

# Application Architecture

	RootSupervisor ("stashbridge")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   └── CleanupService (expired sessions and bans, image cache)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi router)

Component initialization order:

 1. Configuration: koanf with defaults, optional YAML file and environment
 2. Logging: zerolog with JSON or console output
 3. Stash client: GraphQL over HTTP behind a circuit breaker
 4. Security gate: single account, sessions and address bans
 5. Library builder, streaming proxy and image proxy
 6. API handlers and chi router
 7. Supervisor tree

# Configuration

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	STASH_URL=http://stash:9999  # Stash base URL, no path
	STASH_API_KEY=<key>          # Settings > Security in Stash
	SB_USERNAME=viewer           # the one account clients log in with
	SB_PASSWORD=<password>
	TAG_GROUPS=Favorites,VR      # tags exposed as libraries
	HTTP_PORT=8096               # the Jellyfin default
	LOG_LEVEL=info
	LOG_FORMAT=json

The config file is read from CONFIG_PATH or the first of ./config.yaml,
/etc/stashbridge/config.yaml.

# Example Usage

	export STASH_URL=http://localhost:9999
	export SB_USERNAME=viewer
	export SB_PASSWORD=secret
	./stashbridge

Then add http://<host>:8096 as a server in any Jellyfin client.

Docker:

	docker run -d \
	  -e STASH_URL=http://stash:9999 \
	  -e STASH_API_KEY=... \
	  -e SB_USERNAME=viewer \
	  -e SB_PASSWORD=secret \
	  -p 8096:8096 \
	  ghcr.io/tomtom215/stashbridge

# Signal Handling

SIGINT and SIGTERM stop the supervisor tree. The HTTP server stops
accepting connections, drains for server.shutdown_timeout and then closes
any streams still open.
*/
package main
