// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

/*
Package api emulates the subset of the Jellyfin HTTP API that Jellyfin
clients need to browse and play a Stash library.

Key Components:

  - Router: chi route tree and middleware stack
  - Handler: endpoint handlers, one file per endpoint family
  - Mapping tables: Stash kinds, sort fields and filters to Jellyfin terms
  - Error mapping: component errors to HTTP statuses

Endpoint Families:

 1. System (/System/Info, /System/Ping, /Branding, /health)
 2. Users and sessions (/Users/AuthenticateByName, /Users/Me, /Sessions)
 3. Browsing (/UserViews, /Items, /Items/Latest, /Search/Hints, ...)
 4. Playback (/Items/{id}/PlaybackInfo, /Videos/{id}/stream, /Sessions/Playing)
 5. Images (/Items/{id}/Images/{type})

Routing:

Jellyfin clients disagree on path casing, so every route is registered in
lower case and the request path is folded before routing. Routes the
gateway does not know are answered by NotImplemented: an empty query
result for GET and 204 for anything else, since clients treat errors on
optional endpoints as fatal.

Middleware order:

	LowercasePath -> RequestID -> [RealIP] -> Recoverer -> CORS ->
	RateLimit -> SecurityHeaders -> RequestLogging -> [PrometheusMetrics] ->
	[RequireSession] -> [Compression] -> handler

Media streams and images are never compressed so byte ranges stay valid.

Identifiers:

Every item id a client sees is a 32-character hex string from the identity
package. Ids that do not decode, or decode to the wrong kind, are 404s.

Error Handling:

Handlers return errors through writeError, which maps them to statuses:

  - auth.ErrUnauthorized: 401
  - not found (any component) or an undecodable id: 404
  - ErrInvalidRequest: 400
  - stream.ErrRangeNotSatisfiable: 416
  - stash.ErrBackendUnavailable: 503
  - a GraphQL error from Stash: 502

A client that disconnected gets no answer.
*/
package api
