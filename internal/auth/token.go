// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package auth

import (
	"crypto/subtle"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Header names Jellyfin and Emby clients use to carry credentials.
const (
	HeaderEmbyToken           = "X-Emby-Token"
	HeaderMediaBrowserToken   = "X-MediaBrowser-Token"
	HeaderEmbyAuthorization   = "X-Emby-Authorization"
	HeaderAuthorization       = "Authorization"
	authorizationSchemeMB     = "mediabrowser"
	authorizationSchemeEmby   = "emby"
	authorizationFieldToken   = "token"
	authorizationFieldClient  = "client"
	authorizationFieldDevice  = "device"
	authorizationFieldDevID   = "deviceid"
	authorizationFieldVersion = "version"
)

// tokenEqual compares tokens in constant time.
func tokenEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ParseAuthorization parses a MediaBrowser authorization header such as
//
//	MediaBrowser Client="Jellyfin Web", Device="Firefox", DeviceId="abc", Version="10.9.0", Token="..."
//
// Field names are lower-cased. It returns nil when the scheme is not
// MediaBrowser or Emby.
func ParseAuthorization(header string) map[string]string {
	header = strings.TrimSpace(header)
	scheme, rest, found := strings.Cut(header, " ")
	if !found {
		return nil
	}
	switch strings.ToLower(scheme) {
	case authorizationSchemeMB, authorizationSchemeEmby:
	default:
		return nil
	}

	fields := make(map[string]string)
	for _, part := range splitFields(rest) {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if unescaped, err := url.QueryUnescape(value); err == nil {
			value = unescaped
		}
		if name != "" {
			fields[name] = value
		}
	}
	return fields
}

// splitFields splits on commas that are not inside double quotes.
func splitFields(s string) []string {
	var parts []string
	inQuotes := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func authorizationFields(r *http.Request) map[string]string {
	if f := ParseAuthorization(r.Header.Get(HeaderAuthorization)); f != nil {
		return f
	}
	return ParseAuthorization(r.Header.Get(HeaderEmbyAuthorization))
}

// TokenFromRequest extracts the access token a Jellyfin client sent. Dedicated
// token headers win over the authorization header, which wins over the
// api_key query parameter used on media URLs.
func TokenFromRequest(r *http.Request) string {
	for _, h := range []string{HeaderEmbyToken, HeaderMediaBrowserToken} {
		if v := strings.TrimSpace(r.Header.Get(h)); v != "" {
			return v
		}
	}
	if f := authorizationFields(r); f[authorizationFieldToken] != "" {
		return f[authorizationFieldToken]
	}
	q := r.URL.Query()
	for _, name := range []string{"api_key", "ApiKey", "apiKey"} {
		if v := q.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// ClientInfoFromRequest reads the client description from the authorization
// header.
func ClientInfoFromRequest(r *http.Request) ClientInfo {
	f := authorizationFields(r)
	return ClientInfo{
		Client:   f[authorizationFieldClient],
		Device:   f[authorizationFieldDevice],
		DeviceID: f[authorizationFieldDevID],
		Version:  f[authorizationFieldVersion],
	}
}

// SourceAddress returns the host part of the request's remote address. When
// forwarded headers are trusted the router rewrites RemoteAddr before this
// runs.
func SourceAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
