// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package logging

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SecurityEvent represents a security-relevant event for audit logging.
type SecurityEvent struct {
	// Event is the type of event (e.g., "login_success", "logout", "ban").
	Event string
	// Username is the username offered by the client (if any).
	Username string
	// SessionID is the session token (sanitized before logging).
	SessionID string
	// IPAddress is the client's source address.
	IPAddress string
	// Client is the application name from the authorization header.
	Client string
	// Success indicates if the operation was successful.
	Success bool
	// Error is the error message if the operation failed.
	Error string
	// Details contains additional sanitized details.
	Details map[string]string
}

// SecurityLogger provides secure logging for authentication events.
// It automatically sanitizes sensitive data before logging.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a new security logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{
		logger: WithComponent("auth"),
	}
}

// NewSecurityLoggerWithLogger creates a security logger with a custom zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// LogEvent logs a security event with automatic sanitization.
func (l *SecurityLogger) LogEvent(event *SecurityEvent) {
	e := l.logger.Info()
	if !event.Success {
		e = l.logger.Warn()
	}
	e = e.Str("event", event.Event)

	if event.Success {
		e = e.Str("status", "success")
	} else {
		e = e.Str("status", "failed")
	}

	if event.Username != "" {
		e = e.Str("username", SanitizeUsername(event.Username))
	}
	if event.SessionID != "" {
		e = e.Str("session_id", SanitizeToken(event.SessionID))
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.Client != "" {
		e = e.Str("client", truncateString(event.Client, 100))
	}
	if event.Error != "" && !event.Success {
		e = e.Str("error", SanitizeError(event.Error))
	}

	for k, v := range event.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}

	e.Msg("")
}

// LogLoginSuccess logs a successful login event.
func (l *SecurityLogger) LogLoginSuccess(username, ip, client string) {
	l.LogEvent(&SecurityEvent{
		Event:     "login_success",
		Username:  username,
		IPAddress: ip,
		Client:    client,
		Success:   true,
	})
}

// LogLoginFailure logs a failed login event.
func (l *SecurityLogger) LogLoginFailure(username, ip, client, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     "login_failed",
		Username:  username,
		IPAddress: ip,
		Client:    client,
		Error:     reason,
	})
}

// LogBan logs a source address being banned.
func (l *SecurityLogger) LogBan(ip string, failures int, until time.Time) {
	l.LogEvent(&SecurityEvent{
		Event:     "address_banned",
		IPAddress: ip,
		Error:     "too many failed attempts",
		Details: map[string]string{
			"failures":     strconv.Itoa(failures),
			"banned_until": until.UTC().Format(time.RFC3339),
		},
	})
}

// LogSessionCreated logs a session creation event. replaced is true when an
// earlier session was invalidated by this one.
func (l *SecurityLogger) LogSessionCreated(sessionID, ip string, replaced bool) {
	l.LogEvent(&SecurityEvent{
		Event:     "session_created",
		SessionID: sessionID,
		IPAddress: ip,
		Success:   true,
		Details: map[string]string{
			"replaced_previous": strconv.FormatBool(replaced),
		},
	})
}

// LogLogout logs a logout event.
func (l *SecurityLogger) LogLogout(sessionID, ip string) {
	l.LogEvent(&SecurityEvent{
		Event:     "logout",
		SessionID: sessionID,
		IPAddress: ip,
		Success:   true,
	})
}

// SanitizeToken masks a token, showing only first and last 4 characters.
// Example: "0123456789abcdef0123456789abcdef" -> "0123...cdef"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeUsername masks a username, keeping first 2 characters.
// Example: "johndoe" -> "jo***"
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}
	if len(username) <= 2 {
		return "***"
	}
	return username[:2] + "***"
}

// SanitizeError removes potentially sensitive information from error messages.
func SanitizeError(err string) string {
	sensitivePatterns := []string{
		"password",
		"secret",
		"token",
		"key",
		"authorization",
	}

	lowerErr := strings.ToLower(err)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lowerErr, pattern) {
			return "authentication error"
		}
	}

	return truncateString(err, 200)
}

// SanitizeValue sanitizes a value based on its key name.
func SanitizeValue(key, value string) string {
	switch strings.ToLower(key) {
	case "token", "access_token", "api_key", "apikey", "password",
		"authorization", "session", "session_id":
		return SanitizeToken(value)
	}
	return value
}

// SanitizeURL strips credentials from query strings before a URL is logged.
// Jellyfin clients put access tokens in api_key parameters on media URLs.
func SanitizeURL(raw string) string {
	path, query, found := strings.Cut(raw, "?")
	if !found {
		return raw
	}
	parts := strings.Split(query, "&")
	for i, part := range parts {
		name, value, _ := strings.Cut(part, "=")
		switch strings.ToLower(name) {
		case "api_key", "apikey", "token":
			parts[i] = name + "=" + SanitizeToken(value)
		}
	}
	return path + "?" + strings.Join(parts, "&")
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
