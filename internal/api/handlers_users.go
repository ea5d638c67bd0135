// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/stashbridge/internal/auth"
	"github.com/tomtom215/stashbridge/internal/identity"
	"github.com/tomtom215/stashbridge/internal/models"
)

// maxDisplayPreferences bounds the stored display preferences. Clients
// keep a handful of views each.
const maxDisplayPreferences = 512

func (h *Handler) user(lastActivity *time.Time) models.UserDto {
	u := models.NewUser(h.serverID, h.userID, h.cfg.Username)
	u.LastLoginDate = lastActivity
	u.LastActivityDate = lastActivity
	return u
}

func (h *Handler) sessionInfo(s *auth.Session) models.SessionInfo {
	return models.SessionInfo{
		ID:                 s.Token[:min(len(s.Token), 8)] + s.Client.DeviceID,
		UserID:             h.userID,
		UserName:           h.cfg.Username,
		Client:             s.Client.Client,
		DeviceID:           s.Client.DeviceID,
		DeviceName:         s.Client.Device,
		ApplicationVersion: s.Client.Version,
		RemoteEndPoint:     s.SourceAddress,
		LastActivityDate:   s.IssuedAt,
		IsActive:           true,
		PlayableMediaTypes: []string{models.MediaTypeVideo},
		AdditionalUsers:    []string{},
		ServerID:           h.serverID,
	}
}

// AuthenticateByName answers POST /Users/AuthenticateByName. A successful
// login replaces any existing session.
func (h *Handler) AuthenticateByName(w http.ResponseWriter, r *http.Request) {
	var body models.AuthenticateUserByName
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.Username == "" {
		writeError(w, r, auth.ErrInvalidCredentials)
		return
	}

	session, err := h.gate.Authenticate(body.Username, body.Secret(), auth.SourceAddress(r),
		auth.WithClientInfo(auth.ClientInfoFromRequest(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, r, models.AuthenticationResult{
		User:        h.user(&session.IssuedAt),
		SessionInfo: h.sessionInfo(session),
		AccessToken: session.Token,
		ServerID:    h.serverID,
	})
}

// PublicUsers answers GET /Users/Public. The user is not advertised; clients
// show a manual login form.
func (h *Handler) PublicUsers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, []models.UserDto{})
}

// Users answers GET /Users.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, []models.UserDto{h.currentUser(r)})
}

// Me answers GET /Users/Me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, h.currentUser(r))
}

// User answers GET /Users/{userId}.
func (h *Handler) User(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, h.currentUser(r))
}

func (h *Handler) currentUser(r *http.Request) models.UserDto {
	if s, ok := auth.SessionFromContext(r.Context()); ok {
		return h.user(&s.IssuedAt)
	}
	return h.user(nil)
}

// requireUser rejects /Users/{userId}/... requests for any user but the
// configured one.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !identity.SameID(urlParam(r, "userId"), h.userID) {
			writeError(w, r, fmt.Errorf("%w: unknown user", identity.ErrNotAnIdentifier))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Sessions answers GET /Sessions with the single live session.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	sessions := []models.SessionInfo{}
	if s, ok := h.gate.CurrentSession(); ok {
		sessions = append(sessions, h.sessionInfo(s))
	}
	respondJSON(w, r, sessions)
}

// Logout answers POST /Sessions/Logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.gate.Logout(auth.TokenFromRequest(r))
	w.WriteHeader(http.StatusNoContent)
}

// Capabilities answers POST /Sessions/Capabilities and its Full form. The
// gateway has no remote control, so the report is discarded.
func (h *Handler) Capabilities(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func displayPreferencesKey(id, client string) string {
	return client + "|" + id
}

// GetDisplayPreferences answers GET /DisplayPreferences/{id}.
func (h *Handler) GetDisplayPreferences(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "displayPreferencesId")
	client := newParams(r).str("client")

	h.prefsMu.Lock()
	prefs, ok := h.prefs[displayPreferencesKey(id, client)]
	h.prefsMu.Unlock()
	if !ok {
		prefs = models.NewDisplayPreferences(id, client)
	}
	respondJSON(w, r, prefs)
}

// UpdateDisplayPreferences answers POST /DisplayPreferences/{id}. Preferences
// live in memory only.
func (h *Handler) UpdateDisplayPreferences(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "displayPreferencesId")
	client := newParams(r).str("client")

	prefs := models.NewDisplayPreferences(id, client)
	if err := decodeJSON(r, &prefs); err != nil {
		writeError(w, r, err)
		return
	}
	prefs.ID = id
	if prefs.CustomPrefs == nil {
		prefs.CustomPrefs = map[string]string{}
	}

	key := displayPreferencesKey(id, client)
	h.prefsMu.Lock()
	if _, exists := h.prefs[key]; exists || len(h.prefs) < maxDisplayPreferences {
		h.prefs[key] = prefs
	}
	h.prefsMu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}
