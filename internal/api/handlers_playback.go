// Stashbridge - Jellyfin-compatible gateway for a Stash media library
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stashbridge

package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/tomtom215/stashbridge/internal/identity"
	"github.com/tomtom215/stashbridge/internal/logging"
	"github.com/tomtom215/stashbridge/internal/models"
)

// playedThreshold is the share of the runtime after which a stopped
// playback counts as a play.
const playedThreshold = 0.9

// sceneRef decodes a path id that must name a scene. Ids of other kinds
// are 404s: they have no media.
func sceneRef(r *http.Request) (identity.Ref, error) {
	id, err := identity.DecodeKind(urlParam(r, "itemId"), identity.KindScene)
	if err != nil {
		return identity.Ref{}, err
	}
	return identity.Ref{Kind: identity.KindScene, ID: id}, nil
}

// PlaybackInfo answers GET and POST /Items/{itemId}/PlaybackInfo. The body
// of the POST form (device profile) is ignored: every source is offered for
// direct play.
func (h *Handler) PlaybackInfo(w http.ResponseWriter, r *http.Request) {
	ref, err := sceneRef(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	desc, err := h.streams.Describe(r.Context(), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, r, models.PlaybackInfoResponse{
		MediaSources:  []models.MediaSourceInfo{mediaSource(urlParam(r, "itemId"), desc)},
		PlaySessionID: uuid.NewString(),
	})
}

// Stream answers GET and HEAD on /Videos/{itemId}/stream by relaying the
// Stash stream.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	ref, err := sceneRef(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.streams.Serve(w, r, ref); err != nil {
		writeError(w, r, err)
	}
}

// Download answers /Items/{itemId}/Download. It is the stream with an
// attachment disposition.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	ref, err := sceneRef(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	desc, err := h.streams.Describe(r.Context(), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if desc.FileName != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", desc.FileName))
	}
	if err := h.streams.Serve(w, r, ref); err != nil {
		writeError(w, r, err)
	}
}

// decodeReport reads a playback report and decodes its item id.
func decodeReport(r *http.Request) (*models.PlaybackProgressInfo, string, error) {
	var report models.PlaybackProgressInfo
	if err := decodeJSON(r, &report); err != nil {
		return nil, "", err
	}
	id, err := identity.DecodeKind(report.ItemID, identity.KindScene)
	if err != nil {
		return nil, "", fmt.Errorf("report item %q: %w", report.ItemID, err)
	}
	return &report, id, nil
}

// PlayingStart answers POST /Sessions/Playing. Stash tracks nothing at
// start, but the id is still checked.
func (h *Handler) PlayingStart(w http.ResponseWriter, r *http.Request) {
	if _, _, err := decodeReport(r); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PlayingProgress answers POST /Sessions/Playing/Progress by saving the
// resume position.
func (h *Handler) PlayingProgress(w http.ResponseWriter, r *http.Request) {
	report, sceneID, err := decodeReport(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if report.PositionTicks != nil {
		if _, err := h.backend.FindScene(r.Context(), sceneID); err != nil {
			writeError(w, r, err)
			return
		}
		pos := models.TicksToSeconds(*report.PositionTicks)
		if err := h.backend.SaveSceneActivity(r.Context(), sceneID, pos, 0); err != nil {
			writeError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// PlayingStopped answers POST /Sessions/Playing/Stopped. Stopping close to
// the end records a play and clears the resume point; stopping earlier
// saves the position.
func (h *Handler) PlayingStopped(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, sceneID, err := decodeReport(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if report.PositionTicks == nil || report.Failed {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	scene, err := h.backend.FindScene(ctx, sceneID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pos := models.TicksToSeconds(*report.PositionTicks)
	if d := scene.Duration(); d > 0 && pos >= d*playedThreshold {
		err = h.markPlayed(r, sceneID)
	} else {
		err = h.backend.SaveSceneActivity(ctx, sceneID, pos, 0)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	logging.CtxDebug(ctx).Str("scene_id", sceneID).Float64("position", pos).Msg("Playback stopped")
	w.WriteHeader(http.StatusNoContent)
}

// PlayingPing answers POST /Sessions/Playing/Ping.
func (h *Handler) PlayingPing(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markPlayed(r *http.Request, sceneID string) error {
	if err := h.backend.AddScenePlay(r.Context(), sceneID); err != nil {
		return err
	}
	return h.backend.SaveSceneActivity(r.Context(), sceneID, 0, 0)
}

// userDataFor reloads an item and returns its user data.
func (h *Handler) userDataFor(r *http.Request, id string) (*models.UserItemDataDto, error) {
	n, err := h.library.Resolve(r.Context(), id)
	if err != nil {
		return nil, err
	}
	item := h.nodeItem(n, false)
	if item.UserData == nil {
		return entityUserData(id, false), nil
	}
	return item.UserData, nil
}

// MarkPlayed answers POST /Users/{userId}/PlayedItems/{itemId} and
// POST /UserPlayedItems/{itemId}.
func (h *Handler) MarkPlayed(w http.ResponseWriter, r *http.Request) {
	h.setPlayed(w, r, true)
}

// MarkUnplayed answers the DELETE forms of the played routes.
func (h *Handler) MarkUnplayed(w http.ResponseWriter, r *http.Request) {
	h.setPlayed(w, r, false)
}

func (h *Handler) setPlayed(w http.ResponseWriter, r *http.Request, played bool) {
	id := urlParam(r, "itemId")
	ref, err := identity.Decode(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ref.Kind != identity.KindScene {
		writeError(w, r, fmt.Errorf("%w: only scenes have a play state", ErrInvalidRequest))
		return
	}
	// Stash answers mutations on missing scenes with a GraphQL error.
	if _, err := h.library.Resolve(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	if played {
		err = h.markPlayed(r, ref.ID)
	} else {
		err = h.backend.ResetScenePlayCount(r.Context(), ref.ID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := h.userDataFor(r, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, r, data)
}

// MarkFavorite answers POST /Users/{userId}/FavoriteItems/{itemId} and
// POST /UserFavoriteItems/{itemId}.
func (h *Handler) MarkFavorite(w http.ResponseWriter, r *http.Request) {
	h.setFavorite(w, r, true)
}

// UnmarkFavorite answers the DELETE forms of the favorite routes.
func (h *Handler) UnmarkFavorite(w http.ResponseWriter, r *http.Request) {
	h.setFavorite(w, r, false)
}

// setFavorite toggles the Stash favorite flag. Kinds without one (scenes,
// groups, saved filters) answer their unchanged user data.
func (h *Handler) setFavorite(w http.ResponseWriter, r *http.Request, favorite bool) {
	id := urlParam(r, "itemId")
	ref, err := identity.Decode(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.library.Resolve(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	if kind := mappingFor(ref.Kind).favorite; kind != "" {
		if err := h.backend.SetFavorite(r.Context(), kind, ref.ID, favorite); err != nil {
			writeError(w, r, err)
			return
		}
	} else {
		logging.CtxDebug(r.Context()).Str("item", ref.String()).Msg("Favorite ignored, kind has no favorite flag")
	}

	data, err := h.userDataFor(r, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, r, data)
}

// MediaSegments answers GET /MediaSegments/{itemId}. Stash has no intro or
// credit markers.
func (h *Handler) MediaSegments(w http.ResponseWriter, r *http.Request) {
	if _, err := identity.Decode(urlParam(r, "itemId")); err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, r, models.NewQueryResult[models.MediaSegmentDto](nil, 0, 0))
}

// Intros answers the intro routes with an empty list.
func (h *Handler) Intros(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, models.NewQueryResult[models.BaseItemDto](nil, 0, 0))
}
