// Shelfplay - Board Game Collection and Match Tracker
// SPDX-License-Identifier: MIT
// https://github.com/shelfplay/shelfplay

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shelfplay/shelfplay/internal/bgg"
	"github.com/shelfplay/shelfplay/internal/logging"
	"github.com/shelfplay/shelfplay/internal/models"
)

// Syncer runs a collection sync. Implemented by sync.Reconciler.
type Syncer interface {
	Sync(ctx context.Context, username string) (models.SyncResult, error)
}

// GameFetcher looks up a single game upstream. Implemented by bgg.Client.
type GameFetcher interface {
	FetchGame(ctx context.Context, id int) (*bgg.GameDetails, error)
}

// SyncCollection handles POST /api/v1/bgg/sync/{username}.
//
// The sync runs synchronously: the response carries the full SyncResult.
// Only one sync may run at a time; concurrent triggers get 409 Conflict.
func (h *Handlers) SyncCollection(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	username := chi.URLParam(r, "username")
	if username == "" {
		rw.BadRequest("username is required")
		return
	}

	select {
	case h.syncRunning <- struct{}{}:
		defer func() { <-h.syncRunning }()
	default:
		rw.Conflict(ErrCodeSyncInProgress, "A collection sync is already running")
		return
	}

	result, err := h.syncer.Sync(r.Context(), username)
	switch {
	case errors.Is(err, bgg.ErrUserNotFound):
		rw.NotFound("BGG user not found: " + username)
	case errors.Is(err, bgg.ErrUnauthorized):
		rw.ExternalServiceError("boardgamegeek", err)
	case errors.Is(err, bgg.ErrRetriesExhausted):
		rw.ExternalServiceError("boardgamegeek", err)
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Str("username", username).Msg("Collection sync failed")
		rw.InternalError("Collection sync failed")
	default:
		rw.Success(result)
	}
}

// GetBGGGame handles GET /api/v1/bgg/game/{id}: a live lookup against the
// BGG thing endpoint, without touching the local catalog.
func (h *Handlers) GetBGGGame(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		rw.BadRequest("id must be a positive integer")
		return
	}

	details, err := h.gameFetcher.FetchGame(r.Context(), id)
	switch {
	case errors.Is(err, bgg.ErrGameNotFound):
		rw.NotFound("BGG game not found")
	case errors.Is(err, bgg.ErrUnauthorized):
		rw.ExternalServiceError("boardgamegeek", err)
	case err != nil:
		rw.ExternalServiceError("boardgamegeek", err)
	default:
		rw.Success(details)
	}
}
