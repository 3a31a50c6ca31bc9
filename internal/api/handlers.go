// Shelfplay - Board Game Collection and Match Tracker
// SPDX-License-Identifier: MIT
// https://github.com/shelfplay/shelfplay

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/shelfplay/shelfplay/internal/config"
	"github.com/shelfplay/shelfplay/internal/database"
	"github.com/shelfplay/shelfplay/internal/validation"
)

// Handlers holds the REST API handlers and their dependencies.
type Handlers struct {
	db  *database.DB
	cfg *config.Config

	syncer      Syncer
	gameFetcher GameFetcher

	// syncRunning guards against concurrent sync runs, see handlers_sync.go.
	syncRunning chan struct{}
}

// NewHandlers creates the handler set.
func NewHandlers(db *database.DB, cfg *config.Config, syncer Syncer, gameFetcher GameFetcher) *Handlers {
	return &Handlers{
		db:          db,
		cfg:         cfg,
		syncer:      syncer,
		gameFetcher: gameFetcher,
		syncRunning: make(chan struct{}, 1),
	}
}

// decodeBody decodes a JSON request body, writing a 400 on failure.
func decodeBody(rw *ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		rw.BadRequest("Invalid JSON body: " + err.Error())
		return false
	}
	return true
}

// pathUUID parses a UUID path parameter, writing a 400 on failure.
func pathUUID(rw *ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		rw.BadRequest("Invalid " + name + ": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// CreatePlayerRequest is the body for POST /players.
type CreatePlayerRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// CreatePlayer handles POST /api/v1/players.
func (h *Handlers) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req CreatePlayerRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields())
		return
	}

	player, err := h.db.CreatePlayer(r.Context(), req.Name)
	if errors.Is(err, database.ErrDuplicateName) {
		rw.Conflict(ErrCodeConflict, "A player with this name already exists")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Created(player)
}

// ListPlayers handles GET /api/v1/players.
func (h *Handlers) ListPlayers(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	players, err := h.db.ListPlayers(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(players)
}

// GetPlayer handles GET /api/v1/players/{id}.
func (h *Handlers) GetPlayer(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, ok := pathUUID(rw, r, "id")
	if !ok {
		return
	}
	player, err := h.db.GetPlayer(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		rw.NotFound("Player not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(player)
}

// UpdatePlayer handles PUT and PATCH /api/v1/players/{id}.
func (h *Handlers) UpdatePlayer(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, ok := pathUUID(rw, r, "id")
	if !ok {
		return
	}
	var req CreatePlayerRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields())
		return
	}

	player, err := h.db.UpdatePlayer(r.Context(), id, req.Name)
	switch {
	case errors.Is(err, database.ErrNotFound):
		rw.NotFound("Player not found")
	case errors.Is(err, database.ErrDuplicateName):
		rw.Conflict(ErrCodeConflict, "A player with this name already exists")
	case err != nil:
		rw.DatabaseError(err)
	default:
		rw.Success(player)
	}
}

// DeletePlayer handles DELETE /api/v1/players/{id}.
func (h *Handlers) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, ok := pathUUID(rw, r, "id")
	if !ok {
		return
	}
	err := h.db.DeletePlayer(r.Context(), id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		rw.NotFound("Player not found")
	case errors.Is(err, database.ErrPlayerHasMatches):
		rw.BadRequest("Cannot delete a player with recorded matches")
	case err != nil:
		rw.DatabaseError(err)
	default:
		rw.NoContent()
	}
}

// CreateGameRequest is the body for POST /games.
type CreateGameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// CreateGame handles POST /api/v1/games.
func (h *Handlers) CreateGame(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req CreateGameRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields())
		return
	}

	game, err := h.db.CreateGame(r.Context(), req.Name)
	if errors.Is(err, database.ErrDuplicateName) {
		rw.Conflict(ErrCodeConflict, "A game with this name already exists")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Created(game)
}

// ListGames handles GET /api/v1/games.
func (h *Handlers) ListGames(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	games, err := h.db.ListGames(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(games)
}

// GetGame handles GET /api/v1/games/{id}.
func (h *Handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, ok := pathUUID(rw, r, "id")
	if !ok {
		return
	}
	game, err := h.db.GetGame(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		rw.NotFound("Game not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(game)
}

// UpdateGame handles PUT and PATCH /api/v1/games/{id}. Only the name is
// editable; enrichment fields are owned by collection sync.
func (h *Handlers) UpdateGame(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, ok := pathUUID(rw, r, "id")
	if !ok {
		return
	}
	var req CreateGameRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields())
		return
	}

	game, err := h.db.UpdateGame(r.Context(), id, req.Name)
	switch {
	case errors.Is(err, database.ErrNotFound):
		rw.NotFound("Game not found")
	case errors.Is(err, database.ErrDuplicateName):
		rw.Conflict(ErrCodeConflict, "A game with this name already exists")
	case err != nil:
		rw.DatabaseError(err)
	default:
		rw.Success(game)
	}
}

// DeleteGame handles DELETE /api/v1/games/{id}.
func (h *Handlers) DeleteGame(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, ok := pathUUID(rw, r, "id")
	if !ok {
		return
	}
	err := h.db.DeleteGame(r.Context(), id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		rw.NotFound("Game not found")
	case errors.Is(err, database.ErrGameHasMatches):
		rw.BadRequest("Cannot delete a game with recorded matches")
	case err != nil:
		rw.DatabaseError(err)
	default:
		rw.NoContent()
	}
}

// ListStats handles GET /api/v1/stats: aggregated outcomes for every game
// with at least one recorded match.
func (h *Handlers) ListStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	stats, err := h.db.ListGameStats(r.Context())
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(stats)
}

// GetGameStats handles GET /api/v1/games/{id}/stats and /api/v1/stats/{id}.
func (h *Handlers) GetGameStats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, ok := pathUUID(rw, r, "id")
	if !ok {
		return
	}
	stats, err := h.db.GetGameStats(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		rw.NotFound("Game not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(stats)
}

// CreateMatchRequest is the body for POST /matches.
type CreateMatchRequest struct {
	GameID     string     `json:"game_id" validate:"required,uuid"`
	WinnerID   string     `json:"winner_id" validate:"required,uuid"`
	DatePlayed *time.Time `json:"date_played"`
}

// CreateMatch handles POST /api/v1/matches. A missing date_played defaults
// to now.
func (h *Handlers) CreateMatch(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req CreateMatchRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields())
		return
	}

	gameID, _ := uuid.Parse(req.GameID)
	winnerID, _ := uuid.Parse(req.WinnerID)
	datePlayed := time.Now().UTC()
	if req.DatePlayed != nil {
		datePlayed = *req.DatePlayed
	}

	match, err := h.db.CreateMatch(r.Context(), gameID, winnerID, datePlayed)
	if errors.Is(err, database.ErrNotFound) {
		rw.BadRequest("Referenced game or winner does not exist")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Created(match)
}

// ListMatches handles GET /api/v1/matches with limit/offset pagination.
func (h *Handlers) ListMatches(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit := h.cfg.API.DefaultPageSize
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			rw.BadRequest("limit must be a positive integer")
			return
		}
		if n > h.cfg.API.MaxPageSize {
			n = h.cfg.API.MaxPageSize
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			rw.BadRequest("offset must be a non-negative integer")
			return
		}
		offset = n
	}

	matches, err := h.db.ListMatches(r.Context(), limit+1, offset)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	hasMore := len(matches) > limit
	if hasMore {
		matches = matches[:limit]
	}
	rw.SuccessWithPagination(matches, &PaginationMeta{
		Count:   len(matches),
		Offset:  offset,
		Limit:   limit,
		HasMore: hasMore,
	})
}

// GetMatch handles GET /api/v1/matches/{id}.
func (h *Handlers) GetMatch(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, ok := pathUUID(rw, r, "id")
	if !ok {
		return
	}
	match, err := h.db.GetMatch(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		rw.NotFound("Match not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(match)
}

// UpdateMatch handles PUT and PATCH /api/v1/matches/{id}.
func (h *Handlers) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, ok := pathUUID(rw, r, "id")
	if !ok {
		return
	}
	var req CreateMatchRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError(verr.Error(), verr.Fields())
		return
	}

	gameID, _ := uuid.Parse(req.GameID)
	winnerID, _ := uuid.Parse(req.WinnerID)
	datePlayed := time.Now().UTC()
	if req.DatePlayed != nil {
		datePlayed = *req.DatePlayed
	}

	match, err := h.db.UpdateMatch(r.Context(), id, gameID, winnerID, datePlayed)
	if errors.Is(err, database.ErrNotFound) {
		rw.NotFound("Match, game, or winner not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	rw.Success(match)
}

// DeleteMatch handles DELETE /api/v1/matches/{id}.
func (h *Handlers) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, ok := pathUUID(rw, r, "id")
	if !ok {
		return
	}
	err := h.db.DeleteMatch(r.Context(), id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		rw.NotFound("Match not found")
	case err != nil:
		rw.DatabaseError(err)
	default:
		rw.NoContent()
	}
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if err := h.db.Ping(r.Context()); err != nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeDatabaseError, "Database unreachable")
		return
	}
	rw.Success(map[string]string{"status": "ok"})
}
