// Shelfplay - Board Game Collection and Match Tracker
// SPDX-License-Identifier: MIT
// https://github.com/shelfplay/shelfplay

// Package models defines the core domain types shared across the
// database, sync, and API layers.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Player represents a person whose match results are tracked.
type Player struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Game represents a board game in the local collection.
//
// A game created manually has no BGG linkage; a game created or enriched by
// collection sync carries its BoardGameGeek ID and metadata. Name uniqueness
// is case-insensitive across all games regardless of how the row was created.
type Game struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	BGGID         *int       `json:"bgg_id,omitempty"`
	YearPublished *int       `json:"year_published,omitempty"`
	ThumbnailURL  *string    `json:"thumbnail_url,omitempty"`
	ImageURL      *string    `json:"image_url,omitempty"`
	MinPlayers    *int       `json:"min_players,omitempty"`
	MaxPlayers    *int       `json:"max_players,omitempty"`
	PlayingTime   *int       `json:"playing_time,omitempty"`
	BGGRating     *float64   `json:"bgg_rating,omitempty"`
	FromBGG       bool       `json:"from_bgg"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Match records a single played game and its winner.
type Match struct {
	ID         uuid.UUID `json:"id"`
	GameID     uuid.UUID `json:"game_id"`
	WinnerID   uuid.UUID `json:"winner_id"`
	DatePlayed time.Time `json:"date_played"`
	CreatedAt  time.Time `json:"created_at"`
}

// MatchWithDetails is the joined representation returned by match listings.
type MatchWithDetails struct {
	ID         uuid.UUID `json:"id"`
	GameID     uuid.UUID `json:"game_id"`
	GameName   string    `json:"game_name"`
	WinnerID   uuid.UUID `json:"winner_id"`
	WinnerName string    `json:"winner_name"`
	DatePlayed time.Time `json:"date_played"`
}

// CollectionItem is the normalized representation of one BoardGameGeek
// collection entry after parsing. It is ephemeral: produced by the BGG
// client, consumed by the reconciler, then discarded.
//
// BGGID and Name are required; items missing either are dropped during
// parsing and never reach reconciliation. All other fields are optional
// upstream and modeled as pointers so "absent" and "zero" stay distinct.
type CollectionItem struct {
	BGGID         int
	Name          string
	YearPublished *int
	ThumbnailURL  *string
	ImageURL      *string
	MinPlayers    *int
	MaxPlayers    *int
	PlayingTime   *int
	Rating        *float64
}

// SyncResult summarizes one collection sync invocation.
//
// Success reflects the batch commit only: a sync that commits with some
// per-record errors still reports Success=true with those errors attached.
type SyncResult struct {
	Success        bool     `json:"success"`
	GamesAdded     int      `json:"games_added"`
	GamesUpdated   int      `json:"games_updated"`
	Errors         []string `json:"errors,omitempty"`
	TotalGames     int      `json:"total_games"`
	SkippedRecords int      `json:"skipped_records"`
}

// PlayerGameStats holds one player's record for a single game.
type PlayerGameStats struct {
	Wins    int     `json:"wins"`
	WinRate float64 `json:"win_rate"`
}

// GameStats aggregates match outcomes for one game.
type GameStats struct {
	GameID       uuid.UUID                  `json:"game_id"`
	GameName     string                     `json:"game_name"`
	TotalMatches int                        `json:"total_matches"`
	LastPlayed   *time.Time                 `json:"last_played,omitempty"`
	PlayerStats  map[string]PlayerGameStats `json:"player_stats"`
}
