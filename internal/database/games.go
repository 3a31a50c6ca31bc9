// Shelfplay - Board Game Collection and Match Tracker
// SPDX-License-Identifier: MIT
// https://github.com/shelfplay/shelfplay

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shelfplay/shelfplay/internal/models"
)

const gameColumns = `id, name, bgg_id, year_published, thumbnail_url, image_url,
	min_players, max_players, playing_time, bgg_rating, from_bgg, last_synced_at,
	created_at, updated_at`

// scanGame scans one game row. The row must select gameColumns in order.
func scanGame(row interface{ Scan(...any) error }) (*models.Game, error) {
	var g models.Game
	err := row.Scan(&g.ID, &g.Name, &g.BGGID, &g.YearPublished, &g.ThumbnailURL,
		&g.ImageURL, &g.MinPlayers, &g.MaxPlayers, &g.PlayingTime, &g.BGGRating,
		&g.FromBGG, &g.LastSyncedAt, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateGame inserts a manually created game. Game names are unique
// case-insensitively across manual and synced games; a conflicting name
// returns ErrDuplicateName.
func (db *DB) CreateGame(ctx context.Context, name string) (*models.Game, error) {
	existing, err := db.GetGameByName(ctx, name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("game %q: %w", name, ErrDuplicateName)
	}

	now := time.Now().UTC()
	game := &models.Game{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO games (id, name, from_bgg, created_at, updated_at)
		 VALUES (?, ?, FALSE, ?, ?)`,
		game.ID, game.Name, game.CreatedAt, game.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert game: %w", err)
	}
	return game, nil
}

// GetGame returns a game by ID, or ErrNotFound.
func (db *DB) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE id = ?`, id)
	game, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query game: %w", err)
	}
	return game, nil
}

// GetGameByBGGID returns the game linked to the given BoardGameGeek ID, or
// ErrNotFound.
func (db *DB) GetGameByBGGID(ctx context.Context, bggID int) (*models.Game, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE bgg_id = ?`, bggID)
	game, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bgg id %d: %w", bggID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query game by bgg id: %w", err)
	}
	return game, nil
}

// GetGameByName returns the game whose name matches case-insensitively, or
// ErrNotFound. This lookup backs the uniqueness rule shared by manual
// creation and collection sync.
func (db *DB) GetGameByName(ctx context.Context, name string) (*models.Game, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+gameColumns+` FROM games WHERE LOWER(name) = LOWER(?)`, name)
	game, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query game by name: %w", err)
	}
	return game, nil
}

// ListGames returns all games ordered by name.
func (db *DB) ListGames(ctx context.Context) ([]models.Game, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+gameColumns+` FROM games ORDER BY LOWER(name)`)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	games := make([]models.Game, 0)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, *game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate games: %w", err)
	}
	return games, nil
}

// UpdateGame renames a game. Only the name is editable here; enrichment
// fields are owned by collection sync. The new name must be unique
// case-insensitively across manual and synced games.
func (db *DB) UpdateGame(ctx context.Context, id uuid.UUID, name string) (*models.Game, error) {
	game, err := db.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}

	existing, err := db.GetGameByName(ctx, name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.ID != id {
		return nil, fmt.Errorf("game %q: %w", name, ErrDuplicateName)
	}

	now := time.Now().UTC()
	_, err = db.conn.ExecContext(ctx,
		`UPDATE games SET name = ?, updated_at = ? WHERE id = ?`, name, now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update game: %w", err)
	}
	game.Name = name
	game.UpdatedAt = now
	return game, nil
}

// DeleteGame removes a game. Games referenced by recorded matches cannot be
// deleted; attempting it returns ErrGameHasMatches.
func (db *DB) DeleteGame(ctx context.Context, id uuid.UUID) error {
	var matchCount int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE game_id = ?`, id).Scan(&matchCount)
	if err != nil {
		return fmt.Errorf("failed to count game matches: %w", err)
	}
	if matchCount > 0 {
		return fmt.Errorf("game %s: %w", id, ErrGameHasMatches)
	}

	result, err := db.conn.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	return nil
}
