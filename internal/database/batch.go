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

// GameBatch wraps a transaction for collection sync. All lookups and writes
// go through the same transaction so games inserted earlier in a sync run are
// visible to later identity checks, and the whole run commits or rolls back
// as a unit.
type GameBatch struct {
	tx *sql.Tx
}

// BeginGameBatch starts a sync transaction.
func (db *DB) BeginGameBatch(ctx context.Context) (*GameBatch, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin sync transaction: %w", err)
	}
	return &GameBatch{tx: tx}, nil
}

// GetGameByBGGID returns the game linked to the given BoardGameGeek ID within
// the batch, or ErrNotFound.
func (b *GameBatch) GetGameByBGGID(ctx context.Context, bggID int) (*models.Game, error) {
	row := b.tx.QueryRowContext(ctx,
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

// GetGameByName returns the game whose name matches case-insensitively
// within the batch, or ErrNotFound.
func (b *GameBatch) GetGameByName(ctx context.Context, name string) (*models.Game, error) {
	row := b.tx.QueryRowContext(ctx,
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

// InsertSyncedGame inserts a game sourced from a collection item.
func (b *GameBatch) InsertSyncedGame(ctx context.Context, item models.CollectionItem) error {
	now := time.Now().UTC()
	_, err := b.tx.ExecContext(ctx,
		`INSERT INTO games (id, name, bgg_id, year_published, thumbnail_url,
			image_url, min_players, max_players, playing_time, bgg_rating,
			from_bgg, last_synced_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, TRUE, ?, ?, ?)`,
		uuid.New(), item.Name, item.BGGID, item.YearPublished, item.ThumbnailURL,
		item.ImageURL, item.MinPlayers, item.MaxPlayers, item.PlayingTime,
		item.Rating, now, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert synced game: %w", err)
	}
	return nil
}

// UpdateSyncedGame refreshes an existing game with collection item metadata.
// The row becomes BGG-linked regardless of how it was originally created.
func (b *GameBatch) UpdateSyncedGame(ctx context.Context, id uuid.UUID, item models.CollectionItem) error {
	now := time.Now().UTC()
	_, err := b.tx.ExecContext(ctx,
		`UPDATE games SET
			name = ?, bgg_id = ?, year_published = ?, thumbnail_url = ?,
			image_url = ?, min_players = ?, max_players = ?, playing_time = ?,
			bgg_rating = ?, from_bgg = TRUE, last_synced_at = ?, updated_at = ?
		 WHERE id = ?`,
		item.Name, item.BGGID, item.YearPublished, item.ThumbnailURL,
		item.ImageURL, item.MinPlayers, item.MaxPlayers, item.PlayingTime,
		item.Rating, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to update synced game: %w", err)
	}
	return nil
}

// Commit commits the batch.
func (b *GameBatch) Commit() error {
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync transaction: %w", err)
	}
	return nil
}

// Rollback aborts the batch. Safe to call after Commit.
func (b *GameBatch) Rollback() error {
	err := b.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back sync transaction: %w", err)
	}
	return nil
}
