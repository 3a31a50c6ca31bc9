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

// CreatePlayer inserts a new player. Player names are unique
// case-insensitively; a conflicting name returns ErrDuplicateName.
func (db *DB) CreatePlayer(ctx context.Context, name string) (*models.Player, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM players WHERE LOWER(name) = LOWER(?))`, name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check player name: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("player %q: %w", name, ErrDuplicateName)
	}

	player := &models.Player{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO players (id, name, created_at) VALUES (?, ?, ?)`,
		player.ID, player.Name, player.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert player: %w", err)
	}
	return player, nil
}

// GetPlayer returns a player by ID, or ErrNotFound.
func (db *DB) GetPlayer(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	var p models.Player
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM players WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query player: %w", err)
	}
	return &p, nil
}

// ListPlayers returns all players ordered by name.
func (db *DB) ListPlayers(ctx context.Context) ([]models.Player, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, created_at FROM players ORDER BY LOWER(name)`)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	players := make([]models.Player, 0)
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate players: %w", err)
	}
	return players, nil
}

// UpdatePlayer renames a player. The new name must be unique
// case-insensitively; a conflicting name returns ErrDuplicateName.
func (db *DB) UpdatePlayer(ctx context.Context, id uuid.UUID, name string) (*models.Player, error) {
	player, err := db.GetPlayer(ctx, id)
	if err != nil {
		return nil, err
	}

	var exists bool
	err = db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM players WHERE LOWER(name) = LOWER(?) AND id != ?)`,
		name, id).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check player name: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("player %q: %w", name, ErrDuplicateName)
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE players SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update player: %w", err)
	}
	player.Name = name
	return player, nil
}

// DeletePlayer removes a player. Players referenced by recorded matches
// cannot be deleted; attempting it returns ErrPlayerHasMatches.
func (db *DB) DeletePlayer(ctx context.Context, id uuid.UUID) error {
	var matchCount int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE winner_id = ?`, id).Scan(&matchCount)
	if err != nil {
		return fmt.Errorf("failed to count player matches: %w", err)
	}
	if matchCount > 0 {
		return fmt.Errorf("player %s: %w", id, ErrPlayerHasMatches)
	}

	result, err := db.conn.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("player %s: %w", id, ErrNotFound)
	}
	return nil
}
