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

// CreateMatch records a played match. The referenced game and winner must
// exist; a missing reference returns ErrNotFound.
func (db *DB) CreateMatch(ctx context.Context, gameID, winnerID uuid.UUID, datePlayed time.Time) (*models.Match, error) {
	if _, err := db.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	if _, err := db.GetPlayer(ctx, winnerID); err != nil {
		return nil, err
	}

	match := &models.Match{
		ID:         uuid.New(),
		GameID:     gameID,
		WinnerID:   winnerID,
		DatePlayed: datePlayed,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO matches (id, game_id, winner_id, date_played, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		match.ID, match.GameID, match.WinnerID, match.DatePlayed, match.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert match: %w", err)
	}
	return match, nil
}

// GetMatch returns a match by ID, or ErrNotFound.
func (db *DB) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	var m models.Match
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, game_id, winner_id, date_played, created_at
		 FROM matches WHERE id = ?`, id).
		Scan(&m.ID, &m.GameID, &m.WinnerID, &m.DatePlayed, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query match: %w", err)
	}
	return &m, nil
}

// ListMatches returns matches joined with game and winner names, most recent
// first.
func (db *DB) ListMatches(ctx context.Context, limit, offset int) ([]models.MatchWithDetails, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT m.id, m.game_id, g.name, m.winner_id, p.name, m.date_played
		 FROM matches m
		 JOIN games g ON g.id = m.game_id
		 JOIN players p ON p.id = m.winner_id
		 ORDER BY m.date_played DESC, m.created_at DESC
		 LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]models.MatchWithDetails, 0)
	for rows.Next() {
		var m models.MatchWithDetails
		if err := rows.Scan(&m.ID, &m.GameID, &m.GameName, &m.WinnerID, &m.WinnerName, &m.DatePlayed); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}
	return matches, nil
}

// UpdateMatch rewrites a recorded match. The referenced game and winner must
// exist; a missing reference returns ErrNotFound.
func (db *DB) UpdateMatch(ctx context.Context, id, gameID, winnerID uuid.UUID, datePlayed time.Time) (*models.Match, error) {
	match, err := db.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := db.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	if _, err := db.GetPlayer(ctx, winnerID); err != nil {
		return nil, err
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE matches SET game_id = ?, winner_id = ?, date_played = ? WHERE id = ?`,
		gameID, winnerID, datePlayed, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}
	match.GameID = gameID
	match.WinnerID = winnerID
	match.DatePlayed = datePlayed
	return match, nil
}

// DeleteMatch removes a recorded match, or returns ErrNotFound.
func (db *DB) DeleteMatch(ctx context.Context, id uuid.UUID) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	return nil
}
