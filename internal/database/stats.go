// Shelfplay - Board Game Collection and Match Tracker
// SPDX-License-Identifier: MIT
// https://github.com/shelfplay/shelfplay

package database

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/shelfplay/shelfplay/internal/models"
)

// ListGameStats aggregates match outcomes for every game with at least one
// recorded match, most played first.
func (db *DB) ListGameStats(ctx context.Context) ([]models.GameStats, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT m.game_id, COUNT(*) AS total
		 FROM matches m
		 GROUP BY m.game_id
		 ORDER BY total DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate games: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		var total int
		if err := rows.Scan(&id, &total); err != nil {
			return nil, fmt.Errorf("failed to scan game aggregate: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate game aggregates: %w", err)
	}

	stats := make([]models.GameStats, 0, len(ids))
	for _, id := range ids {
		s, err := db.GetGameStats(ctx, id)
		if err != nil {
			return nil, err
		}
		stats = append(stats, *s)
	}
	return stats, nil
}

// GetGameStats aggregates match outcomes for one game: total matches, last
// played date, and per-player wins with win rate as a percentage rounded to
// one decimal.
func (db *DB) GetGameStats(ctx context.Context, gameID uuid.UUID) (*models.GameStats, error) {
	game, err := db.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	stats := &models.GameStats{
		GameID:      game.ID,
		GameName:    game.Name,
		PlayerStats: make(map[string]models.PlayerGameStats),
	}

	var lastPlayed *time.Time
	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(date_played) FROM matches WHERE game_id = ?`, gameID).
		Scan(&stats.TotalMatches, &lastPlayed)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate matches: %w", err)
	}
	stats.LastPlayed = lastPlayed

	if stats.TotalMatches == 0 {
		return stats, nil
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT p.name, COUNT(*) AS wins
		 FROM matches m
		 JOIN players p ON p.id = m.winner_id
		 WHERE m.game_id = ?
		 GROUP BY p.name
		 ORDER BY wins DESC`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query player wins: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var wins int
		if err := rows.Scan(&name, &wins); err != nil {
			return nil, fmt.Errorf("failed to scan player wins: %w", err)
		}
		rate := float64(wins) / float64(stats.TotalMatches) * 100
		stats.PlayerStats[name] = models.PlayerGameStats{
			Wins:    wins,
			WinRate: math.Round(rate*10) / 10,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate player wins: %w", err)
	}

	return stats, nil
}
