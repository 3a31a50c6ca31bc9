// Shelfplay - Board Game Collection and Match Tracker
// SPDX-License-Identifier: MIT
// https://github.com/shelfplay/shelfplay

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// tableCreationQueries returns the table creation SQL statements.
//
// Name uniqueness for players and games is case-insensitive and enforced at
// the application level via LOWER(name) lookups before insert; DuckDB has no
// expression indexes with UNIQUE semantics.
func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS players (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS games (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			bgg_id INTEGER,
			year_published INTEGER,
			thumbnail_url TEXT,
			image_url TEXT,
			min_players INTEGER,
			max_players INTEGER,
			playing_time INTEGER,
			bgg_rating DOUBLE,
			from_bgg BOOLEAN NOT NULL DEFAULT FALSE,
			last_synced_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS matches (
			id UUID PRIMARY KEY,
			game_id UUID NOT NULL,
			winner_id UUID NOT NULL,
			date_played TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_games_bgg_id ON games(bgg_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_game_id ON matches(game_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_winner_id ON matches(winner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_date_played ON matches(date_played)`,
	}
}
