// Shelfplay - Board Game Collection and Match Tracker
// SPDX-License-Identifier: MIT
// https://github.com/shelfplay/shelfplay

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shelfplay/shelfplay/internal/config"
	"github.com/shelfplay/shelfplay/internal/models"
)

// newTestDB creates an in-memory database for testing.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{
		Path:      "",
		MaxMemory: "256MB",
		Threads:   1,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return db
}

func TestPlayerCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice, err := db.CreatePlayer(ctx, "Alice")
	if err != nil {
		t.Fatalf("CreatePlayer() error = %v", err)
	}
	if alice.Name != "Alice" {
		t.Errorf("Name = %q, want Alice", alice.Name)
	}

	got, err := db.GetPlayer(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetPlayer() error = %v", err)
	}
	if got.ID != alice.ID || got.Name != alice.Name {
		t.Errorf("GetPlayer() = %+v, want %+v", got, alice)
	}

	if _, err := db.CreatePlayer(ctx, "Bob"); err != nil {
		t.Fatalf("CreatePlayer() error = %v", err)
	}
	players, err := db.ListPlayers(ctx)
	if err != nil {
		t.Fatalf("ListPlayers() error = %v", err)
	}
	if len(players) != 2 {
		t.Fatalf("ListPlayers() returned %d players, want 2", len(players))
	}
	if players[0].Name != "Alice" || players[1].Name != "Bob" {
		t.Errorf("ListPlayers() order = [%s, %s], want [Alice, Bob]", players[0].Name, players[1].Name)
	}

	if err := db.DeletePlayer(ctx, alice.ID); err != nil {
		t.Fatalf("DeletePlayer() error = %v", err)
	}
	if _, err := db.GetPlayer(ctx, alice.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPlayer() after delete error = %v, want ErrNotFound", err)
	}
}

func TestPlayerDuplicateNameCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.CreatePlayer(ctx, "Alice"); err != nil {
		t.Fatalf("CreatePlayer() error = %v", err)
	}
	_, err := db.CreatePlayer(ctx, "ALICE")
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("CreatePlayer(ALICE) error = %v, want ErrDuplicateName", err)
	}
}

func TestPlayerDeleteProtection(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	player, err := db.CreatePlayer(ctx, "Alice")
	if err != nil {
		t.Fatalf("CreatePlayer() error = %v", err)
	}
	game, err := db.CreateGame(ctx, "Catan")
	if err != nil {
		t.Fatalf("CreateGame() error = %v", err)
	}
	if _, err := db.CreateMatch(ctx, game.ID, player.ID, time.Now()); err != nil {
		t.Fatalf("CreateMatch() error = %v", err)
	}

	if err := db.DeletePlayer(ctx, player.ID); !errors.Is(err, ErrPlayerHasMatches) {
		t.Errorf("DeletePlayer() error = %v, want ErrPlayerHasMatches", err)
	}
}

func TestGameCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	game, err := db.CreateGame(ctx, "Catan")
	if err != nil {
		t.Fatalf("CreateGame() error = %v", err)
	}
	if game.FromBGG {
		t.Error("manually created game has FromBGG = true")
	}
	if game.BGGID != nil {
		t.Errorf("manually created game has BGGID = %v, want nil", *game.BGGID)
	}

	got, err := db.GetGame(ctx, game.ID)
	if err != nil {
		t.Fatalf("GetGame() error = %v", err)
	}
	if got.Name != "Catan" {
		t.Errorf("GetGame().Name = %q, want Catan", got.Name)
	}

	byName, err := db.GetGameByName(ctx, "cAtAn")
	if err != nil {
		t.Fatalf("GetGameByName() error = %v", err)
	}
	if byName.ID != game.ID {
		t.Errorf("GetGameByName() ID = %s, want %s", byName.ID, game.ID)
	}

	if _, err := db.CreateGame(ctx, "CATAN"); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("CreateGame(CATAN) error = %v, want ErrDuplicateName", err)
	}

	if err := db.DeleteGame(ctx, game.ID); err != nil {
		t.Fatalf("DeleteGame() error = %v", err)
	}
	if _, err := db.GetGame(ctx, game.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetGame() after delete error = %v, want ErrNotFound", err)
	}
}

func TestGameDeleteProtection(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	player, err := db.CreatePlayer(ctx, "Alice")
	if err != nil {
		t.Fatalf("CreatePlayer() error = %v", err)
	}
	game, err := db.CreateGame(ctx, "Catan")
	if err != nil {
		t.Fatalf("CreateGame() error = %v", err)
	}
	if _, err := db.CreateMatch(ctx, game.ID, player.ID, time.Now()); err != nil {
		t.Fatalf("CreateMatch() error = %v", err)
	}

	if err := db.DeleteGame(ctx, game.ID); !errors.Is(err, ErrGameHasMatches) {
		t.Errorf("DeleteGame() error = %v, want ErrGameHasMatches", err)
	}
}

func TestCreateMatchMissingReferences(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	player, err := db.CreatePlayer(ctx, "Alice")
	if err != nil {
		t.Fatalf("CreatePlayer() error = %v", err)
	}
	game, err := db.CreateGame(ctx, "Catan")
	if err != nil {
		t.Fatalf("CreateGame() error = %v", err)
	}

	if _, err := db.CreateMatch(ctx, uuid.New(), player.ID, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("CreateMatch() with unknown game error = %v, want ErrNotFound", err)
	}
	if _, err := db.CreateMatch(ctx, game.ID, uuid.New(), time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("CreateMatch() with unknown winner error = %v, want ErrNotFound", err)
	}
}

func TestListMatchesOrderAndDetails(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice, _ := db.CreatePlayer(ctx, "Alice")
	bob, _ := db.CreatePlayer(ctx, "Bob")
	game, _ := db.CreateGame(ctx, "Catan")

	older := time.Date(2026, 1, 10, 18, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 20, 18, 0, 0, 0, time.UTC)
	if _, err := db.CreateMatch(ctx, game.ID, alice.ID, older); err != nil {
		t.Fatalf("CreateMatch() error = %v", err)
	}
	if _, err := db.CreateMatch(ctx, game.ID, bob.ID, newer); err != nil {
		t.Fatalf("CreateMatch() error = %v", err)
	}

	matches, err := db.ListMatches(ctx, 50, 0)
	if err != nil {
		t.Fatalf("ListMatches() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("ListMatches() returned %d matches, want 2", len(matches))
	}
	if matches[0].WinnerName != "Bob" {
		t.Errorf("most recent match winner = %q, want Bob", matches[0].WinnerName)
	}
	if matches[0].GameName != "Catan" {
		t.Errorf("GameName = %q, want Catan", matches[0].GameName)
	}
	if !matches[0].DatePlayed.After(matches[1].DatePlayed) {
		t.Error("matches not ordered by date_played descending")
	}
}

func TestGameStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice, _ := db.CreatePlayer(ctx, "Alice")
	bob, _ := db.CreatePlayer(ctx, "Bob")
	game, _ := db.CreateGame(ctx, "Catan")

	last := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	dates := []struct {
		winner uuid.UUID
		played time.Time
	}{
		{alice.ID, time.Date(2026, 1, 1, 18, 0, 0, 0, time.UTC)},
		{alice.ID, time.Date(2026, 2, 1, 18, 0, 0, 0, time.UTC)},
		{bob.ID, last},
	}
	for _, d := range dates {
		if _, err := db.CreateMatch(ctx, game.ID, d.winner, d.played); err != nil {
			t.Fatalf("CreateMatch() error = %v", err)
		}
	}

	stats, err := db.GetGameStats(ctx, game.ID)
	if err != nil {
		t.Fatalf("GetGameStats() error = %v", err)
	}
	if stats.TotalMatches != 3 {
		t.Errorf("TotalMatches = %d, want 3", stats.TotalMatches)
	}
	if stats.LastPlayed == nil || !stats.LastPlayed.Equal(last) {
		t.Errorf("LastPlayed = %v, want %v", stats.LastPlayed, last)
	}
	aliceStats := stats.PlayerStats["Alice"]
	if aliceStats.Wins != 2 {
		t.Errorf("Alice wins = %d, want 2", aliceStats.Wins)
	}
	if aliceStats.WinRate != 66.7 {
		t.Errorf("Alice win rate = %v, want 66.7", aliceStats.WinRate)
	}
	bobStats := stats.PlayerStats["Bob"]
	if bobStats.Wins != 1 || bobStats.WinRate != 33.3 {
		t.Errorf("Bob stats = %+v, want 1 win at 33.3", bobStats)
	}
}

func TestGameStatsNoMatches(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	game, _ := db.CreateGame(ctx, "Catan")
	stats, err := db.GetGameStats(ctx, game.ID)
	if err != nil {
		t.Fatalf("GetGameStats() error = %v", err)
	}
	if stats.TotalMatches != 0 {
		t.Errorf("TotalMatches = %d, want 0", stats.TotalMatches)
	}
	if stats.LastPlayed != nil {
		t.Errorf("LastPlayed = %v, want nil", stats.LastPlayed)
	}
	if len(stats.PlayerStats) != 0 {
		t.Errorf("PlayerStats = %v, want empty", stats.PlayerStats)
	}
}

func TestUpdatePlayer(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice, _ := db.CreatePlayer(ctx, "Alice")
	if _, err := db.CreatePlayer(ctx, "Bob"); err != nil {
		t.Fatalf("CreatePlayer() error = %v", err)
	}

	renamed, err := db.UpdatePlayer(ctx, alice.ID, "Alicia")
	if err != nil {
		t.Fatalf("UpdatePlayer() error = %v", err)
	}
	if renamed.Name != "Alicia" {
		t.Errorf("Name = %q, want Alicia", renamed.Name)
	}

	// Renaming onto another player's name must fail, but keeping your own
	// name with different casing must not.
	if _, err := db.UpdatePlayer(ctx, alice.ID, "BOB"); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("UpdatePlayer(BOB) error = %v, want ErrDuplicateName", err)
	}
	if _, err := db.UpdatePlayer(ctx, alice.ID, "ALICIA"); err != nil {
		t.Errorf("UpdatePlayer(ALICIA) on self error = %v, want nil", err)
	}

	if _, err := db.UpdatePlayer(ctx, uuid.New(), "Nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdatePlayer() unknown id error = %v, want ErrNotFound", err)
	}
}

func TestUpdateGame(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	catan, _ := db.CreateGame(ctx, "Catan")
	if _, err := db.CreateGame(ctx, "Azul"); err != nil {
		t.Fatalf("CreateGame() error = %v", err)
	}

	renamed, err := db.UpdateGame(ctx, catan.ID, "Catan 3D")
	if err != nil {
		t.Fatalf("UpdateGame() error = %v", err)
	}
	if renamed.Name != "Catan 3D" {
		t.Errorf("Name = %q, want Catan 3D", renamed.Name)
	}
	if !renamed.UpdatedAt.After(catan.UpdatedAt) {
		t.Error("UpdatedAt not advanced by rename")
	}

	if _, err := db.UpdateGame(ctx, catan.ID, "AZUL"); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("UpdateGame(AZUL) error = %v, want ErrDuplicateName", err)
	}
}

func TestUpdateMatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice, _ := db.CreatePlayer(ctx, "Alice")
	bob, _ := db.CreatePlayer(ctx, "Bob")
	game, _ := db.CreateGame(ctx, "Catan")

	match, err := db.CreateMatch(ctx, game.ID, alice.ID, time.Now())
	if err != nil {
		t.Fatalf("CreateMatch() error = %v", err)
	}

	played := time.Date(2026, 4, 1, 18, 0, 0, 0, time.UTC)
	updated, err := db.UpdateMatch(ctx, match.ID, game.ID, bob.ID, played)
	if err != nil {
		t.Fatalf("UpdateMatch() error = %v", err)
	}
	if updated.WinnerID != bob.ID {
		t.Errorf("WinnerID = %s, want %s", updated.WinnerID, bob.ID)
	}
	if !updated.DatePlayed.Equal(played) {
		t.Errorf("DatePlayed = %v, want %v", updated.DatePlayed, played)
	}

	if _, err := db.UpdateMatch(ctx, match.ID, game.ID, uuid.New(), played); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateMatch() unknown winner error = %v, want ErrNotFound", err)
	}
	if _, err := db.UpdateMatch(ctx, uuid.New(), game.ID, bob.ID, played); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateMatch() unknown match error = %v, want ErrNotFound", err)
	}
}

func TestListGameStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	alice, _ := db.CreatePlayer(ctx, "Alice")
	catan, _ := db.CreateGame(ctx, "Catan")
	azul, _ := db.CreateGame(ctx, "Azul")
	if _, err := db.CreateGame(ctx, "Unplayed"); err != nil {
		t.Fatalf("CreateGame() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := db.CreateMatch(ctx, catan.ID, alice.ID, time.Now()); err != nil {
			t.Fatalf("CreateMatch() error = %v", err)
		}
	}
	if _, err := db.CreateMatch(ctx, azul.ID, alice.ID, time.Now()); err != nil {
		t.Fatalf("CreateMatch() error = %v", err)
	}

	stats, err := db.ListGameStats(ctx)
	if err != nil {
		t.Fatalf("ListGameStats() error = %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("ListGameStats() returned %d games, want 2 (unplayed games excluded)", len(stats))
	}
	if stats[0].GameName != "Catan" || stats[0].TotalMatches != 2 {
		t.Errorf("stats[0] = %s/%d, want Catan/2 (most played first)", stats[0].GameName, stats[0].TotalMatches)
	}
	if stats[1].GameName != "Azul" || stats[1].TotalMatches != 1 {
		t.Errorf("stats[1] = %s/%d, want Azul/1", stats[1].GameName, stats[1].TotalMatches)
	}
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestGameBatchInsertAndVisibility(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	batch, err := db.BeginGameBatch(ctx)
	if err != nil {
		t.Fatalf("BeginGameBatch() error = %v", err)
	}

	item := models.CollectionItem{
		BGGID:         13,
		Name:          "Catan",
		YearPublished: intPtr(1995),
		MinPlayers:    intPtr(3),
		MaxPlayers:    intPtr(4),
		PlayingTime:   intPtr(120),
		Rating:        floatPtr(7.1),
	}
	if err := batch.InsertSyncedGame(ctx, item); err != nil {
		t.Fatalf("InsertSyncedGame() error = %v", err)
	}

	// Rows inserted in the batch must be visible to later batch lookups.
	inBatch, err := batch.GetGameByBGGID(ctx, 13)
	if err != nil {
		t.Fatalf("GetGameByBGGID() in batch error = %v", err)
	}
	if inBatch.Name != "Catan" || !inBatch.FromBGG {
		t.Errorf("batch lookup = %+v, want synced Catan", inBatch)
	}

	if err := batch.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	game, err := db.GetGameByBGGID(ctx, 13)
	if err != nil {
		t.Fatalf("GetGameByBGGID() after commit error = %v", err)
	}
	if game.BGGRating == nil || *game.BGGRating != 7.1 {
		t.Errorf("BGGRating = %v, want 7.1", game.BGGRating)
	}
	if game.YearPublished == nil || *game.YearPublished != 1995 {
		t.Errorf("YearPublished = %v, want 1995", game.YearPublished)
	}
	if game.LastSyncedAt == nil {
		t.Error("LastSyncedAt = nil, want set")
	}
}

func TestGameBatchRollback(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	batch, err := db.BeginGameBatch(ctx)
	if err != nil {
		t.Fatalf("BeginGameBatch() error = %v", err)
	}
	item := models.CollectionItem{BGGID: 13, Name: "Catan"}
	if err := batch.InsertSyncedGame(ctx, item); err != nil {
		t.Fatalf("InsertSyncedGame() error = %v", err)
	}
	if err := batch.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	if _, err := db.GetGameByBGGID(ctx, 13); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetGameByBGGID() after rollback error = %v, want ErrNotFound", err)
	}
}

func TestGameBatchUpdateMergesManualGame(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	manual, err := db.CreateGame(ctx, "catan")
	if err != nil {
		t.Fatalf("CreateGame() error = %v", err)
	}

	batch, err := db.BeginGameBatch(ctx)
	if err != nil {
		t.Fatalf("BeginGameBatch() error = %v", err)
	}
	item := models.CollectionItem{BGGID: 13, Name: "Catan", Rating: floatPtr(7.1)}

	found, err := batch.GetGameByName(ctx, item.Name)
	if err != nil {
		t.Fatalf("GetGameByName() error = %v", err)
	}
	if found.ID != manual.ID {
		t.Fatalf("GetGameByName() ID = %s, want %s", found.ID, manual.ID)
	}
	if err := batch.UpdateSyncedGame(ctx, found.ID, item); err != nil {
		t.Fatalf("UpdateSyncedGame() error = %v", err)
	}
	if err := batch.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	merged, err := db.GetGame(ctx, manual.ID)
	if err != nil {
		t.Fatalf("GetGame() error = %v", err)
	}
	if merged.Name != "Catan" {
		t.Errorf("merged name = %q, want Catan (canonical casing)", merged.Name)
	}
	if merged.BGGID == nil || *merged.BGGID != 13 {
		t.Errorf("merged BGGID = %v, want 13", merged.BGGID)
	}
	if !merged.FromBGG {
		t.Error("merged FromBGG = false, want true")
	}
}
