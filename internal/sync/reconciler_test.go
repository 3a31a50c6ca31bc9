// Shelfplay - Board Game Collection and Match Tracker
// SPDX-License-Identifier: MIT
// https://github.com/shelfplay/shelfplay

package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shelfplay/shelfplay/internal/bgg"
	"github.com/shelfplay/shelfplay/internal/database"
	"github.com/shelfplay/shelfplay/internal/models"
)

type fakeFetcher struct {
	result *bgg.CollectionResult
	err    error
}

func (f *fakeFetcher) FetchCollection(ctx context.Context, username string) (*bgg.CollectionResult, error) {
	return f.result, f.err
}

// fakeStore keeps games in memory across batches so multi-run tests can
// verify idempotence.
type fakeStore struct {
	games []models.Game

	commitErr error
	updateErr func(item models.CollectionItem) error
}

func (s *fakeStore) BeginGameBatch(ctx context.Context) (Batch, error) {
	staged := make([]models.Game, len(s.games))
	copy(staged, s.games)
	return &fakeBatch{store: s, staged: staged}, nil
}

type fakeBatch struct {
	store  *fakeStore
	staged []models.Game
	done   bool
}

func (b *fakeBatch) GetGameByBGGID(ctx context.Context, bggID int) (*models.Game, error) {
	for i := range b.staged {
		if b.staged[i].BGGID != nil && *b.staged[i].BGGID == bggID {
			g := b.staged[i]
			return &g, nil
		}
	}
	return nil, fmt.Errorf("bgg id %d: %w", bggID, database.ErrNotFound)
}

func (b *fakeBatch) GetGameByName(ctx context.Context, name string) (*models.Game, error) {
	for i := range b.staged {
		if strings.EqualFold(b.staged[i].Name, name) {
			g := b.staged[i]
			return &g, nil
		}
	}
	return nil, fmt.Errorf("game %q: %w", name, database.ErrNotFound)
}

func (b *fakeBatch) InsertSyncedGame(ctx context.Context, item models.CollectionItem) error {
	now := time.Now().UTC()
	bggID := item.BGGID
	b.staged = append(b.staged, models.Game{
		ID:           uuid.New(),
		Name:         item.Name,
		BGGID:        &bggID,
		BGGRating:    item.Rating,
		FromBGG:      true,
		LastSyncedAt: &now,
	})
	return nil
}

func (b *fakeBatch) UpdateSyncedGame(ctx context.Context, id uuid.UUID, item models.CollectionItem) error {
	if b.store.updateErr != nil {
		if err := b.store.updateErr(item); err != nil {
			return err
		}
	}
	for i := range b.staged {
		if b.staged[i].ID == id {
			now := time.Now().UTC()
			bggID := item.BGGID
			b.staged[i].Name = item.Name
			b.staged[i].BGGID = &bggID
			b.staged[i].BGGRating = item.Rating
			b.staged[i].FromBGG = true
			b.staged[i].LastSyncedAt = &now
			return nil
		}
	}
	return fmt.Errorf("game %s: %w", id, database.ErrNotFound)
}

func (b *fakeBatch) Commit() error {
	if b.store.commitErr != nil {
		return b.store.commitErr
	}
	b.store.games = b.staged
	b.done = true
	return nil
}

func (b *fakeBatch) Rollback() error {
	b.done = true
	return nil
}

func item(bggID int, name string) models.CollectionItem {
	return models.CollectionItem{BGGID: bggID, Name: name}
}

func TestSyncAddsNewGames(t *testing.T) {
	store := &fakeStore{}
	fetcher := &fakeFetcher{result: &bgg.CollectionResult{
		Items:   []models.CollectionItem{item(13, "Catan"), item(822, "Carcassonne")},
		Skipped: 1,
	}}

	result, err := NewReconciler(fetcher, store).Sync(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !result.Success {
		t.Error("Success = false, want true")
	}
	if result.GamesAdded != 2 || result.GamesUpdated != 0 {
		t.Errorf("added/updated = %d/%d, want 2/0", result.GamesAdded, result.GamesUpdated)
	}
	if result.TotalGames != 2 {
		t.Errorf("TotalGames = %d, want 2", result.TotalGames)
	}
	if result.SkippedRecords != 1 {
		t.Errorf("SkippedRecords = %d, want 1", result.SkippedRecords)
	}
	if len(store.games) != 2 {
		t.Errorf("store holds %d games, want 2", len(store.games))
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	store := &fakeStore{}
	fetcher := &fakeFetcher{result: &bgg.CollectionResult{
		Items: []models.CollectionItem{item(13, "Catan")},
	}}
	reconciler := NewReconciler(fetcher, store)

	if _, err := reconciler.Sync(context.Background(), "alice"); err != nil {
		t.Fatalf("first Sync() error = %v", err)
	}
	result, err := reconciler.Sync(context.Background(), "alice")
	if err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if result.GamesAdded != 0 || result.GamesUpdated != 1 {
		t.Errorf("second run added/updated = %d/%d, want 0/1", result.GamesAdded, result.GamesUpdated)
	}
	if len(store.games) != 1 {
		t.Errorf("store holds %d games after two runs, want 1", len(store.games))
	}
}

func TestSyncMergesManualGameByName(t *testing.T) {
	manualID := uuid.New()
	store := &fakeStore{games: []models.Game{{ID: manualID, Name: "catan"}}}
	rating := 7.09
	fetcher := &fakeFetcher{result: &bgg.CollectionResult{
		Items: []models.CollectionItem{{BGGID: 13, Name: "Catan", Rating: &rating}},
	}}

	result, err := NewReconciler(fetcher, store).Sync(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if result.GamesAdded != 0 || result.GamesUpdated != 1 {
		t.Errorf("added/updated = %d/%d, want 0/1", result.GamesAdded, result.GamesUpdated)
	}

	merged := store.games[0]
	if merged.ID != manualID {
		t.Error("merge created a new row instead of updating the manual game")
	}
	if merged.Name != "Catan" {
		t.Errorf("merged name = %q, want canonical Catan", merged.Name)
	}
	if merged.BGGID == nil || *merged.BGGID != 13 {
		t.Errorf("merged BGGID = %v, want 13", merged.BGGID)
	}
	if !merged.FromBGG {
		t.Error("merged FromBGG = false, want true")
	}
}

func TestSyncPrefersBGGIDOverName(t *testing.T) {
	linkedID := uuid.New()
	bggID := 13
	store := &fakeStore{games: []models.Game{
		{ID: linkedID, Name: "Settlers of Catan", BGGID: &bggID, FromBGG: true},
		{ID: uuid.New(), Name: "Catan"},
	}}
	fetcher := &fakeFetcher{result: &bgg.CollectionResult{
		Items: []models.CollectionItem{item(13, "Catan")},
	}}

	result, err := NewReconciler(fetcher, store).Sync(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if result.GamesUpdated != 1 {
		t.Fatalf("GamesUpdated = %d, want 1", result.GamesUpdated)
	}
	// The BGG-linked row wins even though another row matches by name.
	for _, g := range store.games {
		if g.ID == linkedID && g.Name != "Catan" {
			t.Errorf("linked game name = %q, want refreshed to Catan", g.Name)
		}
	}
}

func TestSyncIsolatesRecordErrors(t *testing.T) {
	existingID := 13
	store := &fakeStore{
		games: []models.Game{{ID: uuid.New(), Name: "Catan", BGGID: &existingID, FromBGG: true}},
		updateErr: func(item models.CollectionItem) error {
			if item.BGGID == 13 {
				return errors.New("constraint violation")
			}
			return nil
		},
	}
	fetcher := &fakeFetcher{result: &bgg.CollectionResult{
		Items: []models.CollectionItem{item(13, "Catan"), item(822, "Carcassonne")},
	}}

	result, err := NewReconciler(fetcher, store).Sync(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !result.Success {
		t.Error("Success = false, want true despite record error")
	}
	if result.GamesAdded != 1 {
		t.Errorf("GamesAdded = %d, want 1 (other records still processed)", result.GamesAdded)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "Catan") {
		t.Errorf("Errors = %v, want one entry naming Catan", result.Errors)
	}
}

func TestSyncRejectsItemsWithoutBGGID(t *testing.T) {
	store := &fakeStore{}
	fetcher := &fakeFetcher{result: &bgg.CollectionResult{
		Items: []models.CollectionItem{item(0, "Mystery Game"), item(13, "Catan")},
	}}

	result, err := NewReconciler(fetcher, store).Sync(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if result.GamesAdded != 1 {
		t.Errorf("GamesAdded = %d, want 1 (item without bgg id dropped)", result.GamesAdded)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "Mystery Game") {
		t.Errorf("Errors = %v, want one entry naming Mystery Game", result.Errors)
	}
	if len(store.games) != 1 {
		t.Errorf("store holds %d games, want 1", len(store.games))
	}
}

func TestSyncCommitFailureIsAtomic(t *testing.T) {
	store := &fakeStore{commitErr: errors.New("disk full")}
	fetcher := &fakeFetcher{result: &bgg.CollectionResult{
		Items: []models.CollectionItem{item(13, "Catan")},
	}}

	result, err := NewReconciler(fetcher, store).Sync(context.Background(), "alice")
	if err == nil {
		t.Fatal("Sync() error = nil, want commit error")
	}
	if result.Success {
		t.Error("Success = true, want false")
	}
	if result.GamesAdded != 0 || result.GamesUpdated != 0 {
		t.Errorf("counters = %d/%d after failed commit, want 0/0", result.GamesAdded, result.GamesUpdated)
	}
	if len(store.games) != 0 {
		t.Errorf("store holds %d games after failed commit, want 0", len(store.games))
	}
}

func TestSyncFetchFailure(t *testing.T) {
	store := &fakeStore{}
	fetcher := &fakeFetcher{err: fmt.Errorf("user nobody: %w", bgg.ErrUserNotFound)}

	result, err := NewReconciler(fetcher, store).Sync(context.Background(), "nobody")
	if !errors.Is(err, bgg.ErrUserNotFound) {
		t.Fatalf("Sync() error = %v, want ErrUserNotFound", err)
	}
	if result.Success {
		t.Error("Success = true, want false")
	}
	if len(result.Errors) == 0 {
		t.Error("Errors is empty, want fetch error recorded")
	}
}

func TestSyncEmptyCollection(t *testing.T) {
	store := &fakeStore{}
	fetcher := &fakeFetcher{result: &bgg.CollectionResult{Items: []models.CollectionItem{}}}

	result, err := NewReconciler(fetcher, store).Sync(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !result.Success {
		t.Error("Success = false, want true")
	}
	if result.TotalGames != 0 || result.GamesAdded != 0 {
		t.Errorf("result = %+v, want empty successful run", result)
	}
}
