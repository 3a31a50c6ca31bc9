// Shelfplay - Board Game Collection and Match Tracker
// SPDX-License-Identifier: MIT
// https://github.com/shelfplay/shelfplay

// Package sync reconciles a BoardGameGeek collection into the local games
// table. Identity resolution is two-tiered: a collection item first matches
// the game carrying its BGG ID, then any game with the same name
// case-insensitively, and only then inserts a new row. Matching a manual
// game by name links it to BGG and refreshes its metadata in place, so
// match history attached to that game survives the merge.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shelfplay/shelfplay/internal/bgg"
	"github.com/shelfplay/shelfplay/internal/database"
	"github.com/shelfplay/shelfplay/internal/logging"
	"github.com/shelfplay/shelfplay/internal/metrics"
	"github.com/shelfplay/shelfplay/internal/models"
)

// Batch is the transactional surface one sync run writes through. All
// lookups and writes share one transaction; Commit makes the whole run
// visible atomically.
type Batch interface {
	GetGameByBGGID(ctx context.Context, bggID int) (*models.Game, error)
	GetGameByName(ctx context.Context, name string) (*models.Game, error)
	InsertSyncedGame(ctx context.Context, item models.CollectionItem) error
	UpdateSyncedGame(ctx context.Context, id uuid.UUID, item models.CollectionItem) error
	Commit() error
	Rollback() error
}

// Store opens sync batches. Implemented by the database layer.
type Store interface {
	BeginGameBatch(ctx context.Context) (Batch, error)
}

// dbStore adapts *database.DB to the Store interface.
type dbStore struct {
	db *database.DB
}

// NewDBStore wraps the database for use by the reconciler.
func NewDBStore(db *database.DB) Store {
	return &dbStore{db: db}
}

func (s *dbStore) BeginGameBatch(ctx context.Context) (Batch, error) {
	return s.db.BeginGameBatch(ctx)
}

// Reconciler fetches a BGG collection and merges it into the local catalog.
type Reconciler struct {
	fetcher bgg.CollectionFetcher
	store   Store
}

// NewReconciler creates a reconciler.
func NewReconciler(fetcher bgg.CollectionFetcher, store Store) *Reconciler {
	return &Reconciler{fetcher: fetcher, store: store}
}

// Sync fetches the user's collection and reconciles it into the games table.
//
// The returned SyncResult always describes the run, including failed ones.
// A non-nil error accompanies fetch and commit failures so callers can map
// upstream conditions to responses; per-record reconciliation errors do not
// fail the run and are reported in SyncResult.Errors only.
func (r *Reconciler) Sync(ctx context.Context, username string) (models.SyncResult, error) {
	start := time.Now()
	result := models.SyncResult{Errors: []string{}}

	logging.Info().Str("username", username).Msg("Collection sync started")

	collection, err := r.fetcher.FetchCollection(ctx, username)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		metrics.SyncRunsTotal.WithLabelValues("failure").Inc()
		logging.Error().Err(err).Str("username", username).Msg("Collection fetch failed")
		return result, fmt.Errorf("collection fetch failed: %w", err)
	}

	result.TotalGames = len(collection.Items)
	result.SkippedRecords = collection.Skipped

	batch, err := r.store.BeginGameBatch(ctx)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		metrics.SyncRunsTotal.WithLabelValues("failure").Inc()
		return result, fmt.Errorf("failed to open sync batch: %w", err)
	}

	for _, item := range collection.Items {
		if err := r.reconcileItem(ctx, batch, item, &result); err != nil {
			// Record-level failure: report it and keep going.
			result.Errors = append(result.Errors, fmt.Sprintf("%s (bgg id %d): %v", item.Name, item.BGGID, err))
			metrics.SyncRecordErrorsTotal.Inc()
			logging.Warn().
				Err(err).
				Str("game", item.Name).
				Int("bgg_id", item.BGGID).
				Msg("Failed to reconcile collection item")
		}
	}

	if err := batch.Commit(); err != nil {
		if rbErr := batch.Rollback(); rbErr != nil {
			logging.Error().Err(rbErr).Msg("Rollback after failed commit also failed")
		}
		result.Success = false
		result.GamesAdded = 0
		result.GamesUpdated = 0
		result.Errors = append(result.Errors, err.Error())
		metrics.SyncRunsTotal.WithLabelValues("failure").Inc()
		return result, fmt.Errorf("sync commit failed: %w", err)
	}

	result.Success = true
	metrics.SyncRunsTotal.WithLabelValues("success").Inc()
	metrics.SyncGamesAddedTotal.Add(float64(result.GamesAdded))
	metrics.SyncGamesUpdatedTotal.Add(float64(result.GamesUpdated))
	metrics.SyncDuration.Observe(time.Since(start).Seconds())

	logging.Info().
		Str("username", username).
		Int("total", result.TotalGames).
		Int("added", result.GamesAdded).
		Int("updated", result.GamesUpdated).
		Int("skipped", result.SkippedRecords).
		Int("errors", len(result.Errors)).
		Dur("duration", time.Since(start)).
		Msg("Collection sync finished")

	return result, nil
}

// reconcileItem merges one collection item, updating result counters.
func (r *Reconciler) reconcileItem(ctx context.Context, batch Batch, item models.CollectionItem, result *models.SyncResult) error {
	// The client drops these during parsing, but the reconciler does not
	// trust its fetcher to have done so.
	if item.BGGID <= 0 {
		return errors.New("missing bgg id")
	}

	existing, err := batch.GetGameByBGGID(ctx, item.BGGID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return err
	}

	if existing == nil {
		existing, err = batch.GetGameByName(ctx, item.Name)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return err
		}
	}

	if existing != nil {
		if err := batch.UpdateSyncedGame(ctx, existing.ID, item); err != nil {
			return err
		}
		result.GamesUpdated++
		return nil
	}

	if err := batch.InsertSyncedGame(ctx, item); err != nil {
		return err
	}
	result.GamesAdded++
	return nil
}
