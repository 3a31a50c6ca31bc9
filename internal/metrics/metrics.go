// Shelfplay - Board Game Collection and Match Tracker
// SPDX-License-Identifier: MIT
// https://github.com/shelfplay/shelfplay

// Package metrics defines Prometheus instrumentation for the HTTP API, the
// BoardGameGeek client, and collection sync. Metrics are registered with the
// default registry via promauto and exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal counts HTTP API requests by method, route, and status.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfplay_api_requests_total",
			Help: "Total HTTP API requests",
		},
		[]string{"method", "route", "status"},
	)

	// APIRequestDuration observes HTTP API request latency by route.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shelfplay_api_request_duration_seconds",
			Help:    "HTTP API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// BGGRequestsTotal counts BoardGameGeek API requests by outcome:
	// success, queued, not_found, unauthorized, or error.
	BGGRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfplay_bgg_requests_total",
			Help: "Total BoardGameGeek API requests by outcome",
		},
		[]string{"outcome"},
	)

	// BGGRetryAttemptsTotal counts retry attempts against the BGG API.
	BGGRetryAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shelfplay_bgg_retry_attempts_total",
			Help: "Total BoardGameGeek request retries",
		},
	)

	// SyncRunsTotal counts collection sync runs by result: success or failure.
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelfplay_sync_runs_total",
			Help: "Total collection sync runs by result",
		},
		[]string{"result"},
	)

	// SyncGamesAddedTotal counts games inserted by collection sync.
	SyncGamesAddedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shelfplay_sync_games_added_total",
			Help: "Total games added by collection sync",
		},
	)

	// SyncGamesUpdatedTotal counts games updated by collection sync.
	SyncGamesUpdatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shelfplay_sync_games_updated_total",
			Help: "Total games updated by collection sync",
		},
	)

	// SyncRecordErrorsTotal counts per-record reconciliation errors.
	SyncRecordErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shelfplay_sync_record_errors_total",
			Help: "Total per-record errors during collection sync",
		},
	)

	// SyncDuration observes end-to-end sync run duration.
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shelfplay_sync_duration_seconds",
			Help:    "Collection sync duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)
)
