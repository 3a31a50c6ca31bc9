// Shelfplay - Board Game Collection and Match Tracker
// SPDX-License-Identifier: MIT
// https://github.com/shelfplay/shelfplay

package bgg

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/shelfplay/shelfplay/internal/logging"
)

// BreakerClient wraps a CollectionFetcher with circuit breaker protection.
// Repeated upstream failures open the circuit and fail fetches fast instead
// of hammering BGG while it is down.
//
// Client errors (unknown user, unauthorized) do not count as failures; only
// transport errors and exhausted retries trip the breaker.
type BreakerClient struct {
	fetcher CollectionFetcher
	breaker *gobreaker.CircuitBreaker[*CollectionResult]
}

// NewBreakerClient wraps fetcher with a circuit breaker. The circuit opens
// after three consecutive failures and probes again after 60 seconds.
func NewBreakerClient(fetcher CollectionFetcher) *BreakerClient {
	settings := gobreaker.Settings{
		Name:        "bgg-collection",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Caller mistakes should not open the circuit.
			return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrUnauthorized)
		},
	}
	return &BreakerClient{
		fetcher: fetcher,
		breaker: gobreaker.NewCircuitBreaker[*CollectionResult](settings),
	}
}

// FetchCollection fetches through the circuit breaker.
func (b *BreakerClient) FetchCollection(ctx context.Context, username string) (*CollectionResult, error) {
	return b.breaker.Execute(func() (*CollectionResult, error) {
		return b.fetcher.FetchCollection(ctx, username)
	})
}

// State reports the current breaker state for health checks.
func (b *BreakerClient) State() string {
	return b.breaker.State().String()
}
