// Shelfplay - Board Game Collection and Match Tracker
// SPDX-License-Identifier: MIT
// https://github.com/shelfplay/shelfplay

// Package bgg implements the BoardGameGeek XML API2 client used by
// collection sync and the game lookup endpoint.
//
// BGG processes collection requests asynchronously: the first request for a
// collection may return HTTP 202 while the export is generated, and the
// client must poll until the data is ready. BGG also throttles aggressively,
// so all requests through one client share a rate limiter that enforces a
// minimum interval between calls.
package bgg

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/shelfplay/shelfplay/internal/config"
	"github.com/shelfplay/shelfplay/internal/logging"
	"github.com/shelfplay/shelfplay/internal/metrics"
	"github.com/shelfplay/shelfplay/internal/models"
)

// maxErrorBodySize limits how much of a response body is read for error
// reporting.
const maxErrorBodySize = 64 * 1024 // 64KB

// Sentinel errors returned by fetch operations. Handlers map these to HTTP
// status codes.
var (
	// ErrUserNotFound indicates the BGG username does not exist.
	ErrUserNotFound = errors.New("bgg user not found")

	// ErrGameNotFound indicates the BGG thing ID does not exist.
	ErrGameNotFound = errors.New("bgg game not found")

	// ErrUnauthorized indicates BGG rejected the request credentials.
	ErrUnauthorized = errors.New("bgg request unauthorized")

	// ErrRetriesExhausted indicates the request did not succeed within the
	// configured attempt budget.
	ErrRetriesExhausted = errors.New("bgg retries exhausted")
)

// CollectionFetcher is the surface the sync reconciler consumes. Implemented
// by Client and by mocks in tests.
type CollectionFetcher interface {
	FetchCollection(ctx context.Context, username string) (*CollectionResult, error)
}

// Client communicates with the BoardGameGeek XML API2.
//
// Thread safety: safe for concurrent use. The shared rate limiter serializes
// request pacing across goroutines.
type Client struct {
	baseURL     string
	token       string
	ownedOnly   bool
	maxAttempts int
	retryDelay  time.Duration
	client      *http.Client
	limiter     *rate.Limiter

	// sleep waits out retry delays. Replaced in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a BGG client from configuration. A missing API token is
// allowed; BGG serves anonymous requests with stricter throttling.
func NewClient(cfg *config.BGGConfig) *Client {
	if cfg.APIToken == "" {
		logging.Warn().Msg("No BGG API token configured, requests will be anonymous and throttled harder")
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		token:       cfg.APIToken,
		ownedOnly:   cfg.OwnedOnly,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Every(cfg.MinRequestInterval), 1),
		sleep:   sleepCtx,
	}
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readBodyForError reads a response body for error reporting (max 64KB).
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// FetchCollection retrieves a user's owned board game collection.
//
// HTTP 202 means BGG queued the export; the client waits the configured
// retry delay and polls again, each poll consuming one attempt. Transient
// failures (HTTP 429, 5xx, and malformed response bodies) consume attempts
// the same way. Authorization failures and unknown usernames fail
// immediately without retrying.
func (c *Client) FetchCollection(ctx context.Context, username string) (*CollectionResult, error) {
	params := url.Values{}
	params.Set("username", username)
	params.Set("subtype", "boardgame")
	params.Set("stats", "1")
	if c.ownedOnly {
		params.Set("own", "1")
	}
	reqURL := fmt.Sprintf("%s/xmlapi2/collection?%s", c.baseURL, params.Encode())

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.BGGRetryAttemptsTotal.Inc()
			if err := c.sleep(ctx, c.retryDelay); err != nil {
				return nil, err
			}
		}

		body, retry, err := c.doCollectionRequest(ctx, reqURL, username, attempt)
		if err != nil && !retry {
			return nil, err
		}
		if err != nil {
			lastErr = err
			continue
		}

		result, err := parseCollection(body)
		if err != nil {
			// A truncated or garbled body is a transient upstream fault,
			// retried like any other.
			metrics.BGGRequestsTotal.WithLabelValues("error").Inc()
			lastErr = fmt.Errorf("failed to parse collection for %s: %w", username, err)
			logging.Warn().
				Err(err).
				Str("username", username).
				Int("attempt", attempt).
				Msg("Malformed collection response, retrying")
			continue
		}
		metrics.BGGRequestsTotal.WithLabelValues("success").Inc()
		logging.Debug().
			Str("username", username).
			Int("items", len(result.Items)).
			Int("skipped", result.Skipped).
			Msg("Collection fetched")
		return result, nil
	}

	return nil, fmt.Errorf("collection fetch for %s failed after %d attempts: %w (last error: %w)",
		username, c.maxAttempts, ErrRetriesExhausted, lastErr)
}

// doCollectionRequest performs one collection request. It returns the
// response body on success, or an error with retry indicating whether the
// failure is worth another attempt.
func (c *Client) doCollectionRequest(ctx context.Context, reqURL, username string, attempt int) (body []byte, retry bool, err error) {
	resp, err := c.doRequest(ctx, reqURL)
	if err != nil {
		metrics.BGGRequestsTotal.WithLabelValues("error").Inc()
		return nil, true, fmt.Errorf("collection request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusAccepted:
		// Export queued upstream, poll again after the retry delay.
		metrics.BGGRequestsTotal.WithLabelValues("queued").Inc()
		logging.Info().
			Str("username", username).
			Int("attempt", attempt).
			Msg("BGG collection export queued, waiting before retry")
		return nil, true, fmt.Errorf("collection for %s still queued", username)

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		metrics.BGGRequestsTotal.WithLabelValues("unauthorized").Inc()
		return nil, false, fmt.Errorf("collection request for %s rejected with status %d: %w",
			username, resp.StatusCode, ErrUnauthorized)

	case resp.StatusCode == http.StatusNotFound:
		metrics.BGGRequestsTotal.WithLabelValues("not_found").Inc()
		return nil, false, fmt.Errorf("user %s: %w", username, ErrUserNotFound)

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		metrics.BGGRequestsTotal.WithLabelValues("error").Inc()
		return nil, true, fmt.Errorf("collection request failed with status %d", resp.StatusCode)

	case resp.StatusCode != http.StatusOK:
		metrics.BGGRequestsTotal.WithLabelValues("error").Inc()
		errBody := readBodyForError(resp.Body)
		return nil, false, fmt.Errorf("collection request failed with status %d: %s",
			resp.StatusCode, string(errBody))
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		metrics.BGGRequestsTotal.WithLabelValues("error").Inc()
		return nil, true, fmt.Errorf("failed to read collection response: %w", err)
	}

	// BGG reports some failures as an XML error document with HTTP 200.
	// Only the invalid-username message identifies an unknown user; any
	// other error document is an upstream fault worth retrying.
	if msg, ok := errorMessage(body); ok {
		if strings.Contains(strings.ToLower(msg), "invalid username") {
			metrics.BGGRequestsTotal.WithLabelValues("not_found").Inc()
			return nil, false, fmt.Errorf("user %s: %s: %w", username, msg, ErrUserNotFound)
		}
		metrics.BGGRequestsTotal.WithLabelValues("error").Inc()
		return nil, true, fmt.Errorf("collection request failed: %s", msg)
	}

	return body, false, nil
}

// FetchGame retrieves details for a single game from the thing endpoint.
func (c *Client) FetchGame(ctx context.Context, id int) (*GameDetails, error) {
	reqURL := fmt.Sprintf("%s/xmlapi2/thing?id=%d&stats=1", c.baseURL, id)

	resp, err := c.doRequest(ctx, reqURL)
	if err != nil {
		metrics.BGGRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("thing request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		metrics.BGGRequestsTotal.WithLabelValues("unauthorized").Inc()
		return nil, fmt.Errorf("thing request for %d rejected with status %d: %w",
			id, resp.StatusCode, ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		metrics.BGGRequestsTotal.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("game %d: %w", id, ErrGameNotFound)
	case resp.StatusCode != http.StatusOK:
		metrics.BGGRequestsTotal.WithLabelValues("error").Inc()
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("thing request failed with status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.BGGRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to read thing response: %w", err)
	}

	details, err := parseGameDetails(body, id)
	if err != nil {
		metrics.BGGRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.BGGRequestsTotal.WithLabelValues("success").Inc()
	return details, nil
}

// doRequest waits for the shared rate limiter, then performs one GET request
// with the bearer token attached when configured.
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait aborted: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.client.Do(req)
}

// errorMessage extracts the message from a BGG XML error document. Returns
// false when the body is not an error document.
func errorMessage(body []byte) (string, bool) {
	var doc errorDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", false
	}
	if len(doc.Errors) == 0 || doc.Errors[0].Message == "" {
		return "", false
	}
	return doc.Errors[0].Message, true
}

// parseCollection converts a collection XML document into normalized items.
// Entries missing the BGG ID or name are counted as skipped rather than
// failing the whole fetch.
func parseCollection(body []byte) (*CollectionResult, error) {
	var doc collectionDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal collection XML: %w", err)
	}

	result := &CollectionResult{
		Items: make([]models.CollectionItem, 0, len(doc.Items)),
	}
	for _, raw := range doc.Items {
		bggID, err := strconv.Atoi(strings.TrimSpace(raw.ObjectID))
		name := strings.TrimSpace(raw.Name)
		if err != nil || bggID <= 0 || name == "" {
			result.Skipped++
			continue
		}

		item := models.CollectionItem{
			BGGID:         bggID,
			Name:          name,
			YearPublished: parseOptionalInt(raw.YearPublished),
			ThumbnailURL:  optionalString(raw.Thumbnail),
			ImageURL:      optionalString(raw.Image),
		}
		if raw.Stats != nil {
			item.MinPlayers = parseOptionalInt(raw.Stats.MinPlayers)
			item.MaxPlayers = parseOptionalInt(raw.Stats.MaxPlayers)
			item.PlayingTime = parseOptionalInt(raw.Stats.PlayingTime)
			if raw.Stats.Rating != nil && raw.Stats.Rating.Average != nil {
				item.Rating = parseOptionalRating(raw.Stats.Rating.Average.Value)
			}
		}
		result.Items = append(result.Items, item)
	}

	return result, nil
}

// parseGameDetails converts a thing XML document into game details.
func parseGameDetails(body []byte, id int) (*GameDetails, error) {
	var doc thingDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal thing XML: %w", err)
	}
	if len(doc.Items) == 0 {
		return nil, fmt.Errorf("game %d: %w", id, ErrGameNotFound)
	}

	raw := doc.Items[0]
	details := &GameDetails{
		BGGID:        id,
		Description:  strings.TrimSpace(raw.Description),
		ThumbnailURL: optionalString(raw.Thumbnail),
		ImageURL:     optionalString(raw.Image),
	}
	for _, name := range raw.Names {
		if name.Type == "primary" {
			details.Name = name.Value
			break
		}
	}
	if details.Name == "" && len(raw.Names) > 0 {
		details.Name = raw.Names[0].Value
	}
	if raw.YearPublished != nil {
		details.YearPublished = parseOptionalInt(raw.YearPublished.Value)
	}
	if raw.MinPlayers != nil {
		details.MinPlayers = parseOptionalInt(raw.MinPlayers.Value)
	}
	if raw.MaxPlayers != nil {
		details.MaxPlayers = parseOptionalInt(raw.MaxPlayers.Value)
	}
	if raw.PlayingTime != nil {
		details.PlayingTime = parseOptionalInt(raw.PlayingTime.Value)
	}
	if raw.Statistics != nil && raw.Statistics.Ratings.Average != nil {
		details.Rating = parseOptionalRating(raw.Statistics.Ratings.Average.Value)
	}

	return details, nil
}
