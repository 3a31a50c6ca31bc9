// Shelfplay - Board Game Collection and Match Tracker
// SPDX-License-Identifier: MIT
// https://github.com/shelfplay/shelfplay

package database

import "errors"

// Sentinel errors returned by data access methods. Handlers map these to
// HTTP status codes.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateName indicates a player or game with the same name
	// (case-insensitive) already exists.
	ErrDuplicateName = errors.New("name already exists")

	// ErrPlayerHasMatches indicates the player cannot be deleted because
	// recorded matches reference them.
	ErrPlayerHasMatches = errors.New("player has recorded matches")

	// ErrGameHasMatches indicates the game cannot be deleted because
	// recorded matches reference it.
	ErrGameHasMatches = errors.New("game has recorded matches")
)
