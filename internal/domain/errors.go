package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by stores and
// engines to communicate domain-specific error conditions.
// -----------------------------------------------------------------------------

// Mastery profile errors
var (
	ErrProfileNotFound = errors.New("mastery profile not found")
)

// Reward ledger errors
var (
	ErrLedgerNotFound = errors.New("reward ledger not found")
)

// Achievement errors
var (
	ErrAchievementNotFound = errors.New("achievement not found")
)

// Mission errors
var (
	ErrMissionNotFound = errors.New("mission not found")
)

// Concurrency errors
var (
	// ErrVersionConflict is returned by a store when a conditional write
	// observes a version other than the one it was given.
	ErrVersionConflict = errors.New("version conflict")

	// ErrConcurrencyExhausted is returned by an engine after its retry
	// budget for conflicting writes is spent.
	ErrConcurrencyExhausted = errors.New("concurrency retries exhausted")
)

// General errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
