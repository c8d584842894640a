package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/skillforge/skillforge/internal/domain"
)

const (
	// defaultMaxAttempts bounds the compare-and-swap retry loop.
	defaultMaxAttempts = 3

	// backoffBase and backoffJitter shape the randomized wait between
	// conflicting attempts to reduce thrash.
	backoffBase   = 5 * time.Millisecond
	backoffJitter = 20 * time.Millisecond
)

// UpdateOptions carries the per-submission context for a mastery update.
type UpdateOptions struct {
	Score            float64
	WeakConcepts     []string
	StrongConcepts   []string
	TimeSpentSeconds int64
	IsSuccessful     bool
}

// Engine is the progress engine. It owns mastery profiles and applies
// adaptive updates as a bounded compare-and-swap loop: read with version,
// mutate a fresh copy, write with expected version, and on conflict reload
// and reapply the same logical deltas.
type Engine struct {
	store       ProfileStore
	events      *domain.EventDispatcher
	maxAttempts int
}

// NewEngine creates a progress engine. The dispatcher may be nil.
func NewEngine(store ProfileStore, events *domain.EventDispatcher) *Engine {
	return &Engine{
		store:       store,
		events:      events,
		maxAttempts: defaultMaxAttempts,
	}
}

// Profile returns the stored profile for a user. Callers that require
// pre-existence (e.g., admin tooling) see domain.ErrProfileNotFound.
func (e *Engine) Profile(ctx context.Context, userID uuid.UUID) (*domain.MasteryProfile, error) {
	return e.store.Get(ctx, userID)
}

// ApplyAdaptiveUpdate applies per-concept fractional deltas (each in [-1, 1],
// scaled x100 and clamped) to the user's profile, recomputes the derived
// concept sets, folds in completion statistics, and commits under optimistic
// concurrency. It returns the saved profile and a snapshot copy of the
// mastery map that the engine will not mutate afterwards.
//
// Under contention the same logical deltas are reapplied to a freshly
// reloaded profile, never the stale in-memory object. Exhausting the retry
// budget fails loudly with domain.ErrConcurrencyExhausted.
func (e *Engine) ApplyAdaptiveUpdate(ctx context.Context, userID uuid.UUID, adjustments map[string]float64, opts UpdateOptions) (*domain.MasteryProfile, map[string]int, error) {
	for concept, delta := range adjustments {
		if delta < -1.0 || delta > 1.0 {
			return nil, nil, fmt.Errorf("delta %f for concept %q out of range: %w", delta, concept, domain.ErrInvalidInput)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		profile, err := e.loadOrCreate(ctx, userID)
		if err != nil {
			return nil, nil, err
		}

		// Mutate a fresh copy so a failed save never leaks partial state.
		work := profile.Clone()
		for _, concept := range sortedConcepts(adjustments) {
			work.ApplyDelta(concept, adjustments[concept])
		}
		work.Reclassify()

		if opts.IsSuccessful {
			work.RecordCompletion(opts.Score)
		}
		work.AddTimeSpent(opts.TimeSpentSeconds)
		work.UpdatedAt = time.Now()

		if err := e.store.Save(ctx, work); err != nil {
			if !errors.Is(err, domain.ErrVersionConflict) {
				return nil, nil, fmt.Errorf("save mastery profile: %w", err)
			}
			lastErr = err
			slog.Warn("mastery update conflict, retrying",
				"user_id", userID,
				"attempt", attempt,
				"version", work.Version,
			)
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, nil, err
			}
			continue
		}

		if e.events != nil {
			e.events.Publish(domain.NewMasteryUpdatedEvent(userID, work.Concepts(), work.WeakConcepts, work.Version))
		}

		return work, work.MasterySnapshot(), nil
	}

	return nil, nil, fmt.Errorf("mastery update for user %s after %d attempts (%v): %w",
		userID, e.maxAttempts, lastErr, domain.ErrConcurrencyExhausted)
}

// loadOrCreate implements get-or-create semantics for the lazy profile
// lifecycle. The created profile is only persisted by the following Save.
func (e *Engine) loadOrCreate(ctx context.Context, userID uuid.UUID) (*domain.MasteryProfile, error) {
	profile, err := e.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return domain.NewMasteryProfile(userID), nil
		}
		return nil, fmt.Errorf("load mastery profile: %w", err)
	}
	return profile, nil
}

func sortedConcepts(adjustments map[string]float64) []string {
	concepts := make([]string, 0, len(adjustments))
	for c := range adjustments {
		concepts = append(concepts, c)
	}
	// Deterministic application order keeps logs and fixtures reproducible.
	sort.Strings(concepts)
	return concepts
}

func sleepBackoff(ctx context.Context, attempt int) error {
	wait := backoffBase + rand.N(backoffJitter)*time.Duration(attempt)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
