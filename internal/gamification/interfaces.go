package gamification

import (
	"context"

	"github.com/google/uuid"

	"github.com/skillforge/skillforge/internal/domain"
)

// LedgerStore persists reward ledgers. Writes are conditional on the
// ledger's version so that two concurrent completions of the same mission
// can never both commit an XP grant.
type LedgerStore interface {
	// Get retrieves a ledger by user ID. Returns domain.ErrLedgerNotFound
	// when the user has no ledger yet.
	Get(ctx context.Context, userID uuid.UUID) (*domain.RewardLedger, error)

	// Save persists the ledger if its Version still matches the stored one
	// (zero inserts). On success the store increments ledger.Version in
	// place; a concurrent writer surfaces as domain.ErrVersionConflict.
	Save(ctx context.Context, ledger *domain.RewardLedger) error
}

// Catalog is the read-mostly achievement catalog collaborator. Definitions
// are resolved by stable identity: ID, (category, target), or context key.
type Catalog interface {
	ByID(ctx context.Context, id string) (*domain.AchievementDefinition, error)
	ByCategoryTarget(ctx context.Context, category domain.AchievementCategory, target int) (*domain.AchievementDefinition, error)
	ByContextKey(ctx context.Context, key string) (*domain.AchievementDefinition, error)
}
