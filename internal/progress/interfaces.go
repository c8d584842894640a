package progress

import (
	"context"

	"github.com/google/uuid"

	"github.com/skillforge/skillforge/internal/domain"
)

// ProfileStore persists mastery profiles under optimistic concurrency
// control. Implementations condition every write on the version the profile
// was loaded with.
type ProfileStore interface {
	// Get retrieves a profile by user ID. Returns domain.ErrProfileNotFound
	// when the user has no profile yet.
	Get(ctx context.Context, userID uuid.UUID) (*domain.MasteryProfile, error)

	// Save persists the profile if its Version still matches the stored
	// one (a Version of zero inserts a new row). On success the store
	// increments profile.Version in place. A concurrent writer surfaces
	// as domain.ErrVersionConflict.
	Save(ctx context.Context, profile *domain.MasteryProfile) error
}
