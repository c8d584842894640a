// Package memory provides in-memory store implementations with the same
// optimistic-concurrency contract as the SQL-backed stores. They back the
// engine tests, where write conflicts can be injected deterministically.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skillforge/skillforge/internal/domain"
)

// ProfileStore is an in-memory mastery profile store.
type ProfileStore struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*domain.MasteryProfile

	// BeforeSave, when set, runs inside the store lock right before the
	// version check. Tests use it to interleave conflicting writers.
	BeforeSave func()
}

// NewProfileStore creates an empty profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[uuid.UUID]*domain.MasteryProfile)}
}

// Get retrieves a deep copy of the stored profile.
func (s *ProfileStore) Get(ctx context.Context, userID uuid.UUID) (*domain.MasteryProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return profile.Clone(), nil
}

// Save persists the profile when its version matches the stored one.
func (s *ProfileStore) Save(ctx context.Context, profile *domain.MasteryProfile) error {
	s.mu.Lock()
	if s.BeforeSave != nil {
		// Release the lock so the injected writer can commit.
		hook := s.BeforeSave
		s.BeforeSave = nil
		s.mu.Unlock()
		hook()
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	current, exists := s.profiles[profile.UserID]
	if exists {
		if current.Version != profile.Version {
			return domain.ErrVersionConflict
		}
	} else if profile.Version != 0 {
		return domain.ErrVersionConflict
	}

	profile.Version++
	profile.UpdatedAt = time.Now()
	s.profiles[profile.UserID] = profile.Clone()
	return nil
}

// LedgerStore is an in-memory reward ledger store.
type LedgerStore struct {
	mu      sync.Mutex
	ledgers map[uuid.UUID]*domain.RewardLedger
}

// NewLedgerStore creates an empty ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{ledgers: make(map[uuid.UUID]*domain.RewardLedger)}
}

// Get retrieves a deep copy of the stored ledger.
func (s *LedgerStore) Get(ctx context.Context, userID uuid.UUID) (*domain.RewardLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, ok := s.ledgers[userID]
	if !ok {
		return nil, domain.ErrLedgerNotFound
	}
	return ledger.Clone(), nil
}

// Save persists the ledger when its version matches the stored one.
func (s *LedgerStore) Save(ctx context.Context, ledger *domain.RewardLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.ledgers[ledger.UserID]
	if exists {
		if current.Version != ledger.Version {
			return domain.ErrVersionConflict
		}
	} else if ledger.Version != 0 {
		return domain.ErrVersionConflict
	}

	ledger.Version++
	ledger.UpdatedAt = time.Now()
	s.ledgers[ledger.UserID] = ledger.Clone()
	return nil
}

// Catalog is an in-memory achievement catalog.
type Catalog struct {
	mu     sync.RWMutex
	byID   map[string]domain.AchievementDefinition
	byKey  map[string]domain.AchievementDefinition    // context key -> def
	byCatT map[catalogKey]domain.AchievementDefinition // (category, target) -> def
}

type catalogKey struct {
	category domain.AchievementCategory
	target   int
}

// NewCatalog creates a catalog from the given definitions.
func NewCatalog(defs []domain.AchievementDefinition) *Catalog {
	c := &Catalog{
		byID:   make(map[string]domain.AchievementDefinition, len(defs)),
		byKey:  make(map[string]domain.AchievementDefinition),
		byCatT: make(map[catalogKey]domain.AchievementDefinition),
	}
	for _, def := range defs {
		c.byID[def.ID] = def
		if def.ContextKey != "" {
			c.byKey[def.ContextKey] = def
		}
		if def.Target > 0 {
			c.byCatT[catalogKey{def.Category, def.Target}] = def
		}
	}
	return c
}

// ByID looks up a definition by achievement ID.
func (c *Catalog) ByID(ctx context.Context, id string) (*domain.AchievementDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.byID[id]
	if !ok {
		return nil, domain.ErrAchievementNotFound
	}
	return &def, nil
}

// ByCategoryTarget looks up a threshold definition.
func (c *Catalog) ByCategoryTarget(ctx context.Context, category domain.AchievementCategory, target int) (*domain.AchievementDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.byCatT[catalogKey{category, target}]
	if !ok {
		return nil, domain.ErrAchievementNotFound
	}
	return &def, nil
}

// ByContextKey looks up a context-based definition by its stable key.
func (c *Catalog) ByContextKey(ctx context.Context, key string) (*domain.AchievementDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.byKey[key]
	if !ok {
		return nil, domain.ErrAchievementNotFound
	}
	return &def, nil
}
