package mission

import (
	"context"
	"fmt"
	"sync"

	"github.com/skillforge/skillforge/internal/domain"
)

// Registry provides ordered, thread-safe access to loaded missions. The
// canonical order is the pack order, packs in load order.
type Registry struct {
	loader   *Loader
	mu       sync.RWMutex
	packs    map[string]*Pack
	missions map[string]*domain.Mission
	ordered  []string // mission IDs in canonical order
}

// NewRegistry creates a new mission registry
func NewRegistry(loader *Loader) *Registry {
	return &Registry{
		loader:   loader,
		packs:    make(map[string]*Pack),
		missions: make(map[string]*domain.Mission),
	}
}

// Load loads all packs and missions into memory
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	packs, err := r.loader.LoadAllPacks()
	if err != nil {
		return fmt.Errorf("load packs: %w", err)
	}

	for _, pack := range packs {
		r.packs[pack.ID] = pack

		missions, err := r.loader.LoadPackMissions(pack.ID)
		if err != nil {
			return fmt.Errorf("load missions for pack %s: %w", pack.ID, err)
		}

		for _, m := range missions {
			r.missions[m.ID] = m
			r.ordered = append(r.ordered, m.ID)
		}
	}

	return nil
}

// Reload discards and reloads all missions (useful for development)
func (r *Registry) Reload() error {
	r.mu.Lock()
	r.packs = make(map[string]*Pack)
	r.missions = make(map[string]*domain.Mission)
	r.ordered = nil
	r.mu.Unlock()

	return r.Load()
}

// Get returns a mission by ID
func (r *Registry) Get(id string) (*domain.Mission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mission, ok := r.missions[id]
	if !ok {
		return nil, fmt.Errorf("mission %s: %w", id, domain.ErrMissionNotFound)
	}
	return mission, nil
}

// List returns all missions in canonical order
func (r *Registry) List() []*domain.Mission {
	r.mu.RLock()
	defer r.mu.RUnlock()

	missions := make([]*domain.Mission, 0, len(r.ordered))
	for _, id := range r.ordered {
		missions = append(missions, r.missions[id])
	}
	return missions
}

// AdaptiveMissions returns missions that cover any of the weak concepts
// (via concepts or tags), excluding completed ones, up to limit, in
// canonical order.
func (r *Registry) AdaptiveMissions(ctx context.Context, weakConcepts, completed []string, limit int) ([]domain.Mission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	weak := toSet(weakConcepts)
	done := toSet(completed)

	var matches []domain.Mission
	for _, id := range r.ordered {
		if limit > 0 && len(matches) >= limit {
			break
		}
		if _, ok := done[id]; ok {
			continue
		}
		m := r.missions[id]
		if coversAny(m, weak) {
			matches = append(matches, *m)
		}
	}
	return matches, nil
}

// NextMission returns the first not-yet-completed mission in canonical
// order. An exhausted catalog reports domain.ErrMissionNotFound.
func (r *Registry) NextMission(ctx context.Context, completed []string) (*domain.Mission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	done := toSet(completed)
	for _, id := range r.ordered {
		if _, ok := done[id]; ok {
			continue
		}
		next := *r.missions[id]
		return &next, nil
	}
	return nil, fmt.Errorf("catalog exhausted: %w", domain.ErrMissionNotFound)
}

// ByDifficulty returns missions filtered by difficulty, in canonical order
func (r *Registry) ByDifficulty(difficulty domain.Difficulty) []*domain.Mission {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var missions []*domain.Mission
	for _, id := range r.ordered {
		if m := r.missions[id]; m.Difficulty == difficulty {
			missions = append(missions, m)
		}
	}
	return missions
}

// Stats returns statistics about loaded missions
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RegistryStats{
		PackCount:    len(r.packs),
		MissionCount: len(r.missions),
		ByDifficulty: make(map[string]int),
	}

	for _, m := range r.missions {
		stats.ByDifficulty[string(m.Difficulty)]++
	}

	return stats
}

// RegistryStats holds statistics about the registry
type RegistryStats struct {
	PackCount    int
	MissionCount int
	ByDifficulty map[string]int
}

func coversAny(m *domain.Mission, concepts map[string]struct{}) bool {
	for _, c := range m.Concepts {
		if _, ok := concepts[c]; ok {
			return true
		}
	}
	for _, t := range m.Tags {
		if _, ok := concepts[t]; ok {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
