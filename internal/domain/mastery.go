package domain

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Mastery classification thresholds (0-100 scale).
const (
	WeakThreshold      = 50 // below this a concept is weak
	StrongThreshold    = 80 // at or above this a concept is strong
	CompletedThreshold = 95 // at or above this a concept is completed
)

// MasteryProfile tracks a user's per-concept mastery and aggregate progress.
// It is owned exclusively by the progress engine and mutated only through
// adaptive updates committed under optimistic concurrency control.
type MasteryProfile struct {
	UserID                 uuid.UUID      `json:"user_id"`
	ConceptMastery         map[string]int `json:"concept_mastery"` // concept -> 0..100
	WeakConcepts           []string       `json:"weak_concepts"`
	StrongConcepts         []string       `json:"strong_concepts"`
	CompletedConcepts      []string       `json:"completed_concepts"`
	TotalMissionsCompleted int            `json:"total_missions_completed"`
	TotalTimeSpent         int64          `json:"total_time_spent"` // seconds
	AverageScore           float64        `json:"average_score"`    // running mean, 0-100
	Version                int64          `json:"version"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

// NewMasteryProfile creates an empty profile for a user.
func NewMasteryProfile(userID uuid.UUID) *MasteryProfile {
	now := time.Now()
	return &MasteryProfile{
		UserID:            userID,
		ConceptMastery:    make(map[string]int),
		WeakConcepts:      []string{},
		StrongConcepts:    []string{},
		CompletedConcepts: []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Mastery returns the mastery value for a concept, zero if never seen.
func (p *MasteryProfile) Mastery(concept string) int {
	return p.ConceptMastery[concept]
}

// Concepts returns all tracked concept names in deterministic order.
func (p *MasteryProfile) Concepts() []string {
	concepts := make([]string, 0, len(p.ConceptMastery))
	for c := range p.ConceptMastery {
		concepts = append(concepts, c)
	}
	sort.Strings(concepts)
	return concepts
}

// ApplyDelta applies a fractional delta in [-1, 1] to a concept, scaled by
// 100 and clamped into [0, 100].
func (p *MasteryProfile) ApplyDelta(concept string, delta float64) {
	current := p.ConceptMastery[concept]
	p.ConceptMastery[concept] = clampMastery(current + int(math.Round(delta*100)))
}

// SetMastery sets a concept's mastery directly, clamped into [0, 100].
func (p *MasteryProfile) SetMastery(concept string, value int) {
	p.ConceptMastery[concept] = clampMastery(value)
}

// Reclassify recomputes the weak/strong/completed sets from the full mastery
// map. It is called after every mutation rather than patching the sets
// incrementally, so the derived sets can never drift from the map.
func (p *MasteryProfile) Reclassify() {
	weak := []string{}
	strong := []string{}
	completed := []string{}

	for _, concept := range p.Concepts() {
		mastery := p.ConceptMastery[concept]
		switch {
		case mastery < WeakThreshold:
			weak = append(weak, concept)
		case mastery >= CompletedThreshold:
			// completed implies strong; both are reported
			strong = append(strong, concept)
			completed = append(completed, concept)
		case mastery >= StrongThreshold:
			strong = append(strong, concept)
		}
	}

	p.WeakConcepts = weak
	p.StrongConcepts = strong
	p.CompletedConcepts = completed
}

// RecordCompletion folds a successful mission score into the running mean
// and increments the completion counter.
func (p *MasteryProfile) RecordCompletion(score float64) {
	prev := float64(p.TotalMissionsCompleted)
	p.AverageScore = (p.AverageScore*prev + score) / (prev + 1)
	p.TotalMissionsCompleted++
}

// AddTimeSpent accumulates submission time in seconds.
func (p *MasteryProfile) AddTimeSpent(seconds int64) {
	if seconds > 0 {
		p.TotalTimeSpent += seconds
	}
}

// MasterySnapshot returns a copy of the mastery map. Callers receive a map
// the engine will not continue to mutate.
func (p *MasteryProfile) MasterySnapshot() map[string]int {
	snapshot := make(map[string]int, len(p.ConceptMastery))
	for concept, mastery := range p.ConceptMastery {
		snapshot[concept] = mastery
	}
	return snapshot
}

// Clone returns a deep copy of the profile.
func (p *MasteryProfile) Clone() *MasteryProfile {
	cp := *p
	cp.ConceptMastery = p.MasterySnapshot()
	cp.WeakConcepts = append([]string{}, p.WeakConcepts...)
	cp.StrongConcepts = append([]string{}, p.StrongConcepts...)
	cp.CompletedConcepts = append([]string{}, p.CompletedConcepts...)
	return &cp
}

func clampMastery(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
