package progress_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/skillforge/skillforge/internal/domain"
	"github.com/skillforge/skillforge/internal/progress"
	"github.com/skillforge/skillforge/internal/storage/memory"
)

func TestEngine_ApplyAdaptiveUpdate_CreatesProfileLazily(t *testing.T) {
	store := memory.NewProfileStore()
	engine := progress.NewEngine(store, nil)
	userID := uuid.New()

	profile, snapshot, err := engine.ApplyAdaptiveUpdate(context.Background(), userID,
		map[string]float64{"loops": 0.15},
		progress.UpdateOptions{Score: 90, IsSuccessful: true},
	)
	if err != nil {
		t.Fatalf("ApplyAdaptiveUpdate() error = %v", err)
	}

	if profile.Mastery("loops") != 15 {
		t.Errorf("Mastery(loops) = %d, want 15", profile.Mastery("loops"))
	}
	if snapshot["loops"] != 15 {
		t.Errorf("snapshot[loops] = %d, want 15", snapshot["loops"])
	}
	if profile.TotalMissionsCompleted != 1 {
		t.Errorf("TotalMissionsCompleted = %d, want 1", profile.TotalMissionsCompleted)
	}
	if profile.AverageScore != 90 {
		t.Errorf("AverageScore = %f, want 90", profile.AverageScore)
	}
	if profile.Version != 1 {
		t.Errorf("Version = %d, want 1", profile.Version)
	}

	// The profile must now be readable through the store.
	stored, err := store.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Mastery("loops") != 15 {
		t.Errorf("stored Mastery(loops) = %d, want 15", stored.Mastery("loops"))
	}
}

func TestEngine_ApplyAdaptiveUpdate_RunningMeanAndTime(t *testing.T) {
	store := memory.NewProfileStore()
	engine := progress.NewEngine(store, nil)
	userID := uuid.New()
	ctx := context.Background()

	if _, _, err := engine.ApplyAdaptiveUpdate(ctx, userID, nil,
		progress.UpdateOptions{Score: 80, IsSuccessful: true, TimeSpentSeconds: 120}); err != nil {
		t.Fatalf("first update error = %v", err)
	}
	profile, _, err := engine.ApplyAdaptiveUpdate(ctx, userID, nil,
		progress.UpdateOptions{Score: 100, IsSuccessful: true, TimeSpentSeconds: 60})
	if err != nil {
		t.Fatalf("second update error = %v", err)
	}

	if profile.AverageScore != 90 {
		t.Errorf("AverageScore = %f, want 90", profile.AverageScore)
	}
	if profile.TotalTimeSpent != 180 {
		t.Errorf("TotalTimeSpent = %d, want 180", profile.TotalTimeSpent)
	}
}

func TestEngine_ApplyAdaptiveUpdate_UnsuccessfulDoesNotCount(t *testing.T) {
	store := memory.NewProfileStore()
	engine := progress.NewEngine(store, nil)

	profile, _, err := engine.ApplyAdaptiveUpdate(context.Background(), uuid.New(),
		map[string]float64{"loops": -0.05},
		progress.UpdateOptions{Score: 30, IsSuccessful: false},
	)
	if err != nil {
		t.Fatalf("ApplyAdaptiveUpdate() error = %v", err)
	}

	if profile.TotalMissionsCompleted != 0 {
		t.Errorf("TotalMissionsCompleted = %d, want 0", profile.TotalMissionsCompleted)
	}
	if profile.AverageScore != 0 {
		t.Errorf("AverageScore = %f, want 0", profile.AverageScore)
	}
}

func TestEngine_ApplyAdaptiveUpdate_Reclassifies(t *testing.T) {
	store := memory.NewProfileStore()
	engine := progress.NewEngine(store, nil)
	userID := uuid.New()

	profile, _, err := engine.ApplyAdaptiveUpdate(context.Background(), userID,
		map[string]float64{"loops": 0.85, "pointers": 0.2},
		progress.UpdateOptions{},
	)
	if err != nil {
		t.Fatalf("ApplyAdaptiveUpdate() error = %v", err)
	}

	if len(profile.StrongConcepts) != 1 || profile.StrongConcepts[0] != "loops" {
		t.Errorf("StrongConcepts = %v, want [loops]", profile.StrongConcepts)
	}
	if len(profile.WeakConcepts) != 1 || profile.WeakConcepts[0] != "pointers" {
		t.Errorf("WeakConcepts = %v, want [pointers]", profile.WeakConcepts)
	}
}

func TestEngine_ApplyAdaptiveUpdate_RejectsOutOfRangeDelta(t *testing.T) {
	engine := progress.NewEngine(memory.NewProfileStore(), nil)

	_, _, err := engine.ApplyAdaptiveUpdate(context.Background(), uuid.New(),
		map[string]float64{"loops": 1.5}, progress.UpdateOptions{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestEngine_ApplyAdaptiveUpdate_RetriesOnConflict(t *testing.T) {
	store := memory.NewProfileStore()
	engine := progress.NewEngine(store, nil)
	userID := uuid.New()
	ctx := context.Background()

	// Seed a profile so the conflicting writer has something to race on.
	if _, _, err := engine.ApplyAdaptiveUpdate(ctx, userID,
		map[string]float64{"loops": 0.10}, progress.UpdateOptions{}); err != nil {
		t.Fatalf("seed update error = %v", err)
	}

	// A competing writer commits between our read and our write.
	store.BeforeSave = func() {
		if _, _, err := engine.ApplyAdaptiveUpdate(ctx, userID,
			map[string]float64{"maps": 0.20}, progress.UpdateOptions{}); err != nil {
			t.Errorf("competing update error = %v", err)
		}
	}

	profile, _, err := engine.ApplyAdaptiveUpdate(ctx, userID,
		map[string]float64{"loops": 0.05}, progress.UpdateOptions{})
	if err != nil {
		t.Fatalf("ApplyAdaptiveUpdate() error = %v", err)
	}

	// Both sets of deltas must survive: no lost update.
	if got := profile.Mastery("loops"); got != 15 {
		t.Errorf("Mastery(loops) = %d, want 15", got)
	}
	if got := profile.Mastery("maps"); got != 20 {
		t.Errorf("Mastery(maps) = %d, want 20", got)
	}
	if profile.Version != 3 {
		t.Errorf("Version = %d, want 3", profile.Version)
	}
}

// conflictStore always reports a version conflict on save.
type conflictStore struct {
	saves int
}

func (s *conflictStore) Get(ctx context.Context, userID uuid.UUID) (*domain.MasteryProfile, error) {
	return nil, domain.ErrProfileNotFound
}

func (s *conflictStore) Save(ctx context.Context, profile *domain.MasteryProfile) error {
	s.saves++
	return domain.ErrVersionConflict
}

func TestEngine_ApplyAdaptiveUpdate_ExhaustsRetries(t *testing.T) {
	store := &conflictStore{}
	engine := progress.NewEngine(store, nil)

	_, _, err := engine.ApplyAdaptiveUpdate(context.Background(), uuid.New(),
		map[string]float64{"loops": 0.05}, progress.UpdateOptions{})
	if !errors.Is(err, domain.ErrConcurrencyExhausted) {
		t.Fatalf("error = %v, want ErrConcurrencyExhausted", err)
	}
	if store.saves != 3 {
		t.Errorf("save attempts = %d, want 3", store.saves)
	}
}

func TestEngine_Profile_NotFound(t *testing.T) {
	engine := progress.NewEngine(memory.NewProfileStore(), nil)

	_, err := engine.Profile(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrProfileNotFound) {
		t.Errorf("error = %v, want ErrProfileNotFound", err)
	}
}
