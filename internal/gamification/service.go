package gamification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/skillforge/skillforge/internal/domain"
)

// maxSaveAttempts bounds conditional-write retries. Ledger mutations are
// monotone set-adds, so a retried attempt that lost the race simply hits
// the idempotency gate and becomes a no-op.
const maxSaveAttempts = 3

// AwardResult reports the outcome of a mission XP award.
type AwardResult struct {
	Awarded    bool                           `json:"awarded"`
	XPGained   int                            `json:"xp_gained"`
	TotalXP    int                            `json:"total_xp"`
	Level      int                            `json:"level"`
	LeveledUp  bool                           `json:"leveled_up"`
	Streak     int                            `json:"streak"`
	NewUnlocks []domain.AchievementDefinition `json:"new_unlocks"`
}

// StreakResult reports the outcome of a streak update.
type StreakResult struct {
	Streak     int                            `json:"streak"`
	Outcome    domain.StreakOutcome           `json:"outcome"`
	NewUnlocks []domain.AchievementDefinition `json:"new_unlocks"`
}

// SubmissionContext carries the per-submission flags that drive
// context-based achievements. These are one-shot checks per submission,
// never retroactive scans.
type SubmissionContext struct {
	// Awarded reports whether this submission passed the mission
	// completion gate. A redelivered duplicate arrives with Awarded
	// false and must not move the per-submission counters again.
	Awarded bool

	FirstTry           bool
	PerfectScore       bool
	Difficulty         domain.Difficulty
	HintsUsed          int
	TimeSpentMinutes   float64
	StrongConceptCount int
	ImprovementFactor  float64
	SubmittedAt        time.Time
}

// Engine is the gamification engine. It owns reward ledgers and guarantees
// at-most-once XP per mission and at-most-once unlock per achievement via
// membership gates checked before any mutation.
type Engine struct {
	ledgers LedgerStore
	catalog Catalog
	events  *domain.EventDispatcher
	now     func() time.Time
}

// NewEngine creates a gamification engine. The dispatcher may be nil.
func NewEngine(ledgers LedgerStore, catalog Catalog, events *domain.EventDispatcher) *Engine {
	return &Engine{
		ledgers: ledgers,
		catalog: catalog,
		events:  events,
		now:     time.Now,
	}
}

// WithClock overrides the engine's clock. Intended for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Ledger returns the stored ledger for a user.
func (e *Engine) Ledger(ctx context.Context, userID uuid.UUID) (*domain.RewardLedger, error) {
	return e.ledgers.Get(ctx, userID)
}

// AwardMissionXP grants XP for a completed mission exactly once. If the
// mission was already rewarded, or the submission was unsuccessful, the
// current state is returned with no mutation.
func (e *Engine) AwardMissionXP(ctx context.Context, userID uuid.UUID, missionID string, xpAmount int, isSuccessful bool, attempts, timeSpentMinutes int) (*AwardResult, error) {
	for attempt := 1; ; attempt++ {
		ledger, err := e.loadOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}

		// Idempotency gate: checked before any mutation.
		if !isSuccessful || ledger.HasCompletedMission(missionID) {
			return &AwardResult{
				Awarded:  false,
				XPGained: 0,
				TotalXP:  ledger.XP,
				Level:    ledger.Level(),
				Streak:   ledger.Streak,
			}, nil
		}

		work := ledger.Clone()
		work.MarkMissionCompleted(missionID)
		work.TotalMissionsCompleted++
		if attempts == 1 {
			work.FirstTrySuccessCount++
		}
		if timeSpentMinutes > 0 {
			work.TotalTimeSpentMinutes += timeSpentMinutes
		}

		oldLevel := work.Level()
		work.XP += xpAmount
		newLevel := work.Level()

		if err := e.ledgers.Save(ctx, work); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) && attempt < maxSaveAttempts {
				continue
			}
			return nil, fmt.Errorf("save reward ledger: %w", err)
		}

		if e.events != nil {
			e.events.Publish(domain.NewXPAwardedEvent(userID, missionID, xpAmount, work.XP, newLevel, newLevel > oldLevel))
		}

		// Threshold achievements are evaluated against the post-mutation
		// ledger; only newly unlocked ones are reported back.
		unlocked := e.checkThresholds(ctx, userID, work, domain.CategoryMission, domain.CategoryXP)

		return &AwardResult{
			Awarded:    true,
			XPGained:   xpAmount,
			TotalXP:    work.XP,
			Level:      newLevel,
			LeveledUp:  newLevel > oldLevel,
			Streak:     work.Streak,
			NewUnlocks: unlocked,
		}, nil
	}
}

// UpdateStreak advances the consecutive-day activity streak and evaluates
// streak-threshold achievements.
func (e *Engine) UpdateStreak(ctx context.Context, userID uuid.UUID) (*StreakResult, error) {
	for attempt := 1; ; attempt++ {
		ledger, err := e.loadOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}

		work := ledger.Clone()
		outcome := work.AdvanceStreak(e.now())

		if err := e.ledgers.Save(ctx, work); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) && attempt < maxSaveAttempts {
				continue
			}
			return nil, fmt.Errorf("save reward ledger: %w", err)
		}

		if e.events != nil && outcome != domain.StreakUnchanged {
			e.events.Publish(domain.NewStreakChangedEvent(userID, work.Streak, outcome))
		}

		unlocked := e.checkThresholds(ctx, userID, work, domain.CategoryStreak)

		return &StreakResult{
			Streak:     work.Streak,
			Outcome:    outcome,
			NewUnlocks: unlocked,
		}, nil
	}
}

// UnlockAchievement unlocks a single achievement exactly once. It returns
// (nil, nil) when the achievement is already unlocked. An ID missing from
// the catalog is a data-integrity problem: it is logged and reported as
// domain.ErrAchievementNotFound, and callers treat it as non-fatal.
func (e *Engine) UnlockAchievement(ctx context.Context, userID uuid.UUID, achievementID string) (*domain.AchievementDefinition, error) {
	def, err := e.catalog.ByID(ctx, achievementID)
	if err != nil {
		if errors.Is(err, domain.ErrAchievementNotFound) {
			slog.Warn("achievement missing from catalog",
				"achievement_id", achievementID,
				"user_id", userID,
			)
			return nil, domain.ErrAchievementNotFound
		}
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}

	for attempt := 1; ; attempt++ {
		ledger, err := e.loadOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}

		if ledger.HasAchievement(achievementID) {
			return nil, nil
		}

		work := ledger.Clone()
		work.GrantAchievement(achievementID, e.now())

		if err := e.ledgers.Save(ctx, work); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) && attempt < maxSaveAttempts {
				continue
			}
			return nil, fmt.Errorf("save reward ledger: %w", err)
		}

		if e.events != nil {
			e.events.Publish(domain.NewAchievementUnlockedEvent(userID, *def))
		}

		return def, nil
	}
}

// CheckContextAchievements records per-submission counters and evaluates
// the context-based achievements for one submission.
func (e *Engine) CheckContextAchievements(ctx context.Context, userID uuid.UUID, sc SubmissionContext) ([]domain.AchievementDefinition, error) {
	// Counters move at most once per mission, together with the XP award.
	if !sc.Awarded {
		return nil, nil
	}

	var perfectCount int
	for attempt := 1; ; attempt++ {
		ledger, err := e.loadOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}

		work := ledger.Clone()
		if sc.PerfectScore {
			work.PerfectScoreCount++
		}
		if sc.HintsUsed > 0 {
			work.HintsUsedTotal += sc.HintsUsed
		}
		perfectCount = work.PerfectScoreCount

		if err := e.ledgers.Save(ctx, work); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) && attempt < maxSaveAttempts {
				continue
			}
			return nil, fmt.Errorf("save reward ledger: %w", err)
		}
		break
	}

	var keys []string
	if sc.FirstTry {
		keys = append(keys, domain.ContextFirstTry)
	}
	if sc.PerfectScore {
		keys = append(keys, domain.ContextPerfectScore)
	}
	if perfectCount >= 10 {
		keys = append(keys, domain.ContextPerfectionist)
	}
	if sc.Difficulty == domain.DifficultyHard && sc.HintsUsed == 0 {
		keys = append(keys, domain.ContextHardNoHints)
	}
	if sc.TimeSpentMinutes > 0 && sc.TimeSpentMinutes < 2 {
		keys = append(keys, domain.ContextSpeedRunner)
	}
	if !sc.SubmittedAt.IsZero() {
		hour := sc.SubmittedAt.Hour()
		if hour >= 22 || hour < 4 {
			keys = append(keys, domain.ContextNightOwl)
		}
		if hour >= 5 && hour < 8 {
			keys = append(keys, domain.ContextEarlyBird)
		}
	}
	if sc.StrongConceptCount >= 3 {
		keys = append(keys, domain.ContextConceptCollector)
	}
	if sc.ImprovementFactor > 0.8 {
		keys = append(keys, domain.ContextFastLearner)
	}

	var unlocked []domain.AchievementDefinition
	for _, key := range keys {
		def, err := e.catalog.ByContextKey(ctx, key)
		if err != nil {
			slog.Warn("context achievement missing from catalog", "context_key", key)
			continue
		}
		granted, err := e.UnlockAchievement(ctx, userID, def.ID)
		if err != nil && !errors.Is(err, domain.ErrAchievementNotFound) {
			return unlocked, err
		}
		if granted != nil {
			unlocked = append(unlocked, *granted)
		}
	}
	return unlocked, nil
}

// checkThresholds walks the numeric threshold tables for the given
// categories and unlocks every threshold the ledger already meets.
// Thresholds are inclusive: several can unlock in a single pass.
func (e *Engine) checkThresholds(ctx context.Context, userID uuid.UUID, ledger *domain.RewardLedger, categories ...domain.AchievementCategory) []domain.AchievementDefinition {
	var unlocked []domain.AchievementDefinition

	for _, category := range categories {
		var thresholds []int
		var value int
		switch category {
		case domain.CategoryMission:
			thresholds, value = domain.MissionThresholds, ledger.TotalMissionsCompleted
		case domain.CategoryXP:
			thresholds, value = domain.XPThresholds, ledger.XP
		case domain.CategoryStreak:
			thresholds, value = domain.StreakThresholds, ledger.Streak
		default:
			continue
		}

		for _, target := range thresholds {
			if value < target {
				break
			}
			def, err := e.catalog.ByCategoryTarget(ctx, category, target)
			if err != nil {
				slog.Warn("threshold achievement missing from catalog",
					"category", category,
					"target", target,
				)
				continue
			}
			granted, err := e.UnlockAchievement(ctx, userID, def.ID)
			if err != nil {
				if !errors.Is(err, domain.ErrAchievementNotFound) {
					slog.Warn("threshold unlock failed",
						"achievement_id", def.ID,
						"user_id", userID,
						"error", err,
					)
				}
				continue
			}
			if granted == nil {
				continue
			}
			unlocked = append(unlocked, *granted)
		}
	}

	return unlocked
}

func (e *Engine) loadOrCreate(ctx context.Context, userID uuid.UUID) (*domain.RewardLedger, error) {
	ledger, err := e.ledgers.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrLedgerNotFound) {
			return domain.NewRewardLedger(userID), nil
		}
		return nil, fmt.Errorf("load reward ledger: %w", err)
	}
	return ledger, nil
}
