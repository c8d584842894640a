package adaptivity

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/skillforge/skillforge/internal/domain"
	"github.com/skillforge/skillforge/internal/gamification"
	"github.com/skillforge/skillforge/internal/progress"
)

// recommendationLimit caps adaptive mission recommendations per submission.
const recommendationLimit = 5

// MissionSource is the mission-content collaborator.
type MissionSource interface {
	// AdaptiveMissions returns missions tagged with any of the weak
	// concepts, excluding completed ones, up to limit.
	AdaptiveMissions(ctx context.Context, weakConcepts, completed []string, limit int) ([]domain.Mission, error)

	// NextMission returns the next not-yet-completed mission in canonical
	// order, or domain.ErrMissionNotFound when the catalog is exhausted.
	NextMission(ctx context.Context, completed []string) (*domain.Mission, error)
}

// QueuePublisher pushes completed-submission events to external listeners.
type QueuePublisher interface {
	PublishSubmissionCompleted(ctx context.Context, event domain.SubmissionCompletedEvent) error
}

// SubmissionSignal is the already-scored submission handed to the
// orchestrator by the submission-finalization flow.
type SubmissionSignal struct {
	UserID       uuid.UUID             `json:"user_id"`
	MissionID    string                `json:"mission_id"`
	SubmissionID uuid.UUID             `json:"submission_id"`
	Mission      domain.Mission        `json:"mission"`
	Feedback     domain.AnalysisResult `json:"feedback"`
	Attempts     int                   `json:"attempts"`
	HintsUsed    int                   `json:"hints_used"`
	TimeSpent    int64                 `json:"time_spent_seconds"`
	SubmittedAt  time.Time             `json:"submitted_at"`
}

// SubmissionOutcome is the consolidated result returned to the caller. A
// learner always receives an outcome on success, even when the
// recommendation collaborator is degraded.
type SubmissionOutcome struct {
	XPGained        int                            `json:"xp_gained"`
	TotalXP         int                            `json:"total_xp"`
	Level           int                            `json:"level"`
	LeveledUp       bool                           `json:"leveled_up"`
	Streak          int                            `json:"streak"`
	Mastery         map[string]int                 `json:"mastery"`
	WeakConcepts    []string                       `json:"weak_concepts"`
	NewAchievements []domain.AchievementDefinition `json:"new_achievements"`
	NextMission     *domain.Mission                `json:"next_mission,omitempty"`
	Recommended     []domain.Mission               `json:"recommended,omitempty"`
	Insights        LearningInsights               `json:"insights"`
}

// Orchestrator coordinates a scored submission through the progress and
// gamification engines, then derives recommendations and insights. Mastery
// and XP commit failures are fatal; derivation steps are catch-and-continue.
type Orchestrator struct {
	progress  *progress.Engine
	rewards   *gamification.Engine
	missions  MissionSource
	events    *domain.EventDispatcher
	publisher QueuePublisher
	logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator. missions, events and publisher
// may be nil; the corresponding steps degrade gracefully.
func NewOrchestrator(progressEngine *progress.Engine, rewards *gamification.Engine, missions MissionSource, events *domain.EventDispatcher, publisher QueuePublisher) *Orchestrator {
	return &Orchestrator{
		progress:  progressEngine,
		rewards:   rewards,
		missions:  missions,
		events:    events,
		publisher: publisher,
		logger:    slog.Default().With("component", "adaptivity"),
	}
}

// ProcessSubmission runs the adaptive pipeline for one scored submission:
// mastery deltas, adaptive XP, streak, achievements, weak-concept union,
// recommendation and insights. The improvement factor is read from the
// profile as it stood walking into the submission, before the mastery
// write; XP this round reflects the learner's prior trajectory.
func (o *Orchestrator) ProcessSubmission(ctx context.Context, signal SubmissionSignal) (*SubmissionOutcome, error) {
	feedback := signal.Feedback

	improvementFactor := o.preUpdateImprovementFactor(ctx, signal.UserID)

	deltas := masteryDeltas(signal.Mission.Concepts, feedback)
	profile, snapshot, err := o.progress.ApplyAdaptiveUpdate(ctx, signal.UserID, deltas, progress.UpdateOptions{
		Score:            float64(feedback.Score),
		WeakConcepts:     feedback.WeakConcepts,
		StrongConcepts:   feedback.StrongConcepts,
		TimeSpentSeconds: signal.TimeSpent,
		IsSuccessful:     feedback.Success,
	})
	if err != nil {
		return nil, fmt.Errorf("apply mastery update: %w", err)
	}

	xp := ComputeXP(signal.Mission.Difficulty, feedback.Score, improvementFactor)
	timeSpentMinutes := int(signal.TimeSpent / 60)
	award, err := o.rewards.AwardMissionXP(ctx, signal.UserID, signal.MissionID, xp, feedback.Success, signal.Attempts, timeSpentMinutes)
	if err != nil {
		return nil, fmt.Errorf("award mission xp: %w", err)
	}

	outcome := &SubmissionOutcome{
		XPGained:        0,
		TotalXP:         award.TotalXP,
		Level:           award.Level,
		LeveledUp:       award.LeveledUp,
		Streak:          award.Streak,
		Mastery:         snapshot,
		NewAchievements: award.NewUnlocks,
	}
	if award.Awarded {
		outcome.XPGained = award.XPGained
	}

	if feedback.Success {
		streak, err := o.rewards.UpdateStreak(ctx, signal.UserID)
		if err != nil {
			return nil, fmt.Errorf("update streak: %w", err)
		}
		outcome.Streak = streak.Streak
		outcome.NewAchievements = append(outcome.NewAchievements, streak.NewUnlocks...)

		badges, err := o.rewards.CheckContextAchievements(ctx, signal.UserID, gamification.SubmissionContext{
			Awarded:            award.Awarded,
			FirstTry:           signal.Attempts == 1,
			PerfectScore:       feedback.Score >= 100,
			Difficulty:         signal.Mission.Difficulty,
			HintsUsed:          signal.HintsUsed,
			TimeSpentMinutes:   float64(signal.TimeSpent) / 60.0,
			StrongConceptCount: len(feedback.StrongConcepts),
			ImprovementFactor:  improvementFactor,
			SubmittedAt:        signal.SubmittedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("check context achievements: %w", err)
		}
		outcome.NewAchievements = append(outcome.NewAchievements, badges...)
	}

	outcome.WeakConcepts = weakConceptUnion(feedback.WeakConcepts, signal.Mission.Concepts, snapshot)

	// From here on nothing may fail the submission.
	o.recommend(ctx, signal.UserID, outcome)
	outcome.Insights = deriveInsights(profile.TotalMissionsCompleted, outcome.WeakConcepts, feedback.Score)

	if feedback.Success {
		o.emitCompleted(ctx, signal, outcome)
	}

	return outcome, nil
}

// preUpdateImprovementFactor reads the learner's completed-mission count
// before the mastery write. A missing profile counts as zero completions.
func (o *Orchestrator) preUpdateImprovementFactor(ctx context.Context, userID uuid.UUID) float64 {
	profile, err := o.progress.Profile(ctx, userID)
	if err != nil {
		return 0
	}
	return ImprovementFactor(profile.TotalMissionsCompleted)
}

// weakConceptUnion merges the analysis weak list with every mission concept
// whose post-update mastery classifies weak.
func weakConceptUnion(analysisWeak, missionConcepts []string, mastery map[string]int) []string {
	seen := make(map[string]struct{}, len(analysisWeak))
	for _, concept := range analysisWeak {
		seen[concept] = struct{}{}
	}
	for _, concept := range missionConcepts {
		if mastery[concept] < domain.WeakThreshold {
			seen[concept] = struct{}{}
		}
	}

	union := make([]string, 0, len(seen))
	for concept := range seen {
		union = append(union, concept)
	}
	sort.Strings(union)
	return union
}

// recommend fills the outcome's recommendation fields. Lookup failures are
// downgraded to "no recommendation".
func (o *Orchestrator) recommend(ctx context.Context, userID uuid.UUID, outcome *SubmissionOutcome) {
	if o.missions == nil {
		return
	}

	completed := o.completedMissions(ctx, userID)

	if len(outcome.WeakConcepts) > 0 {
		recommended, err := o.missions.AdaptiveMissions(ctx, outcome.WeakConcepts, completed, recommendationLimit)
		if err != nil {
			o.logger.Warn("adaptive mission lookup failed", "user_id", userID, "error", err)
			return
		}
		outcome.Recommended = recommended
		if len(recommended) > 0 {
			outcome.NextMission = &recommended[0]
		}
		return
	}

	next, err := o.missions.NextMission(ctx, completed)
	if err != nil {
		o.logger.Warn("next mission lookup failed", "user_id", userID, "error", err)
		return
	}
	outcome.NextMission = next
}

func (o *Orchestrator) completedMissions(ctx context.Context, userID uuid.UUID) []string {
	ledger, err := o.rewards.Ledger(ctx, userID)
	if err != nil {
		return nil
	}
	return ledger.CompletedMissions
}

// emitCompleted publishes submission.completed both in-process and to the
// message queue. Queue unavailability is logged, never fatal.
func (o *Orchestrator) emitCompleted(ctx context.Context, signal SubmissionSignal, outcome *SubmissionOutcome) {
	event := domain.NewSubmissionCompletedEvent(
		signal.UserID,
		signal.MissionID,
		signal.SubmissionID,
		signal.Feedback.Score,
		signal.Feedback.Success,
		signal.Mission.Concepts,
		outcome.WeakConcepts,
		signal.Mission.Difficulty,
		signal.Feedback,
	)

	if o.events != nil {
		o.events.Publish(event)
	}
	if o.publisher != nil {
		if err := o.publisher.PublishSubmissionCompleted(ctx, event); err != nil {
			o.logger.Warn("queue publish failed", "submission_id", signal.SubmissionID, "error", err)
		}
	}
}
