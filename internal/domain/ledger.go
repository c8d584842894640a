package domain

import (
	"time"

	"github.com/google/uuid"
)

// XPPerLevel is the XP span of a single level.
const XPPerLevel = 100

// AchievementUnlock records a single unlocked achievement. It references the
// catalog by ID only; display fields are never duplicated into the ledger.
type AchievementUnlock struct {
	AchievementID string    `json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}

// RewardLedger tracks a user's XP, level, streak and unlocks. It is owned
// exclusively by the gamification engine. CompletedMissions and Achievements
// are the idempotency gates: membership is checked before any mutation.
type RewardLedger struct {
	UserID                 uuid.UUID           `json:"user_id"`
	XP                     int                 `json:"xp"`
	Streak                 int                 `json:"streak"`
	LastActiveDate         time.Time           `json:"last_active_date"` // day granularity, zero if never active
	CompletedMissions      []string            `json:"completed_missions"`
	Achievements           []AchievementUnlock `json:"achievements"`
	TotalMissionsCompleted int                 `json:"total_missions_completed"`
	PerfectScoreCount      int                 `json:"perfect_score_count"`
	FirstTrySuccessCount   int                 `json:"first_try_success_count"`
	HintsUsedTotal         int                 `json:"hints_used_total"`
	TotalTimeSpentMinutes  int                 `json:"total_time_spent_minutes"`
	Version                int64               `json:"version"`
	CreatedAt              time.Time           `json:"created_at"`
	UpdatedAt              time.Time           `json:"updated_at"`
}

// NewRewardLedger creates an empty ledger for a user.
func NewRewardLedger(userID uuid.UUID) *RewardLedger {
	now := time.Now()
	return &RewardLedger{
		UserID:            userID,
		CompletedMissions: []string{},
		Achievements:      []AchievementUnlock{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Level derives the current level from XP. The level is never stored
// independently of this formula.
func (l *RewardLedger) Level() int {
	return LevelForXP(l.XP)
}

// LevelForXP computes floor(xp/100) + 1.
func LevelForXP(xp int) int {
	if xp < 0 {
		return 1
	}
	return xp/XPPerLevel + 1
}

// HasCompletedMission reports whether XP was already granted for a mission.
func (l *RewardLedger) HasCompletedMission(missionID string) bool {
	for _, id := range l.CompletedMissions {
		if id == missionID {
			return true
		}
	}
	return false
}

// MarkMissionCompleted adds a mission to the completed set. Returns false
// without mutation when the mission is already present.
func (l *RewardLedger) MarkMissionCompleted(missionID string) bool {
	if l.HasCompletedMission(missionID) {
		return false
	}
	l.CompletedMissions = append(l.CompletedMissions, missionID)
	return true
}

// HasAchievement reports whether an achievement is already unlocked.
func (l *RewardLedger) HasAchievement(achievementID string) bool {
	for _, a := range l.Achievements {
		if a.AchievementID == achievementID {
			return true
		}
	}
	return false
}

// GrantAchievement appends an unlock. Returns false without mutation when
// the achievement is already present.
func (l *RewardLedger) GrantAchievement(achievementID string, at time.Time) bool {
	if l.HasAchievement(achievementID) {
		return false
	}
	l.Achievements = append(l.Achievements, AchievementUnlock{
		AchievementID: achievementID,
		UnlockedAt:    at,
	})
	return true
}

// StreakOutcome describes the result of a streak evaluation.
type StreakOutcome string

const (
	StreakUnchanged StreakOutcome = "unchanged"
	StreakExtended  StreakOutcome = "extended"
	StreakReset     StreakOutcome = "reset"
	StreakStarted   StreakOutcome = "started"
)

// AdvanceStreak evaluates the consecutive-day streak against now. Days are
// compared at midnight granularity; time of day never matters. The ledger's
// LastActiveDate is always set to today's normalized date afterwards.
func (l *RewardLedger) AdvanceStreak(now time.Time) StreakOutcome {
	today := DayOf(now)

	outcome := StreakStarted
	if !l.LastActiveDate.IsZero() {
		switch diffDays(l.LastActiveDate, today) {
		case 0:
			outcome = StreakUnchanged
		case 1:
			outcome = StreakExtended
		default:
			outcome = StreakReset
		}
	}

	switch outcome {
	case StreakStarted, StreakReset:
		l.Streak = 1
	case StreakExtended:
		l.Streak++
	}

	l.LastActiveDate = today
	return outcome
}

// DayOf normalizes a time to midnight of its calendar day.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// diffDays returns the whole-day distance between two midnight-normalized
// dates, rounding any partial day up.
func diffDays(a, b time.Time) int {
	d := b.Sub(a)
	if d < 0 {
		d = -d
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// Clone returns a deep copy of the ledger.
func (l *RewardLedger) Clone() *RewardLedger {
	cp := *l
	cp.CompletedMissions = append([]string{}, l.CompletedMissions...)
	cp.Achievements = append([]AchievementUnlock{}, l.Achievements...)
	return &cp
}
