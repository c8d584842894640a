package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skillforge/skillforge/internal/domain"
)

// LedgerStore implements reward ledger persistence backed by PostgreSQL.
type LedgerStore struct {
	db *DB
}

// NewLedgerStore creates a new postgres-backed ledger store.
func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// Get retrieves a ledger by user ID.
func (s *LedgerStore) Get(ctx context.Context, userID uuid.UUID) (*domain.RewardLedger, error) {
	row := s.db.Pool.QueryRow(ctx, `
		SELECT user_id, xp, streak, last_active_date, completed_missions,
			achievements, total_missions_completed, perfect_score_count,
			first_try_success_count, hints_used_total, total_time_spent_minutes,
			version, created_at, updated_at
		FROM reward_ledgers WHERE user_id = $1`, userID)

	var l domain.RewardLedger
	var lastActive sql.NullTime
	var completedMissions, achievements []byte

	err := row.Scan(
		&l.UserID, &l.XP, &l.Streak, &lastActive, &completedMissions,
		&achievements, &l.TotalMissionsCompleted, &l.PerfectScoreCount,
		&l.FirstTrySuccessCount, &l.HintsUsedTotal, &l.TotalTimeSpentMinutes,
		&l.Version, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("scan reward ledger: %w", err)
	}

	if lastActive.Valid {
		l.LastActiveDate = lastActive.Time
	}
	if err := json.Unmarshal(completedMissions, &l.CompletedMissions); err != nil {
		return nil, fmt.Errorf("unmarshal completed_missions: %w", err)
	}
	if err := json.Unmarshal(achievements, &l.Achievements); err != nil {
		return nil, fmt.Errorf("unmarshal achievements: %w", err)
	}

	return &l, nil
}

// Save persists the ledger conditionally on its version, mirroring the
// profile store's contract.
func (s *LedgerStore) Save(ctx context.Context, l *domain.RewardLedger) error {
	completedMissions, err := json.Marshal(l.CompletedMissions)
	if err != nil {
		return fmt.Errorf("marshal completed_missions: %w", err)
	}
	achievements, err := json.Marshal(l.Achievements)
	if err != nil {
		return fmt.Errorf("marshal achievements: %w", err)
	}

	var lastActive any
	if !l.LastActiveDate.IsZero() {
		lastActive = l.LastActiveDate
	}

	now := time.Now()

	if l.Version == 0 {
		_, err := s.db.Pool.Exec(ctx, `
			INSERT INTO reward_ledgers (user_id, xp, streak, last_active_date,
				completed_missions, achievements, total_missions_completed,
				perfect_score_count, first_try_success_count, hints_used_total,
				total_time_spent_minutes, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1, $12, $13)`,
			l.UserID, l.XP, l.Streak, lastActive, completedMissions, achievements,
			l.TotalMissionsCompleted, l.PerfectScoreCount, l.FirstTrySuccessCount,
			l.HintsUsedTotal, l.TotalTimeSpentMinutes, l.CreatedAt, now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrVersionConflict
			}
			return fmt.Errorf("insert reward ledger: %w", err)
		}
		l.Version = 1
		l.UpdatedAt = now
		return nil
	}

	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE reward_ledgers SET
			xp = $1, streak = $2, last_active_date = $3, completed_missions = $4,
			achievements = $5, total_missions_completed = $6,
			perfect_score_count = $7, first_try_success_count = $8,
			hints_used_total = $9, total_time_spent_minutes = $10,
			version = version + 1, updated_at = $11
		WHERE user_id = $12 AND version = $13`,
		l.XP, l.Streak, lastActive, completedMissions, achievements,
		l.TotalMissionsCompleted, l.PerfectScoreCount, l.FirstTrySuccessCount,
		l.HintsUsedTotal, l.TotalTimeSpentMinutes, now,
		l.UserID, l.Version,
	)
	if err != nil {
		return fmt.Errorf("update reward ledger: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}

	l.Version++
	l.UpdatedAt = now
	return nil
}
