package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skillforge/skillforge/internal/domain"
)

// LedgerStore implements reward ledger persistence backed by SQLite.
type LedgerStore struct {
	db *DB
}

// NewLedgerStore creates a new SQLite-backed ledger store.
func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// Get retrieves a ledger by user ID.
func (s *LedgerStore) Get(ctx context.Context, userID uuid.UUID) (*domain.RewardLedger, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, xp, streak, last_active_date, completed_missions,
			achievements, total_missions_completed, perfect_score_count,
			first_try_success_count, hints_used_total, total_time_spent_minutes,
			version, created_at, updated_at
		FROM reward_ledgers WHERE user_id = ?`, userID.String())

	return scanLedger(row)
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
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO reward_ledgers (user_id, xp, streak, last_active_date,
				completed_missions, achievements, total_missions_completed,
				perfect_score_count, first_try_success_count, hints_used_total,
				total_time_spent_minutes, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			l.UserID.String(), l.XP, l.Streak, lastActive,
			string(completedMissions), string(achievements),
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

	result, err := s.db.ExecContext(ctx, `
		UPDATE reward_ledgers SET
			xp = ?, streak = ?, last_active_date = ?, completed_missions = ?,
			achievements = ?, total_missions_completed = ?,
			perfect_score_count = ?, first_try_success_count = ?,
			hints_used_total = ?, total_time_spent_minutes = ?,
			version = version + 1, updated_at = ?
		WHERE user_id = ? AND version = ?`,
		l.XP, l.Streak, lastActive, string(completedMissions), string(achievements),
		l.TotalMissionsCompleted, l.PerfectScoreCount, l.FirstTrySuccessCount,
		l.HintsUsedTotal, l.TotalTimeSpentMinutes, now,
		l.UserID.String(), l.Version,
	)
	if err != nil {
		return fmt.Errorf("update reward ledger: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrVersionConflict
	}

	l.Version++
	l.UpdatedAt = now
	return nil
}

func scanLedger(row *sql.Row) (*domain.RewardLedger, error) {
	var l domain.RewardLedger
	var userID string
	var lastActive sql.NullTime
	var completedMissionsJSON, achievementsJSON string

	err := row.Scan(
		&userID, &l.XP, &l.Streak, &lastActive, &completedMissionsJSON,
		&achievementsJSON, &l.TotalMissionsCompleted, &l.PerfectScoreCount,
		&l.FirstTrySuccessCount, &l.HintsUsedTotal, &l.TotalTimeSpentMinutes,
		&l.Version, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLedgerNotFound
		}
		return nil, fmt.Errorf("scan reward ledger: %w", err)
	}

	l.UserID, err = uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	if lastActive.Valid {
		l.LastActiveDate = lastActive.Time
	}
	if err := json.Unmarshal([]byte(completedMissionsJSON), &l.CompletedMissions); err != nil {
		return nil, fmt.Errorf("unmarshal completed_missions: %w", err)
	}
	if err := json.Unmarshal([]byte(achievementsJSON), &l.Achievements); err != nil {
		return nil, fmt.Errorf("unmarshal achievements: %w", err)
	}

	return &l, nil
}
