package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/skillforge/skillforge/internal/domain"
)

// ProfileStore implements mastery profile persistence backed by SQLite.
type ProfileStore struct {
	db *DB
}

// NewProfileStore creates a new SQLite-backed profile store.
func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Get retrieves a profile by user ID.
func (s *ProfileStore) Get(ctx context.Context, userID uuid.UUID) (*domain.MasteryProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, concept_mastery, weak_concepts, strong_concepts,
			completed_concepts, total_missions_completed, total_time_spent,
			average_score, version, created_at, updated_at
		FROM mastery_profiles WHERE user_id = ?`, userID.String())

	return scanProfile(row)
}

// Save persists the profile conditionally on its version. Version zero
// inserts; any other version must match the stored row. On success the
// profile's Version is incremented in place.
func (s *ProfileStore) Save(ctx context.Context, p *domain.MasteryProfile) error {
	conceptMastery, err := json.Marshal(p.ConceptMastery)
	if err != nil {
		return fmt.Errorf("marshal concept_mastery: %w", err)
	}
	weak, err := json.Marshal(p.WeakConcepts)
	if err != nil {
		return fmt.Errorf("marshal weak_concepts: %w", err)
	}
	strong, err := json.Marshal(p.StrongConcepts)
	if err != nil {
		return fmt.Errorf("marshal strong_concepts: %w", err)
	}
	completed, err := json.Marshal(p.CompletedConcepts)
	if err != nil {
		return fmt.Errorf("marshal completed_concepts: %w", err)
	}

	now := time.Now()

	if p.Version == 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO mastery_profiles (user_id, concept_mastery, weak_concepts,
				strong_concepts, completed_concepts, total_missions_completed,
				total_time_spent, average_score, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			p.UserID.String(), string(conceptMastery), string(weak), string(strong),
			string(completed), p.TotalMissionsCompleted, p.TotalTimeSpent,
			p.AverageScore, p.CreatedAt, now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrVersionConflict
			}
			return fmt.Errorf("insert mastery profile: %w", err)
		}
		p.Version = 1
		p.UpdatedAt = now
		return nil
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE mastery_profiles SET
			concept_mastery = ?, weak_concepts = ?, strong_concepts = ?,
			completed_concepts = ?, total_missions_completed = ?,
			total_time_spent = ?, average_score = ?, version = version + 1,
			updated_at = ?
		WHERE user_id = ? AND version = ?`,
		string(conceptMastery), string(weak), string(strong), string(completed),
		p.TotalMissionsCompleted, p.TotalTimeSpent, p.AverageScore, now,
		p.UserID.String(), p.Version,
	)
	if err != nil {
		return fmt.Errorf("update mastery profile: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrVersionConflict
	}

	p.Version++
	p.UpdatedAt = now
	return nil
}

func scanProfile(row *sql.Row) (*domain.MasteryProfile, error) {
	var p domain.MasteryProfile
	var userID string
	var conceptMasteryJSON, weakJSON, strongJSON, completedJSON string

	err := row.Scan(
		&userID, &conceptMasteryJSON, &weakJSON, &strongJSON, &completedJSON,
		&p.TotalMissionsCompleted, &p.TotalTimeSpent, &p.AverageScore,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("scan mastery profile: %w", err)
	}

	p.UserID, err = uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	if err := json.Unmarshal([]byte(conceptMasteryJSON), &p.ConceptMastery); err != nil {
		return nil, fmt.Errorf("unmarshal concept_mastery: %w", err)
	}
	if err := json.Unmarshal([]byte(weakJSON), &p.WeakConcepts); err != nil {
		return nil, fmt.Errorf("unmarshal weak_concepts: %w", err)
	}
	if err := json.Unmarshal([]byte(strongJSON), &p.StrongConcepts); err != nil {
		return nil, fmt.Errorf("unmarshal strong_concepts: %w", err)
	}
	if err := json.Unmarshal([]byte(completedJSON), &p.CompletedConcepts); err != nil {
		return nil, fmt.Errorf("unmarshal completed_concepts: %w", err)
	}

	return &p, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
