package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/skillforge/skillforge/internal/domain"
)

// ProfileStore implements mastery profile persistence backed by PostgreSQL.
type ProfileStore struct {
	db *DB
}

// NewProfileStore creates a new postgres-backed profile store.
func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Get retrieves a profile by user ID.
func (s *ProfileStore) Get(ctx context.Context, userID uuid.UUID) (*domain.MasteryProfile, error) {
	row := s.db.Pool.QueryRow(ctx, `
		SELECT user_id, concept_mastery, weak_concepts, strong_concepts,
			completed_concepts, total_missions_completed, total_time_spent,
			average_score, version, created_at, updated_at
		FROM mastery_profiles WHERE user_id = $1`, userID)

	var p domain.MasteryProfile
	var conceptMastery, weak, strong, completed []byte

	err := row.Scan(
		&p.UserID, &conceptMastery, &weak, &strong, &completed,
		&p.TotalMissionsCompleted, &p.TotalTimeSpent, &p.AverageScore,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("scan mastery profile: %w", err)
	}

	if err := json.Unmarshal(conceptMastery, &p.ConceptMastery); err != nil {
		return nil, fmt.Errorf("unmarshal concept_mastery: %w", err)
	}
	if err := json.Unmarshal(weak, &p.WeakConcepts); err != nil {
		return nil, fmt.Errorf("unmarshal weak_concepts: %w", err)
	}
	if err := json.Unmarshal(strong, &p.StrongConcepts); err != nil {
		return nil, fmt.Errorf("unmarshal strong_concepts: %w", err)
	}
	if err := json.Unmarshal(completed, &p.CompletedConcepts); err != nil {
		return nil, fmt.Errorf("unmarshal completed_concepts: %w", err)
	}

	return &p, nil
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
		_, err := s.db.Pool.Exec(ctx, `
			INSERT INTO mastery_profiles (user_id, concept_mastery, weak_concepts,
				strong_concepts, completed_concepts, total_missions_completed,
				total_time_spent, average_score, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10)`,
			p.UserID, conceptMastery, weak, strong, completed,
			p.TotalMissionsCompleted, p.TotalTimeSpent, p.AverageScore,
			p.CreatedAt, now,
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

	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE mastery_profiles SET
			concept_mastery = $1, weak_concepts = $2, strong_concepts = $3,
			completed_concepts = $4, total_missions_completed = $5,
			total_time_spent = $6, average_score = $7, version = version + 1,
			updated_at = $8
		WHERE user_id = $9 AND version = $10`,
		conceptMastery, weak, strong, completed,
		p.TotalMissionsCompleted, p.TotalTimeSpent, p.AverageScore, now,
		p.UserID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("update mastery profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}

	p.Version++
	p.UpdatedAt = now
	return nil
}

// isUniqueViolation reports a primary-key collision (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
