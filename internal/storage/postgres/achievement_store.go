package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/skillforge/skillforge/internal/domain"
)

// AchievementStore is the postgres-backed achievement catalog.
type AchievementStore struct {
	db *DB
}

// NewAchievementStore creates a new postgres-backed achievement catalog.
func NewAchievementStore(db *DB) *AchievementStore {
	return &AchievementStore{db: db}
}

// Seed upserts the given definitions. Called at startup with the built-in
// catalog; existing rows are refreshed in place.
func (s *AchievementStore) Seed(ctx context.Context, defs []domain.AchievementDefinition) error {
	for _, def := range defs {
		_, err := s.db.Pool.Exec(ctx, `
			INSERT INTO achievements (id, name, description, icon, rarity, category, target, context_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				name=excluded.name,
				description=excluded.description,
				icon=excluded.icon,
				rarity=excluded.rarity,
				category=excluded.category,
				target=excluded.target,
				context_key=excluded.context_key`,
			def.ID, def.Name, def.Description, def.Icon,
			string(def.Rarity), string(def.Category), def.Target, def.ContextKey,
		)
		if err != nil {
			return fmt.Errorf("seed achievement %s: %w", def.ID, err)
		}
	}
	return nil
}

// ByID looks up a definition by achievement ID.
func (s *AchievementStore) ByID(ctx context.Context, id string) (*domain.AchievementDefinition, error) {
	return s.scanOne(s.db.Pool.QueryRow(ctx, `
		SELECT id, name, description, icon, rarity, category, target, context_key
		FROM achievements WHERE id = $1`, id))
}

// ByCategoryTarget looks up a threshold definition.
func (s *AchievementStore) ByCategoryTarget(ctx context.Context, category domain.AchievementCategory, target int) (*domain.AchievementDefinition, error) {
	return s.scanOne(s.db.Pool.QueryRow(ctx, `
		SELECT id, name, description, icon, rarity, category, target, context_key
		FROM achievements WHERE category = $1 AND target = $2`, string(category), target))
}

// ByContextKey looks up a context-based definition by its stable key.
func (s *AchievementStore) ByContextKey(ctx context.Context, key string) (*domain.AchievementDefinition, error) {
	return s.scanOne(s.db.Pool.QueryRow(ctx, `
		SELECT id, name, description, icon, rarity, category, target, context_key
		FROM achievements WHERE context_key = $1`, key))
}

func (s *AchievementStore) scanOne(row pgx.Row) (*domain.AchievementDefinition, error) {
	var def domain.AchievementDefinition
	var rarity, category string

	err := row.Scan(&def.ID, &def.Name, &def.Description, &def.Icon,
		&rarity, &category, &def.Target, &def.ContextKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAchievementNotFound
		}
		return nil, fmt.Errorf("scan achievement: %w", err)
	}

	def.Rarity = domain.Rarity(rarity)
	def.Category = domain.AchievementCategory(category)
	return &def, nil
}
