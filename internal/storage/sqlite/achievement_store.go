package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/skillforge/skillforge/internal/domain"
)

// AchievementStore is the SQLite-backed achievement catalog.
type AchievementStore struct {
	db *DB
}

// NewAchievementStore creates a new SQLite-backed achievement catalog.
func NewAchievementStore(db *DB) *AchievementStore {
	return &AchievementStore{db: db}
}

// Seed upserts the given definitions. Called at startup with the built-in
// catalog; existing rows are refreshed in place.
func (s *AchievementStore) Seed(ctx context.Context, defs []domain.AchievementDefinition) error {
	for _, def := range defs {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO achievements (id, name, description, icon, rarity, category, target, context_key)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
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
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, icon, rarity, category, target, context_key
		FROM achievements WHERE id = ?`, id)
	return scanAchievement(row)
}

// ByCategoryTarget looks up a threshold definition.
func (s *AchievementStore) ByCategoryTarget(ctx context.Context, category domain.AchievementCategory, target int) (*domain.AchievementDefinition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, icon, rarity, category, target, context_key
		FROM achievements WHERE category = ? AND target = ?`, string(category), target)
	return scanAchievement(row)
}

// ByContextKey looks up a context-based definition by its stable key.
func (s *AchievementStore) ByContextKey(ctx context.Context, key string) (*domain.AchievementDefinition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, icon, rarity, category, target, context_key
		FROM achievements WHERE context_key = ?`, key)
	return scanAchievement(row)
}

// List returns the whole catalog.
func (s *AchievementStore) List(ctx context.Context) ([]domain.AchievementDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, icon, rarity, category, target, context_key
		FROM achievements ORDER BY category, target, id`)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	var defs []domain.AchievementDefinition
	for rows.Next() {
		var def domain.AchievementDefinition
		var rarity, category string
		if err := rows.Scan(&def.ID, &def.Name, &def.Description, &def.Icon,
			&rarity, &category, &def.Target, &def.ContextKey); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		def.Rarity = domain.Rarity(rarity)
		def.Category = domain.AchievementCategory(category)
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func scanAchievement(row *sql.Row) (*domain.AchievementDefinition, error) {
	var def domain.AchievementDefinition
	var rarity, category string

	err := row.Scan(&def.ID, &def.Name, &def.Description, &def.Icon,
		&rarity, &category, &def.Target, &def.ContextKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAchievementNotFound
		}
		return nil, fmt.Errorf("scan achievement: %w", err)
	}

	def.Rarity = domain.Rarity(rarity)
	def.Category = domain.AchievementCategory(category)
	return &def, nil
}
