package gamification

import (
	"fmt"

	"github.com/skillforge/skillforge/internal/domain"
)

// DefaultDefinitions returns the built-in achievement catalog. Stores seed
// these at startup; deployments may extend the catalog with their own rows.
func DefaultDefinitions() []domain.AchievementDefinition {
	defs := []domain.AchievementDefinition{
		// Context-based achievements, resolved by stable context keys.
		{ID: "first_try", Name: "One Shot", Description: "Complete a mission on the first attempt", Icon: "🎯", Rarity: domain.RarityCommon, Category: domain.CategorySpecial, ContextKey: domain.ContextFirstTry},
		{ID: "perfect_score", Name: "Flawless", Description: "Score 100 on a mission", Icon: "💯", Rarity: domain.RarityRare, Category: domain.CategorySpecial, ContextKey: domain.ContextPerfectScore},
		{ID: "perfectionist", Name: "Perfectionist", Description: "Score 100 on ten missions", Icon: "✨", Rarity: domain.RarityEpic, Category: domain.CategorySpecial, ContextKey: domain.ContextPerfectionist},
		{ID: "hard_no_hints", Name: "No Safety Net", Description: "Complete a hard mission without hints", Icon: "🧗", Rarity: domain.RarityEpic, Category: domain.CategorySpecial, ContextKey: domain.ContextHardNoHints},
		{ID: "speed_runner", Name: "Speed Runner", Description: "Complete a mission in under two minutes", Icon: "⚡", Rarity: domain.RarityRare, Category: domain.CategorySpeed, ContextKey: domain.ContextSpeedRunner},
		{ID: "night_owl", Name: "Night Owl", Description: "Complete a mission late at night", Icon: "🦉", Rarity: domain.RarityCommon, Category: domain.CategorySpecial, ContextKey: domain.ContextNightOwl},
		{ID: "early_bird", Name: "Early Bird", Description: "Complete a mission before the day starts", Icon: "🐦", Rarity: domain.RarityCommon, Category: domain.CategorySpecial, ContextKey: domain.ContextEarlyBird},
		{ID: "concept_collector", Name: "Concept Collector", Description: "Show strength in three concepts in one submission", Icon: "🧠", Rarity: domain.RarityRare, Category: domain.CategoryMastery, ContextKey: domain.ContextConceptCollector},
		{ID: "fast_learner", Name: "Fast Learner", Description: "Sustain a steep improvement trajectory", Icon: "📈", Rarity: domain.RarityEpic, Category: domain.CategoryMastery, ContextKey: domain.ContextFastLearner},
	}

	missionNames := map[int]struct {
		name   string
		rarity domain.Rarity
	}{
		1:   {"First Steps", domain.RarityCommon},
		5:   {"Getting Going", domain.RarityCommon},
		10:  {"Committed", domain.RarityRare},
		20:  {"Seasoned", domain.RarityRare},
		50:  {"Veteran", domain.RarityEpic},
		100: {"Centurion", domain.RarityLegendary},
	}
	for _, target := range domain.MissionThresholds {
		m := missionNames[target]
		defs = append(defs, domain.AchievementDefinition{
			ID:          fmt.Sprintf("mission_%d", target),
			Name:        m.name,
			Description: fmt.Sprintf("Complete %d missions", target),
			Icon:        "🚀",
			Rarity:      m.rarity,
			Category:    domain.CategoryMission,
			Target:      target,
		})
	}

	xpNames := map[int]struct {
		name   string
		rarity domain.Rarity
	}{
		100:  {"Rising Star", domain.RarityCommon},
		500:  {"Climber", domain.RarityCommon},
		1000: {"Powerhouse", domain.RarityRare},
		2500: {"Force of Nature", domain.RarityEpic},
		5000: {"Legend", domain.RarityLegendary},
	}
	for _, target := range domain.XPThresholds {
		x := xpNames[target]
		defs = append(defs, domain.AchievementDefinition{
			ID:          fmt.Sprintf("xp_%d", target),
			Name:        x.name,
			Description: fmt.Sprintf("Earn %d XP", target),
			Icon:        "⭐",
			Rarity:      x.rarity,
			Category:    domain.CategoryXP,
			Target:      target,
		})
	}

	streakNames := map[int]struct {
		name   string
		rarity domain.Rarity
	}{
		3:   {"Warming Up", domain.RarityCommon},
		7:   {"Week Warrior", domain.RarityCommon},
		14:  {"Dedicated", domain.RarityRare},
		30:  {"Monthly Master", domain.RarityEpic},
		100: {"Unstoppable", domain.RarityLegendary},
	}
	for _, target := range domain.StreakThresholds {
		s := streakNames[target]
		defs = append(defs, domain.AchievementDefinition{
			ID:          fmt.Sprintf("streak_%d", target),
			Name:        s.name,
			Description: fmt.Sprintf("Stay active %d days in a row", target),
			Icon:        "🔥",
			Rarity:      s.rarity,
			Category:    domain.CategoryStreak,
			Target:      target,
		})
	}

	return defs
}
