package domain

// Rarity classifies how hard an achievement is to earn.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// AchievementCategory groups achievements by the signal that unlocks them.
type AchievementCategory string

const (
	CategoryMission AchievementCategory = "mission"
	CategoryXP      AchievementCategory = "xp"
	CategoryStreak  AchievementCategory = "streak"
	CategorySpeed   AchievementCategory = "speed"
	CategoryMastery AchievementCategory = "mastery"
	CategorySpecial AchievementCategory = "special"
)

// Context keys for achievements unlocked by per-submission signals rather
// than stored thresholds. Definitions are resolved by these stable keys,
// never by display-name matching.
const (
	ContextFirstTry         = "first_try"
	ContextPerfectScore     = "perfect_score"
	ContextPerfectionist    = "perfectionist"
	ContextHardNoHints      = "hard_no_hints"
	ContextSpeedRunner      = "speed_runner"
	ContextNightOwl         = "night_owl"
	ContextEarlyBird        = "early_bird"
	ContextConceptCollector = "concept_collector"
	ContextFastLearner      = "fast_learner"
)

// AchievementDefinition is a catalog entry. The catalog is read-mostly and
// external to the ledger; ledgers reference definitions by ID only.
type AchievementDefinition struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Icon        string              `json:"icon"`
	Rarity      Rarity              `json:"rarity"`
	Category    AchievementCategory `json:"category"`
	Target      int                 `json:"target,omitempty"`      // numeric threshold, 0 when context-based
	ContextKey  string              `json:"context_key,omitempty"` // stable key for context-based unlocks
}

// Numeric threshold tables. Thresholds are evaluated inclusively: every
// threshold at or below the ledger's current value that is not yet unlocked
// unlocks in the same pass.
var (
	MissionThresholds = []int{1, 5, 10, 20, 50, 100}
	XPThresholds      = []int{100, 500, 1000, 2500, 5000}
	StreakThresholds  = []int{3, 7, 14, 30, 100}
)
