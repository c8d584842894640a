package domain

// Difficulty represents mission difficulty level
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Mission is the mission-content collaborator's record, reduced to the
// fields this core consumes.
type Mission struct {
	ID          string     `json:"id"` // slug: "go-v1/basics/loops"
	PackID      string     `json:"pack_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  Difficulty `json:"difficulty"`
	Concepts    []string   `json:"concepts"`
	XPReward    int        `json:"xp_reward"`
	Tags        []string   `json:"tags"`
}

// AnalysisResult is the already-scored submission feedback produced by the
// external AI-analysis collaborator. A zero value is a valid degraded input
// and is treated as neutral performance.
type AnalysisResult struct {
	Success        bool     `json:"success"`
	Score          int      `json:"score"` // 0..100
	WeakConcepts   []string `json:"weak_concepts"`
	StrongConcepts []string `json:"strong_concepts"`
	Hints          []string `json:"hints"`
	Suggestions    []string `json:"suggestions"`
}
