package adaptivity

import (
	"math"

	"github.com/skillforge/skillforge/internal/domain"
)

// Mastery deltas applied per mission concept, depending on how the
// analysis classified the learner's performance on it.
const (
	deltaStrong  = 0.15
	deltaWeak    = -0.05
	deltaNeutral = 0.05
)

// BaseXP returns the base reward for a mission difficulty.
func BaseXP(difficulty domain.Difficulty) int {
	switch difficulty {
	case domain.DifficultyEasy:
		return 10
	case domain.DifficultyMedium:
		return 20
	case domain.DifficultyHard:
		return 30
	default:
		return 15
	}
}

// ImprovementFactor maps the learner's completed-mission count to [0, 1].
// Fewer than two completions yield no bonus; the factor saturates at 50.
// It is a deliberately simple monotonic proxy for learning trajectory.
func ImprovementFactor(completedMissions int) float64 {
	if completedMissions < 2 {
		return 0
	}
	return math.Min(float64(completedMissions)/50.0, 1.0)
}

// ComputeXP derives the adaptive XP reward. The score multiplier spans
// 0.5 (score 0) to 1.5 (score 100); the improvement factor adds up to 50%
// on top.
func ComputeXP(difficulty domain.Difficulty, score int, improvementFactor float64) int {
	base := float64(BaseXP(difficulty))
	scoreMultiplier := 0.5 + float64(score)/100.0
	improvementBonus := improvementFactor * 0.5
	return int(math.Round(base * scoreMultiplier * (1 + improvementBonus)))
}

// masteryDeltas builds the per-concept delta map for a mission from the
// analysis classification.
func masteryDeltas(concepts []string, feedback domain.AnalysisResult) map[string]float64 {
	deltas := make(map[string]float64, len(concepts))
	for _, concept := range concepts {
		switch {
		case containsConcept(feedback.StrongConcepts, concept):
			deltas[concept] = deltaStrong
		case containsConcept(feedback.WeakConcepts, concept):
			deltas[concept] = deltaWeak
		default:
			deltas[concept] = deltaNeutral
		}
	}
	return deltas
}

func containsConcept(concepts []string, concept string) bool {
	for _, c := range concepts {
		if c == concept {
			return true
		}
	}
	return false
}
