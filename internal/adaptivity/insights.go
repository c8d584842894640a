package adaptivity

import "fmt"

// LearningVelocity buckets a learner by completed-mission count.
type LearningVelocity string

const (
	VelocityBeginner   LearningVelocity = "beginner"
	VelocityDeveloping LearningVelocity = "developing"
	VelocityProficient LearningVelocity = "proficient"
	VelocityAdvanced   LearningVelocity = "advanced"
)

// LearningInsights is display-only derived state. It is never persisted.
type LearningInsights struct {
	Velocity         LearningVelocity `json:"velocity"`
	RecommendedFocus []string         `json:"recommended_focus"`
}

// VelocityFor buckets the completed-mission count.
func VelocityFor(completedMissions int) LearningVelocity {
	switch {
	case completedMissions < 5:
		return VelocityBeginner
	case completedMissions < 15:
		return VelocityDeveloping
	case completedMissions < 30:
		return VelocityProficient
	default:
		return VelocityAdvanced
	}
}

// deriveInsights builds the free-text focus suggestions shown alongside the
// submission outcome.
func deriveInsights(completedMissions int, weakConcepts []string, score int) LearningInsights {
	insights := LearningInsights{Velocity: VelocityFor(completedMissions)}

	for i, concept := range weakConcepts {
		if i == 3 {
			break
		}
		insights.RecommendedFocus = append(insights.RecommendedFocus,
			fmt.Sprintf("Practice more missions covering %s", concept))
	}

	switch {
	case score < 50:
		insights.RecommendedFocus = append(insights.RecommendedFocus,
			"Revisit the mission brief before retrying")
	case score >= 90 && len(weakConcepts) == 0:
		insights.RecommendedFocus = append(insights.RecommendedFocus,
			"Try a harder difficulty for a bigger challenge")
	}

	return insights
}
