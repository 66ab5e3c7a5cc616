package assessment

import "math"

// Tier is the presentation hint for a finished exercise.
type Tier string

const (
	TierExcellent      Tier = "excellent"
	TierGood           Tier = "good"
	TierNiceEffort     Tier = "nice effort"
	TierKeepPracticing Tier = "keep practicing"
)

// Message returns the learner-facing line for the tier.
func (t Tier) Message() string {
	switch t {
	case TierExcellent:
		return "Excellent work!"
	case TierGood:
		return "Good job!"
	case TierNiceEffort:
		return "Nice effort!"
	default:
		return "Keep practicing!"
	}
}

// Percent returns round(100*part/whole), or 0 when whole is 0.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}

// Classify maps a percentage to its tier.
func Classify(percentage int) Tier {
	switch {
	case percentage >= 90:
		return TierExcellent
	case percentage >= 70:
		return TierGood
	case percentage >= 50:
		return TierNiceEffort
	default:
		return TierKeepPracticing
	}
}

// Summary is the terminal view of an exercise attempt.
type Summary struct {
	Score      int    `json:"score"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
	Tier       Tier   `json:"tier"`
	Message    string `json:"message"`
}

// Summarize builds the summary for score out of total.
func Summarize(score, total int) Summary {
	pct := Percent(score, total)
	tier := Classify(pct)
	return Summary{
		Score:      score,
		Total:      total,
		Percentage: pct,
		Tier:       tier,
		Message:    tier.Message(),
	}
}
