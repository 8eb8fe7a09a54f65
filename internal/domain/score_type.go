package domain

// ScoreType enumerates rugby scoring actions. The point value is a property
// of the type; the store API still accepts an arbitrary points value per
// submission, so Points is a pre-fill, not an enforced rule.
type ScoreType string

const (
	ScoreTry        ScoreType = "try"
	ScoreConversion ScoreType = "conversion"
	ScorePenalty    ScoreType = "penalty"
	ScoreDropGoal   ScoreType = "drop_goal"
)

func (t ScoreType) Valid() bool {
	switch t {
	case ScoreTry, ScoreConversion, ScorePenalty, ScoreDropGoal:
		return true
	}
	return false
}

// Points returns the standard value for the score type.
func (t ScoreType) Points() int {
	switch t {
	case ScoreTry:
		return 5
	case ScoreConversion:
		return 2
	case ScorePenalty, ScoreDropGoal:
		return 3
	}
	return 0
}
