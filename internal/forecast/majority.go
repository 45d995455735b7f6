package forecast

import "github.com/pr-poehali-dev/alpha-omega-bot/internal/outcome"

// Majority is the streak/majority-vote variant: a tail streak of length
// streakThreshold or more is followed, otherwise the overall majority value
// wins, ties to Alpha. Its tie-break rules are intentionally kept separate
// from the Transitions strategy.
type Majority struct{}

// Forecast implements Forecaster.
func (Majority) Forecast(history []outcome.Outcome, horizon int) []outcome.Outcome {
	return iterate(history, horizon, nextByMajority)
}

func nextByMajority(history []outcome.Outcome) outcome.Outcome {
	if len(history) == 0 {
		return outcome.Alpha
	}

	last := history[len(history)-1]
	streak := 0
	for i := len(history) - 1; i >= 0 && history[i] == last; i-- {
		streak++
	}
	if streak >= streakThreshold {
		return last
	}
	return majorityOf(history)
}
