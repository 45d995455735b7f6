package forecast

import "github.com/pr-poehali-dev/alpha-omega-bot/internal/outcome"

// Transitions forecasts from last-pair transition statistics over the recent
// window, falling back to global frequency for short histories or when the
// most recent value has no recorded outgoing transitions.
type Transitions struct{}

// Forecast implements Forecaster.
func (Transitions) Forecast(history []outcome.Outcome, horizon int) []outcome.Outcome {
	return iterate(history, horizon, nextByTransitions)
}

func nextByTransitions(history []outcome.Outcome) outcome.Outcome {
	if len(history) == 0 {
		return outcome.Alpha
	}
	if len(history) < minHistoryForTransitions {
		return majorityOf(history)
	}

	window := history
	if len(window) > recentWindow {
		window = window[len(window)-recentWindow:]
	}

	// tally[v][next] counts how often next follows v in the window.
	var tally [2][2]int
	for i := 0; i+1 < len(window); i++ {
		tally[window[i]][window[i+1]]++
	}

	last := history[len(history)-1]
	alpha, omega := tally[last][outcome.Alpha], tally[last][outcome.Omega]
	if alpha == 0 && omega == 0 {
		// Last value never appears as a pair head in the window.
		return majorityOf(history)
	}
	if alpha >= omega {
		return outcome.Alpha
	}
	return outcome.Omega
}
