// Package forecast implements next-outcome heuristics over the observation
// history. Strategies are deterministic and derive everything fresh from the
// history they are given; there is no learned state.
package forecast

import (
	"fmt"

	"github.com/pr-poehali-dev/alpha-omega-bot/internal/outcome"
)

// Heuristic configuration constants
const (
	// DefaultHorizon is the number of future steps forecast per batch.
	DefaultHorizon = 3

	// Transition statistics are built over the last recentWindow observations.
	recentWindow = 10

	// Below this history length the global frequency comparison is used.
	minHistoryForTransitions = 3

	// Streak length at which the majority strategy follows the streak.
	streakThreshold = 3
)

// Strategy names accepted by New.
const (
	StrategyTransitions = "transitions"
	StrategyMajority    = "majority"
)

// Forecaster produces horizon forecasts for the observations that will follow
// the given history. Implementations must not mutate history.
type Forecaster interface {
	Forecast(history []outcome.Outcome, horizon int) []outcome.Outcome
}

// New returns the named strategy.
func New(strategy string) (Forecaster, error) {
	switch strategy {
	case StrategyTransitions:
		return Transitions{}, nil
	case StrategyMajority:
		return Majority{}, nil
	}
	return nil, fmt.Errorf("unknown forecast strategy %q", strategy)
}

// majorityOf returns the value with the >= occurrence count, Alpha on ties.
func majorityOf(history []outcome.Outcome) outcome.Outcome {
	var alpha, omega int
	for _, v := range history {
		if v == outcome.Omega {
			omega++
		} else {
			alpha++
		}
	}
	if alpha >= omega {
		return outcome.Alpha
	}
	return outcome.Omega
}

// iterate produces a horizon batch by repeatedly applying next, appending
// each forecast to a working copy of the history so later steps in the same
// batch see earlier forecasts as if they had occurred.
func iterate(history []outcome.Outcome, horizon int, next func([]outcome.Outcome) outcome.Outcome) []outcome.Outcome {
	work := make([]outcome.Outcome, len(history), len(history)+horizon)
	copy(work, history)

	batch := make([]outcome.Outcome, 0, horizon)
	for i := 0; i < horizon; i++ {
		v := next(work)
		batch = append(batch, v)
		work = append(work, v)
	}
	return batch
}
