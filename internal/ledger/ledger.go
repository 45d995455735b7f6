// Package ledger keeps the append-only prediction record book and the
// rolling accuracy bookkeeping. The ledger is not goroutine-safe; the
// tracker is its single mutator and serializes access.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pr-poehali-dev/alpha-omega-bot/internal/forecast"
	"github.com/pr-poehali-dev/alpha-omega-bot/internal/outcome"
)

// Record is created for every observation. Predictions are frozen at
// creation; Results move from nil to a boolean exactly once, as the
// corresponding future observations arrive.
type Record struct {
	ID          string            `json:"id"`
	CreatedAt   time.Time         `json:"created_at"`
	Actual      outcome.Outcome   `json:"actual"`
	Predictions []outcome.Outcome `json:"predictions"`
	Results     []*bool           `json:"results"`
}

// clone detaches a record from the ledger so it can be serialized outside
// the tracker lock while later observations resolve the live Results slots.
func (r *Record) clone() *Record {
	out := &Record{
		ID:          r.ID,
		CreatedAt:   r.CreatedAt,
		Actual:      r.Actual,
		Predictions: make([]outcome.Outcome, len(r.Predictions)),
		Results:     make([]*bool, len(r.Results)),
	}
	copy(out.Predictions, r.Predictions)
	for i, res := range r.Results {
		if res != nil {
			v := *res
			out.Results[i] = &v
		}
	}
	return out
}

// Resolution reports one result freeze: the forecast made Offset steps
// before the newest observation has been scored.
type Resolution struct {
	RecordID string `json:"record_id"`
	Offset   int    `json:"offset"` // 1-based steps ahead
	Correct  bool   `json:"correct"`
}

// Stats is the rolling accuracy snapshot.
type Stats struct {
	Resolved int    `json:"resolved"`
	Correct  int    `json:"correct"`
	Accuracy string `json:"accuracy"` // percentage with one decimal, "0.0" when nothing resolved
}

// Ledger is the ordered record book. Records are never removed except by
// Reset.
type Ledger struct {
	horizon      int
	forecaster   forecast.Forecaster
	records      []*Record
	observations []outcome.Outcome
	resolved     int
	correct      int
}

// New creates an empty ledger forecasting horizon steps ahead.
func New(f forecast.Forecaster, horizon int) *Ledger {
	if horizon < 1 {
		horizon = forecast.DefaultHorizon
	}
	return &Ledger{horizon: horizon, forecaster: f}
}

// Observe appends one observation: forecasts the next horizon outcomes from
// the history as it stood before this observation, creates the record, and
// resolves any pending result whose target step is the new observation.
// The returned record is a detached snapshot; the live copy keeps accruing
// results inside the ledger.
func (l *Ledger) Observe(v outcome.Outcome) (*Record, []Resolution) {
	rec := &Record{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now(),
		Actual:      v,
		Predictions: l.forecaster.Forecast(l.observations, l.horizon),
		Results:     make([]*bool, l.horizon),
	}

	// The new record takes index len(records); the record k positions back
	// made a k-step-ahead forecast targeting exactly this observation.
	var resolutions []Resolution
	for k := 1; k <= l.horizon; k++ {
		i := len(l.records) - k
		if i < 0 {
			break
		}
		prev := l.records[i]
		if prev.Results[k-1] != nil {
			continue
		}
		correct := prev.Predictions[k-1] == v
		prev.Results[k-1] = &correct
		l.resolved++
		if correct {
			l.correct++
		}
		resolutions = append(resolutions, Resolution{RecordID: prev.ID, Offset: k, Correct: correct})
	}

	l.records = append(l.records, rec)
	l.observations = append(l.observations, v)
	return rec.clone(), resolutions
}

// Stats returns the rolling accuracy snapshot.
func (l *Ledger) Stats() Stats {
	s := Stats{Resolved: l.resolved, Correct: l.correct, Accuracy: "0.0"}
	if l.resolved > 0 {
		s.Accuracy = fmt.Sprintf("%.1f", float64(l.correct)/float64(l.resolved)*100)
	}
	return s
}

// AccuracyPercent returns the accuracy as a number, for metrics export.
func (l *Ledger) AccuracyPercent() float64 {
	if l.resolved == 0 {
		return 0
	}
	return float64(l.correct) / float64(l.resolved) * 100
}

// NextForecasts returns the latest record's prediction batch: the forecasts
// for the observations not yet made. Nil before the first observation.
func (l *Ledger) NextForecasts() []outcome.Outcome {
	if len(l.records) == 0 {
		return nil
	}
	latest := l.records[len(l.records)-1]
	out := make([]outcome.Outcome, len(latest.Predictions))
	copy(out, latest.Predictions)
	return out
}

// Observations returns a copy of the full outcome sequence.
func (l *Ledger) Observations() []outcome.Outcome {
	out := make([]outcome.Outcome, len(l.observations))
	copy(out, l.observations)
	return out
}

// Recent returns the last n observations (fewer if the history is shorter),
// oldest first, for charting.
func (l *Ledger) Recent(n int) []outcome.Outcome {
	if n <= 0 || n > len(l.observations) {
		n = len(l.observations)
	}
	out := make([]outcome.Outcome, n)
	copy(out, l.observations[len(l.observations)-n:])
	return out
}

// Records returns up to limit of the most recent records as detached
// snapshots, oldest first. limit <= 0 returns everything.
func (l *Ledger) Records(limit int) []*Record {
	if limit <= 0 || limit > len(l.records) {
		limit = len(l.records)
	}
	out := make([]*Record, limit)
	for i, rec := range l.records[len(l.records)-limit:] {
		out[i] = rec.clone()
	}
	return out
}

// Len returns the number of observations recorded.
func (l *Ledger) Len() int { return len(l.observations) }

// Horizon returns the forecast batch size.
func (l *Ledger) Horizon() int { return l.horizon }

// Reset clears records, observations, and counters unconditionally.
func (l *Ledger) Reset() {
	l.records = nil
	l.observations = nil
	l.resolved = 0
	l.correct = 0
}
