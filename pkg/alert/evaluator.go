// Package alert turns a prediction set into a congestion alert decision
// using a deterministic threshold policy.
package alert

import (
	"github.com/citygrid/trafficpulse/pkg/traffic"
)

// Evaluator compares predicted counts against a fixed congestion threshold.
// The threshold is configuration, never derived from data.
type Evaluator struct {
	threshold float64
}

// NewEvaluator creates an evaluator for the given threshold.
func NewEvaluator(threshold float64) *Evaluator {
	return &Evaluator{threshold: threshold}
}

// Threshold returns the configured congestion threshold.
func (e *Evaluator) Threshold() float64 {
	return e.threshold
}

// Evaluate derives the alert state from a prediction sequence.
//
// The alert is active iff at least one predicted count exceeds the
// threshold; TriggeredAt is the timestamp of the earliest such prediction
// and PeakCount the highest predicted count over the horizon. An empty
// sequence yields an inactive state. Evaluate is pure: EventID assignment
// is the pipeline's job.
func (e *Evaluator) Evaluate(predictions []traffic.Prediction) traffic.AlertState {
	state := traffic.AlertState{Threshold: e.threshold}

	for _, p := range predictions {
		if p.Count > state.PeakCount {
			state.PeakCount = p.Count
		}
		if p.Count > e.threshold && !state.Active {
			state.Active = true
			state.TriggeredAt = p.Timestamp
		}
	}

	return state
}
