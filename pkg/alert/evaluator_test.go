package alert

import (
	"testing"
	"time"

	"github.com/citygrid/trafficpulse/pkg/traffic"
)

func predsAt(t0 time.Time, counts ...float64) []traffic.Prediction {
	out := make([]traffic.Prediction, len(counts))
	for i, c := range counts {
		out[i] = traffic.Prediction{
			Timestamp: t0.Add(time.Duration(i+1) * time.Minute),
			Count:     c,
		}
	}
	return out
}

func TestEvaluator_Evaluate(t *testing.T) {
	t0 := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		threshold       float64
		counts          []float64
		wantActive      bool
		wantPeak        float64
		wantTriggeredAt time.Time
	}{
		{
			name:      "all below threshold",
			threshold: 150,
			counts:    []float64{100, 120, 149.9},
			wantPeak:  149.9,
		},
		{
			name:      "exactly at threshold stays inactive",
			threshold: 150,
			counts:    []float64{140, 150, 145},
			wantPeak:  150,
		},
		{
			name:            "single exceedance",
			threshold:       150,
			counts:          []float64{140, 150.1, 145},
			wantActive:      true,
			wantPeak:        150.1,
			wantTriggeredAt: t0.Add(2 * time.Minute),
		},
		{
			name:            "earliest exceedance wins",
			threshold:       150,
			counts:          []float64{160, 120, 180},
			wantActive:      true,
			wantPeak:        180,
			wantTriggeredAt: t0.Add(1 * time.Minute),
		},
		{
			name:      "empty predictions",
			threshold: 150,
			counts:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator(tt.threshold)
			got := e.Evaluate(predsAt(t0, tt.counts...))

			if got.Active != tt.wantActive {
				t.Errorf("Active = %v, want %v", got.Active, tt.wantActive)
			}
			if got.PeakCount != tt.wantPeak {
				t.Errorf("PeakCount = %v, want %v", got.PeakCount, tt.wantPeak)
			}
			if got.Threshold != tt.threshold {
				t.Errorf("Threshold = %v, want %v", got.Threshold, tt.threshold)
			}
			if !got.TriggeredAt.Equal(tt.wantTriggeredAt) {
				t.Errorf("TriggeredAt = %v, want %v", got.TriggeredAt, tt.wantTriggeredAt)
			}
			if got.EventID != "" {
				t.Errorf("EventID = %q, want empty: assignment belongs to the caller", got.EventID)
			}
		})
	}
}

func TestEvaluator_EvaluateIsPure(t *testing.T) {
	t0 := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	e := NewEvaluator(150)
	preds := predsAt(t0, 200, 100)

	first := e.Evaluate(preds)
	second := e.Evaluate(preds)
	if first != second {
		t.Errorf("repeated Evaluate diverged: %+v vs %+v", first, second)
	}
}
