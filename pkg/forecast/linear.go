// Package forecast fits a short-horizon predictive model over the recent
// observation window.
//
// The model is an ordinary least-squares regression of vehicle count against
// elapsed time and, when a temperature forecast is available, ambient
// temperature as a second feature. Fitting is stateless per call: no model
// state survives between invocations except what arrives in the window.
package forecast

import (
	"errors"
	"math"
	"time"

	"github.com/citygrid/trafficpulse/pkg/traffic"
)

// ErrInsufficientData reports a window too small to fit. Callers must treat
// it as "no prediction available yet", not as a failure.
var ErrInsufficientData = errors.New("insufficient data to fit model")

// DefaultMinSamples is the minimum window size accepted by FitPredict.
const DefaultMinSamples = 2

// singularEps bounds the determinant, relative to the magnitude of the
// normal-equations terms, below which the system is treated as singular and
// a simpler model is used instead.
const singularEps = 1e-9

// Linear is the rolling OLS forecaster. Step and Horizon are fixed at
// construction; each call to FitPredict refits from scratch.
type Linear struct {
	step       time.Duration
	horizon    time.Duration
	minSamples int
}

// NewLinear creates a forecaster predicting horizon ahead at step intervals.
// Non-positive step or horizon are normalized to one prediction step.
func NewLinear(step, horizon time.Duration) *Linear {
	if step <= 0 {
		step = time.Minute
	}
	if horizon < step {
		horizon = step
	}
	return &Linear{
		step:       step,
		horizon:    horizon,
		minSamples: DefaultMinSamples,
	}
}

// Steps returns the number of prediction points per forecast.
func (l *Linear) Steps() int {
	return int(l.horizon / l.step)
}

// Step returns the prediction interval.
func (l *Linear) Step() time.Duration {
	return l.step
}

// MinSamples returns the smallest accepted window size.
func (l *Linear) MinSamples() int {
	return l.minSamples
}

// FitPredict fits the window and extrapolates up to the horizon.
//
// futureTemps optionally supplies one forecast temperature per prediction
// step; when present (and the window carries temperature variation) the fit
// is count ~ elapsed + temperature, otherwise count ~ elapsed. Degenerate
// windows fall back to a flat line at the mean count. Predicted counts are
// clamped at zero and prediction timestamps are strictly increasing,
// starting one step after the last observation.
func (l *Linear) FitPredict(window []traffic.Observation, futureTemps []float64) ([]traffic.Prediction, error) {
	if len(window) < l.minSamples {
		return nil, ErrInsufficientData
	}

	steps := l.Steps()
	last := window[len(window)-1].Timestamp
	base := window[0].Timestamp

	predict := l.fit(window, base, futureTemps)

	out := make([]traffic.Prediction, steps)
	for i := 0; i < steps; i++ {
		at := last.Add(time.Duration(i+1) * l.step)
		count := predict(at.Sub(base).Minutes(), i)
		if count < 0 || math.IsNaN(count) || math.IsInf(count, 0) {
			count = 0
		}
		out[i] = traffic.Prediction{Timestamp: at, Count: count}
	}
	return out, nil
}

// fit returns a function of (elapsed minutes, step index) producing the
// predicted count. It tries the two-feature model first, then time-only OLS,
// then a flat mean.
func (l *Linear) fit(window []traffic.Observation, base time.Time, futureTemps []float64) func(float64, int) float64 {
	n := float64(len(window))

	var sx, sy, sxx, sxy float64
	var st, stt, sxt, sty float64
	for _, obs := range window {
		x := obs.Timestamp.Sub(base).Minutes()
		y := obs.Count
		tc := obs.TemperatureC

		sx += x
		sy += y
		sxx += x * x
		sxy += x * y

		st += tc
		stt += tc * tc
		sxt += x * tc
		sty += tc * y
	}

	if len(futureTemps) == l.Steps() {
		// Normal equations for y = b0 + b1*x + b2*t, solved by Cramer's
		// rule. A near-zero determinant (constant temperature, collinear
		// features) drops the temperature term.
		det := n*(sxx*stt-sxt*sxt) - sx*(sx*stt-sxt*st) + st*(sx*sxt-sxx*st)
		if math.Abs(det) > singularEps*(n*sxx*stt+1) {
			b0 := (sy*(sxx*stt-sxt*sxt) - sx*(sxy*stt-sxt*sty) + st*(sxy*sxt-sxx*sty)) / det
			b1 := (n*(sxy*stt-sxt*sty) - sy*(sx*stt-sxt*st) + st*(sx*sty-sxy*st)) / det
			b2 := (n*(sxx*sty-sxy*sxt) - sx*(sx*sty-sxy*st) + sy*(sx*sxt-sxx*st)) / det
			return func(x float64, i int) float64 {
				return b0 + b1*x + b2*futureTemps[i]
			}
		}
	}

	// Time-only OLS.
	denom := n*sxx - sx*sx
	if math.Abs(denom) > singularEps*(n*sxx+1) {
		slope := (n*sxy - sx*sy) / denom
		intercept := (sy - slope*sx) / n
		return func(x float64, _ int) float64 {
			return intercept + slope*x
		}
	}

	// Fully degenerate window: flat line at the mean.
	mean := sy / n
	return func(_ float64, _ int) float64 {
		return mean
	}
}
