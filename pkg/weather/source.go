// Package weather supplies the exogenous temperature signal used by the
// traffic generator and forecaster.
//
// Two implementations exist: the day-cycle simulator in pkg/simulate, and
// HTTPSource below, which can pull readings from any JSON weather API using
// gjson path expressions. Sources are intentionally lightweight: they fetch
// and shape values, leaving all modeling to the upper layers.
package weather

import (
	"context"
	"time"
)

// Source provides current and forecast temperatures.
//
// Current returns the temperature at (or near) time at. Forecast returns
// steps values at step intervals, the first one step after from. Both must
// respect context cancellation and never panic.
type Source interface {
	Current(ctx context.Context, at time.Time) (float64, error)
	Forecast(ctx context.Context, from time.Time, steps int, step time.Duration) ([]float64, error)
}
