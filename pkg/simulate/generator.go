// Package simulate produces the synthetic signals the pipeline consumes: a
// vehicle-count generator shaped after observed metro-area traffic patterns,
// and a sinusoidal day-cycle temperature simulator.
package simulate

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/citygrid/trafficpulse/pkg/traffic"
	"github.com/citygrid/trafficpulse/pkg/weather"
)

// Traffic condition multipliers applied to the base flow.
const (
	peakMultiplier     = 2.0 // rush-hour traffic
	offPeakMultiplier  = 0.7 // late night / early morning
	weekendMultiplier  = 0.8 // weekend reduction
	highTempMultiplier = 1.2 // heat pushes people into vehicles

	highTempCutoffC = 32.0

	// dailyCycleFraction scales the smooth sinusoidal component relative
	// to the (multiplied) base flow.
	dailyCycleFraction = 0.2
)

// RushWindow is a daily recurring interval of elevated traffic.
// StartHour is inclusive, EndHour exclusive, both in local hours [0,24).
type RushWindow struct {
	StartHour int `json:"startHour"`
	EndHour   int `json:"endHour"`
}

// Contains reports whether the given hour falls inside the window.
func (w RushWindow) Contains(hour int) bool {
	return hour >= w.StartHour && hour < w.EndHour
}

// DefaultRushWindows are the canonical morning and evening peaks.
func DefaultRushWindows() []RushWindow {
	return []RushWindow{
		{StartHour: 8, EndHour: 11},
		{StartHour: 16, EndHour: 20},
	}
}

// Generator produces synthetic vehicle-count observations as a function of
// time: base flow scaled by time-of-day multipliers, a smooth daily cycle,
// bounded random noise, and a small temperature effect. Counts never go
// negative. Next always succeeds.
type Generator struct {
	baseFlow    float64
	variance    float64
	rushWindows []RushWindow
	source      weather.Source
	rng         *rand.Rand
	logger      *slog.Logger

	lastTempC float64
}

// NewGenerator creates a traffic signal generator.
//
// baseFlow is the off-multiplier vehicles-per-interval mean, variance the
// noise scale. seed 0 derives a seed from the clock (non-deterministic);
// any other value makes the generator fully deterministic. source supplies
// the temperature attached to each observation; nil disables the
// temperature effect.
func NewGenerator(baseFlow, variance float64, rushWindows []RushWindow, source weather.Source, seed int64, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if len(rushWindows) == 0 {
		rushWindows = DefaultRushWindows()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Generator{
		baseFlow:    baseFlow,
		variance:    variance,
		rushWindows: rushWindows,
		source:      source,
		rng:         rand.New(rand.NewSource(seed)),
		logger:      logger,
		lastTempC:   defaultTempC,
	}
}

// Next produces the observation for simulated time t.
func (g *Generator) Next(ctx context.Context, t time.Time) traffic.Observation {
	temp := g.temperature(ctx, t)

	mult := g.multiplier(t, temp)
	base := g.baseFlow * mult

	// Smooth 24h cycle on top of the stepwise multipliers.
	hourFrac := float64(t.Hour()) + float64(t.Minute())/60.0
	cycle := math.Sin(2*math.Pi*hourFrac/24) * dailyCycleFraction * base

	noise := g.rng.NormFloat64() * (g.variance * mult / 2)

	count := base + cycle + noise
	if count < 0 {
		count = 0
	}

	return traffic.Observation{
		Timestamp:    t,
		Count:        count,
		TemperatureC: temp,
	}
}

// multiplier combines weekend, rush-hour, late-night, and heat effects.
func (g *Generator) multiplier(t time.Time, tempC float64) float64 {
	mult := 1.0

	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		mult *= weekendMultiplier
	}

	hour := t.Hour()
	switch {
	case g.isRushHour(hour):
		mult *= peakMultiplier
	case hour >= 23 || hour <= 5:
		mult *= offPeakMultiplier
	}

	if tempC >= highTempCutoffC {
		mult *= highTempMultiplier
	}

	return mult
}

func (g *Generator) isRushHour(hour int) bool {
	for _, w := range g.rushWindows {
		if w.Contains(hour) {
			return true
		}
	}
	return false
}

// temperature reads the weather source, reusing the previous reading when
// the source fails. A weather failure must never surface from Next.
func (g *Generator) temperature(ctx context.Context, t time.Time) float64 {
	if g.source == nil {
		return g.lastTempC
	}

	temp, err := g.source.Current(ctx, t)
	if err != nil {
		g.logger.Warn("weather source failed, reusing last temperature",
			"error", err,
			"lastTempC", g.lastTempC,
		)
		return g.lastTempC
	}

	g.lastTempC = temp
	return temp
}
