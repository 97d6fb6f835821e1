package simulate

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Defaults model a warm-climate metro: days swing roughly 20-34°C with the
// peak in early afternoon.
const (
	defaultTempC          = 27.0
	defaultDailyAmplitude = 7.0
	defaultNoiseAmplitude = 1.0

	// peakHour places the sinusoid maximum at 14:00 local time.
	peakHour = 14.0
)

// Temperature simulates ambient temperature as a smooth daily sine cycle
// plus small Gaussian noise. It implements weather.Source and never fails.
type Temperature struct {
	BaseC      float64
	AmplitudeC float64
	NoiseC     float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewTemperature creates a temperature simulator with the default climate
// profile. seed 0 derives a seed from the clock.
func NewTemperature(seed int64) *Temperature {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Temperature{
		BaseC:      defaultTempC,
		AmplitudeC: defaultDailyAmplitude,
		NoiseC:     defaultNoiseAmplitude,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Current returns the simulated temperature at time t.
func (s *Temperature) Current(_ context.Context, t time.Time) (float64, error) {
	return s.at(t, true), nil
}

// Forecast returns steps temperature values at step intervals starting one
// step after from. Forecast values are noise-free: they represent the
// expected curve, not a sampled reading.
func (s *Temperature) Forecast(_ context.Context, from time.Time, steps int, step time.Duration) ([]float64, error) {
	if steps <= 0 {
		return nil, nil
	}
	out := make([]float64, steps)
	for i := range out {
		out[i] = s.at(from.Add(time.Duration(i+1)*step), false)
	}
	return out, nil
}

func (s *Temperature) at(t time.Time, withNoise bool) float64 {
	hourFrac := float64(t.Hour()) + float64(t.Minute())/60.0

	// Shift the sine so its maximum lands on peakHour.
	phase := 2 * math.Pi * (hourFrac - (peakHour - 6)) / 24
	temp := s.BaseC + s.AmplitudeC*math.Sin(phase)

	if withNoise && s.NoiseC > 0 {
		s.mu.Lock()
		temp += s.rng.NormFloat64() * s.NoiseC
		s.mu.Unlock()
	}

	return math.Round(temp*10) / 10
}
