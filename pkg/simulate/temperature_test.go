package simulate

import (
	"context"
	"testing"
	"time"
)

func noiseless(seed int64) *Temperature {
	s := NewTemperature(seed)
	s.NoiseC = 0
	return s
}

func TestTemperature_PeaksInEarlyAfternoon(t *testing.T) {
	s := noiseless(1)
	ctx := context.Background()

	peakHourFound, peakTemp := -1, -1000.0
	for hour := 0; hour < 24; hour++ {
		temp, err := s.Current(ctx, atHour(hour))
		if err != nil {
			t.Fatalf("Current(%02d:00) error = %v", hour, err)
		}
		if temp > peakTemp {
			peakHourFound, peakTemp = hour, temp
		}
	}

	if peakHourFound != 14 {
		t.Errorf("daily peak at %02d:00 (%v°C), want 14:00", peakHourFound, peakTemp)
	}
	if want := s.BaseC + s.AmplitudeC; peakTemp != want {
		t.Errorf("peak temperature = %v, want %v", peakTemp, want)
	}
}

func TestTemperature_MinimumBeforeDawn(t *testing.T) {
	s := noiseless(1)
	temp, err := s.Current(context.Background(), atHour(2))
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if want := s.BaseC - s.AmplitudeC; temp != want {
		t.Errorf("02:00 temperature = %v, want trough %v", temp, want)
	}
}

func TestTemperature_Forecast(t *testing.T) {
	s := noiseless(1)
	ctx := context.Background()
	from := atHour(10)

	got, err := s.Forecast(ctx, from, 3, 30*time.Minute)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Forecast() returned %d values, want 3", len(got))
	}

	// Noise-free forecast values match the deterministic curve.
	for i, temp := range got {
		at := from.Add(time.Duration(i+1) * 30 * time.Minute)
		want := s.at(at, false)
		if temp != want {
			t.Errorf("Forecast()[%d] = %v, want %v at %v", i, temp, want, at)
		}
	}

	// Mid-morning, the curve is rising toward the afternoon peak.
	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Errorf("Forecast() not rising at step %d: %v", i, got)
		}
	}
}

func TestTemperature_ForecastNonPositiveSteps(t *testing.T) {
	s := noiseless(1)
	got, err := s.Forecast(context.Background(), atHour(10), 0, time.Minute)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if got != nil {
		t.Errorf("Forecast(steps=0) = %v, want nil", got)
	}
}
