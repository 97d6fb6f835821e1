// Package main implements the trafficd pipeline orchestration.
//
// This file contains the Pipeline type which drives one simulation cycle:
//
//	generate → append → fit+predict → evaluate → publish snapshot
//
// The Pipeline runs continuously via Run(), executing Tick() at regular
// intervals. Each tick advances the simulated clock by one step, appends the
// generated observation, refits the forecaster over the retained window, and
// atomically publishes a complete snapshot that readers consume without
// locking. Ticks never overlap; a failed tick is logged and the loop
// continues.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/citygrid/trafficpulse/cmd/trafficd/metrics"
	"github.com/citygrid/trafficpulse/pkg/alert"
	"github.com/citygrid/trafficpulse/pkg/forecast"
	"github.com/citygrid/trafficpulse/pkg/series"
	"github.com/citygrid/trafficpulse/pkg/simulate"
	"github.com/citygrid/trafficpulse/pkg/storage"
	"github.com/citygrid/trafficpulse/pkg/traffic"
	"github.com/citygrid/trafficpulse/pkg/weather"
)

// Pipeline owns the full simulation state for one station: the generator,
// the rolling observation buffer, the forecaster, the alert evaluator, and
// the latest published snapshot. It is the single writer; everything else
// only reads snapshots.
type Pipeline struct {
	station    string
	generator  *simulate.Generator
	buffer     *series.Buffer
	forecaster *forecast.Linear
	evaluator  *alert.Evaluator
	store      storage.Store
	weatherSrc weather.Source
	step       time.Duration
	horizon    time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics

	// clock is the simulated time of the last generated observation.
	// Only Tick touches it, so it needs no synchronization.
	clock time.Time

	// alertEventID identifies the current alert episode; empty while the
	// alert is inactive.
	alertEventID string

	snapshot atomic.Pointer[storage.Snapshot]
}

// NewPipeline creates a pipeline whose simulated clock starts at start.
func NewPipeline(
	station string,
	generator *simulate.Generator,
	buffer *series.Buffer,
	forecaster *forecast.Linear,
	evaluator *alert.Evaluator,
	store storage.Store,
	weatherSrc weather.Source,
	start time.Time,
	step, horizon time.Duration,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		station:    station,
		generator:  generator,
		buffer:     buffer,
		forecaster: forecaster,
		evaluator:  evaluator,
		store:      store,
		weatherSrc: weatherSrc,
		step:       step,
		horizon:    horizon,
		logger:     logger,
		metrics:    m,
		clock:      start,
	}
}

// Run executes the pipeline loop at regular wall-clock intervals.
// Blocks until context is canceled. Tick errors are logged, never fatal.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) error {
	p.logger.Info("starting pipeline loop", "station", p.station, "interval", interval, "step", p.step)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := p.Tick(ctx); err != nil {
		p.logger.Error("initial tick failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := p.Tick(ctx); err != nil {
				p.logger.Error("tick failed", "error", err)
			}
		}
	}
}

// Tick advances the simulation by one interval.
// Exported for testing purposes.
func (p *Pipeline) Tick(ctx context.Context) error {
	start := time.Now()
	p.logger.Debug("starting tick", "station", p.station)

	obs, generateDuration := p.generate(ctx)

	if err := p.buffer.Append(obs); err != nil {
		// Out-of-order appends cannot happen with the monotonic simulated
		// clock, but an externally driven clock must not kill the loop:
		// discard the observation and skip the rest of the tick.
		if p.metrics != nil {
			p.metrics.RecordError("series", "out_of_order")
		}
		return fmt.Errorf("append: %w", err)
	}

	predictions, predictDuration := p.predict(ctx, obs.Timestamp)

	state := traffic.StateSteady
	if p.buffer.Len() < p.forecaster.MinSamples() {
		state = traffic.StateWarmingUp
	}

	alertState := p.evaluator.Evaluate(predictions)
	p.stampAlertEvent(&alertState)

	snap := storage.Snapshot{
		Station:        p.station,
		GeneratedAt:    time.Now(),
		StepSeconds:    int(p.step.Seconds()),
		HorizonSeconds: int(p.horizon.Seconds()),
		State:          state,
		History:        p.buffer.All(),
		Predictions:    predictions,
		Alert:          alertState,
	}

	// Publish before persisting: local readers must see the new snapshot
	// even when the external store is unavailable.
	p.snapshot.Store(&snap)

	if err := p.store.Put(ctx, snap); err != nil {
		if p.metrics != nil {
			p.metrics.RecordError("store", "put_failed")
		}
		return fmt.Errorf("store: %w", err)
	}

	if p.metrics != nil {
		p.metrics.SetSnapshotAge(0)
		p.metrics.SetObservedCount(obs.Count)
		p.metrics.SetWindowSize(len(snap.History))
		p.metrics.SetPredictedPeak(alertState.PeakCount)
		p.metrics.SetAlertActive(alertState.Active)
	}

	p.logger.Info("tick complete",
		"station", p.station,
		"state", state,
		"observed", obs.Count,
		"history", len(snap.History),
		"predictions", len(predictions),
		"alert_active", alertState.Active,
		"generate_ms", generateDuration.Milliseconds(),
		"predict_ms", predictDuration.Milliseconds(),
		"total_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Snapshot returns the latest published snapshot without recomputation.
// Before the first tick it returns the empty initial snapshot. Calls
// without an intervening Tick return identical results.
func (p *Pipeline) Snapshot() storage.Snapshot {
	if snap := p.snapshot.Load(); snap != nil {
		return *snap
	}
	return storage.Snapshot{
		Station:        p.station,
		StepSeconds:    int(p.step.Seconds()),
		HorizonSeconds: int(p.horizon.Seconds()),
		State:          traffic.StateUninitialized,
		Alert:          traffic.AlertState{Threshold: p.evaluator.Threshold()},
	}
}

// State returns the current lifecycle state.
func (p *Pipeline) State() traffic.State {
	return p.Snapshot().State
}

// generate advances the simulated clock and produces the next observation.
func (p *Pipeline) generate(ctx context.Context) (traffic.Observation, time.Duration) {
	start := time.Now()

	p.clock = p.clock.Add(p.step)
	obs := p.generator.Next(ctx, p.clock)

	duration := time.Since(start)
	if p.metrics != nil {
		p.metrics.RecordGenerate(duration.Seconds())
	}

	return obs, duration
}

// predict refits over the retained window and extrapolates to the horizon.
// An insufficient window is not an error: the pipeline keeps warming up
// with an empty prediction set.
func (p *Pipeline) predict(ctx context.Context, from time.Time) ([]traffic.Prediction, time.Duration) {
	start := time.Now()

	var futureTemps []float64
	if p.weatherSrc != nil {
		temps, err := p.weatherSrc.Forecast(ctx, from, p.forecaster.Steps(), p.step)
		if err != nil {
			p.logger.Debug("temperature forecast unavailable, fitting on time only", "error", err)
		} else {
			futureTemps = temps
		}
	}

	predictions, err := p.forecaster.FitPredict(p.buffer.All(), futureTemps)
	if err != nil {
		if !errors.Is(err, forecast.ErrInsufficientData) {
			if p.metrics != nil {
				p.metrics.RecordError("forecast", "predict_failed")
			}
			p.logger.Error("forecast failed", "error", err)
		}
		predictions = nil
	}

	duration := time.Since(start)
	if p.metrics != nil {
		p.metrics.RecordPredict(duration.Seconds())
	}

	return predictions, duration
}

// stampAlertEvent assigns a stable event ID for the duration of one alert
// episode: a fresh UUID when the alert turns active, carried over while it
// stays active, cleared when it ends.
func (p *Pipeline) stampAlertEvent(state *traffic.AlertState) {
	if !state.Active {
		p.alertEventID = ""
		return
	}

	if p.alertEventID == "" {
		p.alertEventID = uuid.NewString()
		p.logger.Warn("congestion alert raised",
			"station", p.station,
			"event_id", p.alertEventID,
			"triggered_at", state.TriggeredAt,
			"peak", state.PeakCount,
			"threshold", state.Threshold,
		)
	}

	state.EventID = p.alertEventID
}

// GetStore returns the underlying snapshot store for HTTP handlers.
func (p *Pipeline) GetStore() storage.Store {
	return p.store
}
