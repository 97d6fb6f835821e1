package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citygrid/trafficpulse/pkg/alert"
	"github.com/citygrid/trafficpulse/pkg/forecast"
	"github.com/citygrid/trafficpulse/pkg/series"
	"github.com/citygrid/trafficpulse/pkg/simulate"
	"github.com/citygrid/trafficpulse/pkg/storage"
	"github.com/citygrid/trafficpulse/pkg/traffic"
)

// newTestPipeline wires a fully deterministic pipeline: fixed seed, zero
// noise in the temperature source, in-memory store, nil metrics.
func newTestPipeline(t *testing.T, threshold float64) (*Pipeline, *storage.MemoryStore) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	temps := simulate.NewTemperature(1)
	temps.NoiseC = 0

	store := storage.NewMemoryStore()
	start := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	p := NewPipeline(
		"hitech-city",
		simulate.NewGenerator(100, 20, simulate.DefaultRushWindows(), temps, 42, logger),
		series.NewBuffer(30),
		forecast.NewLinear(time.Minute, 5*time.Minute),
		alert.NewEvaluator(threshold),
		store,
		temps,
		start,
		time.Minute,
		5*time.Minute,
		logger,
		nil,
	)
	return p, store
}

func TestPipeline_InitialSnapshotUninitialized(t *testing.T) {
	p, _ := newTestPipeline(t, 150)

	snap := p.Snapshot()
	assert.Equal(t, traffic.StateUninitialized, snap.State)
	assert.Equal(t, "hitech-city", snap.Station)
	assert.Empty(t, snap.History)
	assert.Empty(t, snap.Predictions)
	assert.False(t, snap.Alert.Active)
	assert.Equal(t, 150.0, snap.Alert.Threshold)
}

func TestPipeline_FirstTickWarmsUp(t *testing.T) {
	p, store := newTestPipeline(t, 150)

	require.NoError(t, p.Tick(context.Background()))

	snap := p.Snapshot()
	assert.Equal(t, traffic.StateWarmingUp, snap.State)
	assert.Len(t, snap.History, 1)
	assert.Empty(t, snap.Predictions, "one observation cannot support a fit")
	assert.False(t, snap.Alert.Active)

	stored, found, err := store.GetLatest(context.Background(), "hitech-city")
	require.NoError(t, err)
	require.True(t, found, "tick must persist the snapshot")
	assert.Equal(t, snap.State, stored.State)
}

func TestPipeline_ReachesSteadyWithPredictions(t *testing.T) {
	p, _ := newTestPipeline(t, 1e9)

	ctx := context.Background()
	require.NoError(t, p.Tick(ctx))
	require.NoError(t, p.Tick(ctx))

	snap := p.Snapshot()
	assert.Equal(t, traffic.StateSteady, snap.State)
	assert.Len(t, snap.History, 2)
	require.Len(t, snap.Predictions, 5, "horizon of 5m at 1m steps")

	last := snap.History[len(snap.History)-1].Timestamp
	for i, pred := range snap.Predictions {
		assert.True(t, pred.Timestamp.After(last), "prediction %d timestamp not after history", i)
		assert.GreaterOrEqual(t, pred.Count, 0.0, "prediction %d negative", i)
		last = pred.Timestamp
	}

	assert.False(t, snap.Alert.Active, "unreachable threshold must stay inactive")
	assert.Empty(t, snap.Alert.EventID)
}

func TestPipeline_SnapshotStableBetweenTicks(t *testing.T) {
	p, _ := newTestPipeline(t, 150)

	ctx := context.Background()
	require.NoError(t, p.Tick(ctx))

	first := p.Snapshot()
	second := p.Snapshot()
	assert.Equal(t, first.GeneratedAt, second.GeneratedAt)
	assert.Equal(t, first.History, second.History)
	assert.Equal(t, first.Predictions, second.Predictions)

	require.NoError(t, p.Tick(ctx))
	third := p.Snapshot()
	assert.NotEqual(t, first.GeneratedAt, third.GeneratedAt, "tick must publish a new snapshot")
}

func TestPipeline_AlertEventIDStableWithinEpisode(t *testing.T) {
	// A threshold this low makes every prediction an exceedance, so the
	// alert activates on the first tick that produces predictions.
	p, _ := newTestPipeline(t, 0.001)

	ctx := context.Background()
	require.NoError(t, p.Tick(ctx))
	assert.Empty(t, p.Snapshot().Alert.EventID, "no predictions yet, no episode")

	require.NoError(t, p.Tick(ctx))
	snap := p.Snapshot()
	require.True(t, snap.Alert.Active)
	require.NotEmpty(t, snap.Alert.EventID)
	firstID := snap.Alert.EventID
	assert.False(t, snap.Alert.TriggeredAt.IsZero())

	require.NoError(t, p.Tick(ctx))
	assert.Equal(t, firstID, p.Snapshot().Alert.EventID, "event ID must not change while the alert stays active")
}

func TestPipeline_StampAlertEvent(t *testing.T) {
	p, _ := newTestPipeline(t, 150)

	active := traffic.AlertState{Active: true, Threshold: 150, PeakCount: 180}
	p.stampAlertEvent(&active)
	require.NotEmpty(t, active.EventID)
	firstID := active.EventID

	// Same episode keeps the ID.
	next := traffic.AlertState{Active: true, Threshold: 150, PeakCount: 190}
	p.stampAlertEvent(&next)
	assert.Equal(t, firstID, next.EventID)

	// Episode ends: the ID is cleared.
	inactive := traffic.AlertState{Threshold: 150}
	p.stampAlertEvent(&inactive)
	assert.Empty(t, inactive.EventID)

	// A new episode gets a fresh ID.
	again := traffic.AlertState{Active: true, Threshold: 150, PeakCount: 175}
	p.stampAlertEvent(&again)
	require.NotEmpty(t, again.EventID)
	assert.NotEqual(t, firstID, again.EventID)
}

func TestPipeline_SimulatedClockAdvancesByStep(t *testing.T) {
	p, _ := newTestPipeline(t, 150)

	ctx := context.Background()
	require.NoError(t, p.Tick(ctx))
	require.NoError(t, p.Tick(ctx))
	require.NoError(t, p.Tick(ctx))

	history := p.Snapshot().History
	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		assert.Equal(t, time.Minute, history[i].Timestamp.Sub(history[i-1].Timestamp))
	}
}

func TestPipeline_RunStopsOnCancel(t *testing.T) {
	p, _ := newTestPipeline(t, 150)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, 10*time.Millisecond)
	}()

	// Let at least the initial tick land.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	assert.NotEqual(t, traffic.StateUninitialized, p.State(), "Run must have ticked at least once")
}
