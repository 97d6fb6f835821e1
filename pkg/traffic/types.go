// Package traffic defines the domain types shared by the simulation,
// storage, forecasting, and alerting layers.
package traffic

import "time"

// Observation is a single timestamped traffic-count data point.
// Observations are immutable once created: the generator produces them,
// the series buffer stores them, nothing mutates them afterwards.
type Observation struct {
	Timestamp    time.Time `json:"timestamp"`
	Count        float64   `json:"count"`
	TemperatureC float64   `json:"temperatureC"`
}

// Prediction is one forecast point. Prediction sequences cover the forecast
// horizon with strictly increasing timestamps beginning one step after the
// last observation, and are recomputed wholesale on each refit.
type Prediction struct {
	Timestamp time.Time `json:"timestamp"`
	Count     float64   `json:"count"`
}

// AlertState describes the congestion alert derived from the latest
// prediction set. It carries no independent persistence.
//
// EventID identifies one continuous alert episode: the pipeline assigns a
// UUID when the alert transitions inactive→active and keeps it stable for
// as long as the alert remains active, so dashboards can correlate updates.
type AlertState struct {
	Active      bool      `json:"active"`
	EventID     string    `json:"eventId,omitempty"`
	TriggeredAt time.Time `json:"triggeredAt,omitzero"`
	Threshold   float64   `json:"threshold"`
	PeakCount   float64   `json:"peakCount"`
}

// State is the pipeline lifecycle state. Transitions are driven solely by
// accumulated observation count versus the forecaster's minimum.
type State string

const (
	// StateUninitialized means no tick has run yet.
	StateUninitialized State = "uninitialized"
	// StateWarmingUp means observations exist but too few to forecast.
	StateWarmingUp State = "warming_up"
	// StateSteady means forecasting is active.
	StateSteady State = "steady"
)
