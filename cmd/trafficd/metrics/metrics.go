// Package metrics provides Prometheus instrumentation for the trafficd
// pipeline.
//
// Each tick stage is timed, the latest observed and predicted counts are
// exported as gauges, and errors are counted by component and reason. All
// metrics carry the station label and are scraped via /metrics.
//
// Metrics exposed:
//   - trafficpulse_generate_seconds: Histogram of signal generation duration
//   - trafficpulse_predict_seconds: Histogram of forecast fit+predict duration
//   - trafficpulse_snapshot_age_seconds: Gauge of current snapshot age
//   - trafficpulse_observed_count: Gauge of the latest observed vehicle count
//   - trafficpulse_predicted_peak: Gauge of the peak predicted count
//   - trafficpulse_alert_active: Gauge, 1 while the congestion alert is active
//   - trafficpulse_window_size: Gauge of retained observations
//   - trafficpulse_errors_total: Counter of errors by component and reason
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	GenerateSeconds    prometheus.Histogram
	PredictSeconds     prometheus.Histogram
	SnapshotAgeSeconds prometheus.Gauge
	ObservedCount      prometheus.Gauge
	PredictedPeak      prometheus.Gauge
	AlertActive        prometheus.Gauge
	WindowSize         prometheus.Gauge
	ErrorsTotal        *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics for a station.
func New(station string) *Metrics {
	constLabels := prometheus.Labels{"station": station}

	return &Metrics{
		GenerateSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:        "trafficpulse_generate_seconds",
			Help:        "Time spent generating the simulated observation",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),

		PredictSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:        "trafficpulse_predict_seconds",
			Help:        "Time spent fitting and predicting",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),

		SnapshotAgeSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "trafficpulse_snapshot_age_seconds",
			Help:        "Age of the current snapshot in seconds",
			ConstLabels: constLabels,
		}),

		ObservedCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "trafficpulse_observed_count",
			Help:        "Latest observed vehicle count",
			ConstLabels: constLabels,
		}),

		PredictedPeak: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "trafficpulse_predicted_peak",
			Help:        "Peak predicted vehicle count over the horizon",
			ConstLabels: constLabels,
		}),

		AlertActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "trafficpulse_alert_active",
			Help:        "1 while the congestion alert is active, 0 otherwise",
			ConstLabels: constLabels,
		}),

		WindowSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "trafficpulse_window_size",
			Help:        "Observations currently retained in the rolling window",
			ConstLabels: constLabels,
		}),

		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name:        "trafficpulse_errors_total",
			Help:        "Total number of errors by component and reason",
			ConstLabels: constLabels,
		}, []string{"component", "reason"}),
	}
}

// RecordGenerate records the time spent generating an observation.
func (m *Metrics) RecordGenerate(seconds float64) {
	m.GenerateSeconds.Observe(seconds)
}

// RecordPredict records the time spent fitting and predicting.
func (m *Metrics) RecordPredict(seconds float64) {
	m.PredictSeconds.Observe(seconds)
}

// SetSnapshotAge sets the current snapshot age.
func (m *Metrics) SetSnapshotAge(seconds float64) {
	m.SnapshotAgeSeconds.Set(seconds)
}

// SetObservedCount sets the latest observed count.
func (m *Metrics) SetObservedCount(count float64) {
	m.ObservedCount.Set(count)
}

// SetPredictedPeak sets the peak predicted count.
func (m *Metrics) SetPredictedPeak(count float64) {
	m.PredictedPeak.Set(count)
}

// SetAlertActive reflects the alert state.
func (m *Metrics) SetAlertActive(active bool) {
	if active {
		m.AlertActive.Set(1)
	} else {
		m.AlertActive.Set(0)
	}
}

// SetWindowSize sets the retained observation count.
func (m *Metrics) SetWindowSize(n int) {
	m.WindowSize.Set(float64(n))
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}
