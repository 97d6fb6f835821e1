// Package router configures HTTP routes for the trafficd API.
//
// Routes configured:
//   - GET /                        - Embedded HTML dashboard (polls the JSON API)
//   - GET /traffic/current?station=<name> - Latest pipeline snapshot
//   - GET /healthz                 - Liveness check (always 200)
//   - GET /readyz                  - Readiness check (503 until a fresh snapshot exists)
//   - GET /metrics                 - Prometheus metrics
//
// Snapshots older than the stale threshold are still served but carry an
// X-Trafficpulse-Stale header so consumers can distinguish a stopped
// pipeline from a congested one.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/citygrid/trafficpulse/pkg/httpx"
	"github.com/citygrid/trafficpulse/pkg/storage"
)

var stationNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_-]{0,251}[a-zA-Z0-9])?$`)

// SetupRoutes configures the trafficd HTTP endpoints. defaultStation is the
// station this instance simulates; the dashboard and readiness check use it.
func SetupRoutes(store storage.Store, defaultStation string, staleAfter time.Duration, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", handleDashboard(defaultStation))

	mux.HandleFunc("/traffic/current", handleGetSnapshot(store, defaultStation, staleAfter, logger))

	mux.Handle("/healthz", httpx.HealthHandler())
	mux.Handle("/readyz", httpx.HealthHandlerWithCheck(readinessCheck(store, defaultStation, staleAfter)))

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// handleGetSnapshot returns a handler for GET /traffic/current?station=<name>.
// An omitted station defaults to this instance's station.
func handleGetSnapshot(store storage.Store, defaultStation string, staleAfter time.Duration, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		station := r.URL.Query().Get("station")
		if station == "" {
			station = defaultStation
		}

		if !stationNameRegex.MatchString(station) {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid station name format")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		snapshot, found, err := store.GetLatest(ctx, station)
		if err != nil {
			logger.Error("failed to get snapshot", "station", station, "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if !found {
			httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("snapshot not found for station %q", station))
			return
		}

		if time.Since(snapshot.GeneratedAt) > staleAfter {
			w.Header().Set("X-Trafficpulse-Stale", "true")
		}

		if err := httpx.WriteJSON(w, http.StatusOK, snapshot); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}

// readinessCheck reports ready once the pipeline has published a snapshot
// that is not stale. During warm-up the daemon is ready: consumers see the
// warming_up state, not an error.
func readinessCheck(store storage.Store, station string, staleAfter time.Duration) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		snapshot, found, err := store.GetLatest(ctx, station)
		if err != nil {
			return fmt.Errorf("snapshot store: %w", err)
		}
		if !found {
			return fmt.Errorf("no snapshot yet for station %q", station)
		}
		if age := time.Since(snapshot.GeneratedAt); age > staleAfter {
			return fmt.Errorf("snapshot is stale (age %s)", age.Round(time.Second))
		}
		return nil
	}
}

func handleDashboard(defaultStation string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, dashboardHTML, defaultStation, defaultStation)
	}
}
