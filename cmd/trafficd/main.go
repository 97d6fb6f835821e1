// Command trafficd runs the TrafficPulse simulation pipeline.
//
// The daemon runs a continuous loop that:
//  1. Generates a synthetic vehicle-count observation (daily cycle,
//     rush-hour bumps, bounded noise, temperature effect)
//  2. Appends it to the bounded rolling window
//  3. Refits a linear forecaster over the window and extrapolates
//     the next horizon
//  4. Evaluates the congestion threshold over the predictions
//  5. Publishes the complete snapshot for dashboards to poll
//
// The daemon serves an HTTP API on port 8080 (configurable) providing:
//   - GET /                        - Embedded HTML dashboard
//   - GET /traffic/current?station=<name> - Latest snapshot (JSON)
//   - GET /healthz, /readyz        - Health and readiness checks
//   - GET /metrics                 - Prometheus metrics
//
// Usage:
//
//	trafficd \
//	  -station=hitech-city \
//	  -base-flow=100 -variance=20 \
//	  -rush-windows="08:00-11:00,16:00-20:00" \
//	  -threshold=150 -horizon=15m -step=1m
//
// Environment variables:
//
//	STATION       - Station name (required)
//	BASE_FLOW     - Base vehicles per interval (default: 100)
//	VARIANCE      - Noise scale (default: 20)
//	RUSH_WINDOWS  - Daily rush windows (default: 08:00-11:00,16:00-20:00)
//	THRESHOLD     - Congestion alert threshold (default: 150)
//	RETENTION     - Rolling window size (default: 30)
//	HORIZON       - Forecast horizon (default: 15m)
//	STEP          - Simulated interval and forecast step (default: 1m)
//	INTERVAL      - Wall-clock tick interval (default: 30s)
//	SEED          - Random seed, 0 = nondeterministic (default: 0)
//	STORAGE       - Snapshot store: memory or redis (default: memory)
//	LOG_LEVEL     - debug, info, warn, error (default: info)
//	LOG_FORMAT    - text or json (default: text)
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/citygrid/trafficpulse/cmd/trafficd/config"
	"github.com/citygrid/trafficpulse/cmd/trafficd/logger"
	"github.com/citygrid/trafficpulse/cmd/trafficd/metrics"
	"github.com/citygrid/trafficpulse/cmd/trafficd/router"
	"github.com/citygrid/trafficpulse/cmd/trafficd/store"
	"github.com/citygrid/trafficpulse/pkg/alert"
	"github.com/citygrid/trafficpulse/pkg/forecast"
	"github.com/citygrid/trafficpulse/pkg/httpx"
	"github.com/citygrid/trafficpulse/pkg/series"
	"github.com/citygrid/trafficpulse/pkg/simulate"
	pulsetls "github.com/citygrid/trafficpulse/pkg/tls"
	"github.com/citygrid/trafficpulse/pkg/weather"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.ParseFlags()

	log := logger.New(cfg)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log.Info("starting trafficd",
		"version", version,
		"station", cfg.Station,
		"threshold", cfg.Threshold,
		"horizon", cfg.Horizon,
		"step", cfg.Step,
	)

	weatherSrc := newWeatherSource(cfg, log)

	rushWindows, _ := config.ParseRushWindows(cfg.RushWindows) // validated above

	generator := simulate.NewGenerator(cfg.BaseFlow, cfg.Variance, rushWindows, weatherSrc, cfg.Seed, log)
	buffer := series.NewBuffer(cfg.Retention)
	forecaster := forecast.NewLinear(cfg.Step, cfg.Horizon)
	evaluator := alert.NewEvaluator(cfg.Threshold)

	snapStore := store.New(cfg, log)
	defer func() {
		switch s := snapStore.(type) {
		case interface{ Close() error }:
			if err := s.Close(); err != nil {
				log.Error("failed to close store", "error", err)
			}
		case interface{ Stop() }:
			s.Stop()
		}
	}()

	pipeline := NewPipeline(
		cfg.Station,
		generator,
		buffer,
		forecaster,
		evaluator,
		snapStore,
		weatherSrc,
		time.Now(),
		cfg.Step,
		cfg.Horizon,
		log,
		metrics.New(cfg.Station),
	)

	staleAfter := 2 * cfg.Interval // snapshot is stale if older than 2x the tick interval
	mux := router.SetupRoutes(snapStore, cfg.Station, staleAfter, log)

	handler := httpx.RecoveryMiddleware(log)(httpx.LoggingMiddleware(log)(mux))
	httpServer := httpx.NewServer(cfg.Listen, handler, log)

	if cfg.TLS.Enabled {
		tlsConfig, err := pulsetls.NewServerTLSConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.CAFile)
		if err != nil {
			log.Error("failed to build server TLS config", "error", err)
			os.Exit(1)
		}
		httpServer.SetTLSConfig(tlsConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := pipeline.Run(ctx, cfg.Interval); err != nil && err != context.Canceled {
			log.Error("pipeline loop failed", "error", err)
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		if cfg.TLS.Enabled {
			serverErr <- httpServer.StartTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serverErr <- httpServer.Start()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			log.Error("server failed", "error", err)
		}
	}

	log.Info("shutting down")
	cancel()

	if err := httpServer.Stop(10 * time.Second); err != nil {
		log.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("shutdown complete")
}

// newWeatherSource builds the configured temperature source. The HTTP source
// always carries the simulator as fallback so a provider outage degrades to
// simulated readings.
func newWeatherSource(cfg *config.Config, log *slog.Logger) weather.Source {
	sim := simulate.NewTemperature(cfg.Seed)

	if cfg.WeatherSource != "http" {
		log.Info("using simulated temperature source")
		return sim
	}

	client, err := httpx.NewClient(cfg.TLS, 10*time.Second)
	if err != nil {
		log.Error("failed to create weather HTTP client", "error", err)
		os.Exit(1)
	}

	src := &weather.HTTPSource{
		CurrentURL:       cfg.WeatherCurrentURL,
		ForecastURL:      cfg.WeatherForecastURL,
		APIKey:           cfg.WeatherAPIKey,
		CurrentPath:      cfg.WeatherCurrentPath,
		ForecastTempPath: cfg.WeatherForecastTempPath,
		ForecastTimePath: cfg.WeatherForecastTimePath,
		TimestampFormat:  cfg.WeatherTimestampFormat,
		Client:           client,
		Fallback:         sim,
		Logger:           log,
	}

	if err := src.ValidateConfig(); err != nil {
		log.Error("invalid weather source configuration", "error", err)
		os.Exit(1)
	}

	log.Info("using HTTP weather source", "currentURL", cfg.WeatherCurrentURL)
	return src
}
