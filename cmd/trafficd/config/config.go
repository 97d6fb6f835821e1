// Package config provides configuration parsing and validation for trafficd.
//
// Configuration comes from command-line flags with environment variables as
// fallbacks, flags taking precedence. All values are validated exactly once
// at startup via Validate; an invalid configuration must prevent the daemon
// from starting, and nothing revalidates at runtime.
//
// Sources, in order of precedence:
//  1. Command-line flags
//  2. Environment variables
//  3. Default values
package config

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/citygrid/trafficpulse/pkg/simulate"
	"github.com/citygrid/trafficpulse/pkg/tls"
)

// Config holds all trafficd configuration.
type Config struct {
	Listen    string
	LogFormat string
	LogLevel  string

	Storage       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	TLS tls.Config

	// Station identifies the monitoring point this instance simulates.
	Station string

	// Simulation parameters.
	BaseFlow    float64
	Variance    float64
	RushWindows string
	Seed        int64

	// Pipeline parameters.
	Retention int
	Horizon   time.Duration
	Step      time.Duration
	Interval  time.Duration
	Threshold float64

	// Weather source: "sim" or "http".
	WeatherSource           string
	WeatherCurrentURL       string
	WeatherForecastURL      string
	WeatherAPIKey           string
	WeatherCurrentPath      string
	WeatherForecastTempPath string
	WeatherForecastTimePath string
	WeatherTimestampFormat  string
}

// ParseFlags parses command-line flags with environment variable fallbacks.
func ParseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8080"), "HTTP listen address")

	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.StringVar(&cfg.Storage, "storage", getEnv("STORAGE", "memory"), "Snapshot storage backend: memory or redis")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	flag.DurationVar(&cfg.RedisTTL, "redis-ttl", getEnvDuration("REDIS_TTL", 30*time.Minute), "Redis snapshot TTL")

	flag.BoolVar(&cfg.TLS.Enabled, "tls-enabled", getEnvBool("TLS_ENABLED", false), "Enable TLS for HTTP server")
	flag.StringVar(&cfg.TLS.CertFile, "tls-cert-file", getEnv("TLS_CERT_FILE", ""), "TLS certificate file")
	flag.StringVar(&cfg.TLS.KeyFile, "tls-key-file", getEnv("TLS_KEY_FILE", ""), "TLS private key file")
	flag.StringVar(&cfg.TLS.CAFile, "tls-ca-file", getEnv("TLS_CA_FILE", ""), "TLS CA certificate file for client verification")

	flag.StringVar(&cfg.Station, "station", getEnv("STATION", ""), "Station name (required)")
	flag.Float64Var(&cfg.BaseFlow, "base-flow", getEnvFloat("BASE_FLOW", 100), "Base vehicles per interval before multipliers")
	flag.Float64Var(&cfg.Variance, "variance", getEnvFloat("VARIANCE", 20), "Noise scale of the simulated signal")
	flag.StringVar(&cfg.RushWindows, "rush-windows", getEnv("RUSH_WINDOWS", "08:00-11:00,16:00-20:00"), "Comma-separated daily rush-hour windows")
	flag.Int64Var(&cfg.Seed, "seed", getEnvInt64("SEED", 0), "Random seed (0 = nondeterministic)")

	flag.IntVar(&cfg.Retention, "retention", getEnvInt("RETENTION", 30), "Observations retained in the rolling window")
	flag.DurationVar(&cfg.Horizon, "horizon", getEnvDuration("HORIZON", 15*time.Minute), "Forecast horizon")
	flag.DurationVar(&cfg.Step, "step", getEnvDuration("STEP", 1*time.Minute), "Forecast step and simulated interval size")
	flag.DurationVar(&cfg.Interval, "interval", getEnvDuration("INTERVAL", 30*time.Second), "Tick interval (wall clock)")
	flag.Float64Var(&cfg.Threshold, "threshold", getEnvFloat("THRESHOLD", 150), "Congestion alert threshold (vehicles per interval)")

	flag.StringVar(&cfg.WeatherSource, "weather-source", getEnv("WEATHER_SOURCE", "sim"), "Temperature source: sim or http")
	flag.StringVar(&cfg.WeatherCurrentURL, "weather-current-url", getEnv("WEATHER_CURRENT_URL", ""), "Weather API current-conditions URL")
	flag.StringVar(&cfg.WeatherForecastURL, "weather-forecast-url", getEnv("WEATHER_FORECAST_URL", ""), "Weather API forecast URL")
	flag.StringVar(&cfg.WeatherAPIKey, "weather-api-key", getEnv("WEATHER_API_KEY", ""), "Weather API key")
	flag.StringVar(&cfg.WeatherCurrentPath, "weather-current-path", getEnv("WEATHER_CURRENT_PATH", "current.temp_c"), "gjson path to the current temperature")
	flag.StringVar(&cfg.WeatherForecastTempPath, "weather-forecast-temp-path", getEnv("WEATHER_FORECAST_TEMP_PATH", ""), "gjson path to forecast temperatures")
	flag.StringVar(&cfg.WeatherForecastTimePath, "weather-forecast-time-path", getEnv("WEATHER_FORECAST_TIME_PATH", ""), "gjson path to forecast timestamps")
	flag.StringVar(&cfg.WeatherTimestampFormat, "weather-timestamp-format", getEnv("WEATHER_TIMESTAMP_FORMAT", "rfc3339"), "Forecast timestamp format: rfc3339, unix, or unix_milli")

	flag.Parse()

	return cfg
}

var stationNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_-]{0,251}[a-zA-Z0-9])?$`)

// Validate checks the whole configuration. It is the only validation pass;
// any error here must abort startup.
func (c *Config) Validate() error {
	if c.Station == "" {
		return fmt.Errorf("station is required")
	}
	if !stationNameRegex.MatchString(c.Station) {
		return fmt.Errorf("invalid station name %q (must be alphanumeric with dash/underscore, 1-253 chars)", c.Station)
	}

	if c.BaseFlow <= 0 {
		return fmt.Errorf("base-flow must be > 0, got %v", c.BaseFlow)
	}
	if c.Variance < 0 {
		return fmt.Errorf("variance cannot be negative, got %v", c.Variance)
	}

	if _, err := ParseRushWindows(c.RushWindows); err != nil {
		return fmt.Errorf("rush-windows: %w", err)
	}

	if c.Retention < 2 {
		return fmt.Errorf("retention must be >= 2 (the forecaster minimum), got %d", c.Retention)
	}
	if c.Step <= 0 {
		return fmt.Errorf("step must be > 0, got %v", c.Step)
	}
	if c.Horizon <= 0 {
		return fmt.Errorf("horizon must be > 0, got %v", c.Horizon)
	}
	if c.Step > c.Horizon {
		return fmt.Errorf("step (%v) cannot exceed horizon (%v)", c.Step, c.Horizon)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be > 0, got %v", c.Interval)
	}
	if c.Threshold <= 0 {
		return fmt.Errorf("threshold must be > 0, got %v", c.Threshold)
	}

	switch c.Storage {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid storage %q (must be memory or redis)", c.Storage)
	}
	if c.Storage == "redis" && c.RedisAddr == "" {
		return fmt.Errorf("redis-addr is required when storage=redis")
	}

	switch c.WeatherSource {
	case "sim":
	case "http":
		if c.WeatherCurrentURL == "" {
			return fmt.Errorf("weather-current-url is required when weather-source=http")
		}
	default:
		return fmt.Errorf("invalid weather-source %q (must be sim or http)", c.WeatherSource)
	}

	if err := c.TLS.Validate(); err != nil {
		return fmt.Errorf("tls: %w", err)
	}

	return nil
}

// ParseRushWindows parses a comma-separated list of daily windows such as
// "08:00-11:00,16:00-20:00" or "8-11,16-20". Minutes are accepted but
// truncated; windows are whole-hour grained, matching the simulator.
func ParseRushWindows(s string) ([]simulate.RushWindow, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("at least one rush window is required")
	}

	var windows []simulate.RushWindow
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		bounds := strings.Split(part, "-")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("invalid window %q (want START-END)", part)
		}

		start, err := parseHour(bounds[0])
		if err != nil {
			return nil, fmt.Errorf("invalid window %q: %w", part, err)
		}
		end, err := parseHour(bounds[1])
		if err != nil {
			return nil, fmt.Errorf("invalid window %q: %w", part, err)
		}

		if start >= end {
			return nil, fmt.Errorf("invalid window %q: start must precede end", part)
		}

		windows = append(windows, simulate.RushWindow{StartHour: start, EndHour: end})
	}

	return windows, nil
}

func parseHour(s string) (int, error) {
	s = strings.TrimSpace(s)
	if h, _, found := strings.Cut(s, ":"); found {
		s = h
	}
	hour, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad hour %q", s)
	}
	if hour < 0 || hour > 24 {
		return 0, fmt.Errorf("hour %d out of range [0,24]", hour)
	}
	return hour, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
