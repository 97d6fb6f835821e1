package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

// HTTPSource reads temperatures from a JSON weather API.
//
// It is deliberately provider-agnostic: the response layout is described by
// gjson path expressions, so any endpoint returning JSON can serve as a
// source without a dedicated client.
//
// Example configuration for a WeatherAPI-style endpoint:
//
//	src := &HTTPSource{
//	    CurrentURL:   "https://api.example.com/v1/current.json?q=17.44,78.38",
//	    ForecastURL:  "https://api.example.com/v1/forecast.json?q=17.44,78.38",
//	    CurrentPath:  "current.temp_c",
//	    ForecastTempPath: "forecast.forecastday.0.hour.#.temp_c",
//	    ForecastTimePath: "forecast.forecastday.0.hour.#.time_epoch",
//	    TimestampFormat:  "unix",
//	}
type HTTPSource struct {
	// CurrentURL is the endpoint returning the current reading (required).
	CurrentURL string

	// ForecastURL is the endpoint returning hourly forecast data.
	// Empty means Forecast falls back entirely to Fallback.
	ForecastURL string

	// APIKey, when set, is appended as the "key" query parameter.
	APIKey string

	// Headers are extra HTTP headers (API keys, accept types).
	Headers map[string]string

	// CurrentPath is the gjson path to the current temperature (required).
	CurrentPath string

	// ForecastTempPath and ForecastTimePath are gjson paths to parallel
	// arrays of forecast temperatures and their timestamps. Use "#" for
	// array traversal, e.g. "hourly.#.temp_c".
	ForecastTempPath string
	ForecastTimePath string

	// TimestampFormat selects forecast timestamp parsing:
	// "rfc3339" (default), "unix", or "unix_milli".
	TimestampFormat string

	// Client is optional; a default client with timeout is used when nil.
	Client *http.Client

	// Fallback, when set, answers in place of the API on any failure.
	// The pipeline wires the temperature simulator here so a provider
	// outage degrades to simulated readings instead of stopping ticks.
	Fallback Source

	// Logger records fallback events. nil uses slog.Default().
	Logger *slog.Logger
}

type forecastPoint struct {
	at    time.Time
	tempC float64
}

// Current fetches the current temperature. On any failure it defers to
// Fallback when configured.
func (s *HTTPSource) Current(ctx context.Context, at time.Time) (float64, error) {
	temp, err := s.fetchCurrent(ctx)
	if err == nil {
		return temp, nil
	}
	if s.Fallback == nil {
		return 0, err
	}
	s.logger().Warn("weather API current fetch failed, using fallback", "error", err)
	return s.Fallback.Current(ctx, at)
}

// Forecast fetches forecast temperatures and matches each requested step to
// the closest forecast point. On any failure it defers to Fallback.
func (s *HTTPSource) Forecast(ctx context.Context, from time.Time, steps int, step time.Duration) ([]float64, error) {
	if steps <= 0 {
		return nil, nil
	}

	points, err := s.fetchForecast(ctx)
	if err == nil && len(points) > 0 {
		out := make([]float64, steps)
		for i := range out {
			want := from.Add(time.Duration(i+1) * step)
			out[i] = closest(points, want)
		}
		return out, nil
	}

	if err == nil {
		err = errors.New("weather API returned no forecast points")
	}
	if s.Fallback == nil {
		return nil, err
	}
	s.logger().Warn("weather API forecast fetch failed, using fallback", "error", err)
	return s.Fallback.Forecast(ctx, from, steps, step)
}

func (s *HTTPSource) fetchCurrent(ctx context.Context) (float64, error) {
	if s.CurrentURL == "" {
		return 0, errors.New("weather http source: CurrentURL is required")
	}
	if s.CurrentPath == "" {
		return 0, errors.New("weather http source: CurrentPath is required")
	}

	body, err := s.get(ctx, s.CurrentURL)
	if err != nil {
		return 0, err
	}

	value := gjson.GetBytes(body, s.CurrentPath)
	if !value.Exists() {
		return 0, fmt.Errorf("path %q not found in current weather response", s.CurrentPath)
	}
	return value.Float(), nil
}

func (s *HTTPSource) fetchForecast(ctx context.Context) ([]forecastPoint, error) {
	if s.ForecastURL == "" {
		return nil, errors.New("weather http source: ForecastURL not configured")
	}
	if s.ForecastTempPath == "" || s.ForecastTimePath == "" {
		return nil, errors.New("weather http source: forecast paths are required")
	}

	body, err := s.get(ctx, s.ForecastURL)
	if err != nil {
		return nil, err
	}

	temps := gjson.GetBytes(body, s.ForecastTempPath)
	times := gjson.GetBytes(body, s.ForecastTimePath)
	if !temps.Exists() || !times.Exists() {
		return nil, fmt.Errorf("forecast paths %q/%q not found in response", s.ForecastTempPath, s.ForecastTimePath)
	}

	tempArr := temps.Array()
	timeArr := times.Array()
	if len(tempArr) != len(timeArr) {
		return nil, fmt.Errorf("forecast temp count (%d) != timestamp count (%d)", len(tempArr), len(timeArr))
	}

	points := make([]forecastPoint, 0, len(tempArr))
	for i := range tempArr {
		at, err := s.parseTimestamp(timeArr[i])
		if err != nil {
			return nil, fmt.Errorf("parse forecast timestamp[%d]: %w", i, err)
		}
		points = append(points, forecastPoint{at: at, tempC: tempArr[i].Float()})
	}
	return points, nil
}

func (s *HTTPSource) get(ctx context.Context, rawURL string) ([]byte, error) {
	target := rawURL
	if s.APIKey != "" {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("parse url: %w", err)
		}
		q := u.Query()
		q.Set("key", s.APIKey)
		u.RawQuery = q.Encode()
		target = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}

	cli := s.Client
	if cli == nil {
		cli = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(preview))
	}

	return io.ReadAll(resp.Body)
}

func (s *HTTPSource) parseTimestamp(value gjson.Result) (time.Time, error) {
	switch s.TimestampFormat {
	case "", "rfc3339":
		return time.Parse(time.RFC3339, value.String())
	case "unix":
		return time.Unix(int64(value.Float()), 0).UTC(), nil
	case "unix_milli":
		return time.UnixMilli(int64(value.Float())).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp format: %s", s.TimestampFormat)
	}
}

func (s *HTTPSource) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// ValidateConfig checks the source configuration before startup.
func (s *HTTPSource) ValidateConfig() error {
	if s.CurrentURL == "" {
		return errors.New("currentURL is required")
	}
	if s.CurrentPath == "" {
		return errors.New("currentPath is required")
	}
	if (s.ForecastTempPath == "") != (s.ForecastTimePath == "") {
		return errors.New("forecastTempPath and forecastTimePath must be set together")
	}
	switch s.TimestampFormat {
	case "", "rfc3339", "unix", "unix_milli":
	default:
		return fmt.Errorf("invalid timestampFormat %q (must be rfc3339, unix, or unix_milli)", s.TimestampFormat)
	}
	return nil
}

func closest(points []forecastPoint, want time.Time) float64 {
	best := points[0]
	bestDiff := math.Abs(want.Sub(points[0].at).Seconds())
	for _, p := range points[1:] {
		if d := math.Abs(want.Sub(p.at).Seconds()); d < bestDiff {
			best, bestDiff = p, d
		}
	}
	return best.tempC
}
