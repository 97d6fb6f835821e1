package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type stubSource struct {
	tempC float64
}

func (s stubSource) Current(context.Context, time.Time) (float64, error) {
	return s.tempC, nil
}

func (s stubSource) Forecast(_ context.Context, _ time.Time, steps int, _ time.Duration) ([]float64, error) {
	out := make([]float64, steps)
	for i := range out {
		out[i] = s.tempC
	}
	return out, nil
}

func TestHTTPSource_Current(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept header = %q, want application/json", got)
		}
		if got := r.URL.Query().Get("key"); got != "s3cret" {
			t.Errorf("key query param = %q, want s3cret", got)
		}
		fmt.Fprint(w, `{"location":{"name":"Hyderabad"},"current":{"temp_c":31.4,"humidity":62}}`)
	}))
	defer srv.Close()

	src := &HTTPSource{
		CurrentURL:  srv.URL + "/v1/current.json",
		APIKey:      "s3cret",
		CurrentPath: "current.temp_c",
	}

	temp, err := src.Current(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if temp != 31.4 {
		t.Errorf("Current() = %v, want 31.4", temp)
	}
}

func TestHTTPSource_CurrentMissingPathFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"current":{"humidity":62}}`)
	}))
	defer srv.Close()

	src := &HTTPSource{
		CurrentURL:  srv.URL,
		CurrentPath: "current.temp_c",
		Fallback:    stubSource{tempC: 27},
	}

	temp, err := src.Current(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Current() error = %v, want fallback success", err)
	}
	if temp != 27 {
		t.Errorf("Current() = %v, want fallback 27", temp)
	}
}

func TestHTTPSource_CurrentServerErrorNoFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := &HTTPSource{CurrentURL: srv.URL, CurrentPath: "current.temp_c"}

	if _, err := src.Current(context.Background(), time.Now()); err == nil {
		t.Fatal("Current() error = nil, want status error")
	} else if !strings.Contains(err.Error(), "429") {
		t.Errorf("Current() error = %v, want status 429 mentioned", err)
	}
}

func TestHTTPSource_Forecast(t *testing.T) {
	base := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"hourly":[
			{"time_epoch":%d,"temp_c":28.0},
			{"time_epoch":%d,"temp_c":30.0},
			{"time_epoch":%d,"temp_c":32.0}
		]}`, base.Unix(), base.Add(time.Hour).Unix(), base.Add(2*time.Hour).Unix())
	}))
	defer srv.Close()

	src := &HTTPSource{
		CurrentURL:       srv.URL,
		CurrentPath:      "current.temp_c",
		ForecastURL:      srv.URL,
		ForecastTempPath: "hourly.#.temp_c",
		ForecastTimePath: "hourly.#.time_epoch",
		TimestampFormat:  "unix",
	}

	// Steps at 08:30 and 09:00 pick the closest hourly points: 08:00
	// (or 09:00, the tie resolves to the earlier point) and 09:00.
	got, err := src.Forecast(context.Background(), base, 2, 30*time.Minute)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Forecast() returned %d values, want 2", len(got))
	}
	if got[0] != 28.0 {
		t.Errorf("Forecast()[0] = %v, want 28.0", got[0])
	}
	if got[1] != 30.0 {
		t.Errorf("Forecast()[1] = %v, want 30.0", got[1])
	}
}

func TestHTTPSource_ForecastLengthMismatchFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"temps":[28.0,30.0],"times":["2026-08-30T08:00:00Z"]}`)
	}))
	defer srv.Close()

	src := &HTTPSource{
		CurrentURL:       srv.URL,
		CurrentPath:      "current.temp_c",
		ForecastURL:      srv.URL,
		ForecastTempPath: "temps",
		ForecastTimePath: "times",
		Fallback:         stubSource{tempC: 26},
	}

	got, err := src.Forecast(context.Background(), time.Now(), 3, time.Minute)
	if err != nil {
		t.Fatalf("Forecast() error = %v, want fallback success", err)
	}
	for i, temp := range got {
		if temp != 26 {
			t.Errorf("Forecast()[%d] = %v, want fallback 26", i, temp)
		}
	}
}

func TestHTTPSource_ForecastNoURLUsesFallback(t *testing.T) {
	src := &HTTPSource{
		CurrentURL:  "http://unused.invalid",
		CurrentPath: "current.temp_c",
		Fallback:    stubSource{tempC: 25},
	}

	got, err := src.Forecast(context.Background(), time.Now(), 2, time.Minute)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if len(got) != 2 || got[0] != 25 {
		t.Errorf("Forecast() = %v, want fallback values", got)
	}
}

func TestHTTPSource_ValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		src     HTTPSource
		wantErr bool
	}{
		{
			name: "minimal valid",
			src:  HTTPSource{CurrentURL: "http://x", CurrentPath: "temp"},
		},
		{
			name:    "missing current url",
			src:     HTTPSource{CurrentPath: "temp"},
			wantErr: true,
		},
		{
			name:    "missing current path",
			src:     HTTPSource{CurrentURL: "http://x"},
			wantErr: true,
		},
		{
			name:    "forecast paths must pair",
			src:     HTTPSource{CurrentURL: "http://x", CurrentPath: "temp", ForecastTempPath: "temps"},
			wantErr: true,
		},
		{
			name: "known timestamp format",
			src:  HTTPSource{CurrentURL: "http://x", CurrentPath: "temp", TimestampFormat: "unix_milli"},
		},
		{
			name:    "unknown timestamp format",
			src:     HTTPSource{CurrentURL: "http://x", CurrentPath: "temp", TimestampFormat: "iso8601"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.src.ValidateConfig()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
