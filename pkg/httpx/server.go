// Package httpx provides HTTP server utilities shared by trafficpulse
// services: a server wrapper with graceful shutdown, JSON response helpers,
// request logging and panic recovery middleware, and a TLS-capable client
// for outbound calls.
package httpx

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	pulsetls "github.com/citygrid/trafficpulse/pkg/tls"
)

// Server wraps http.Server with sane timeouts and graceful shutdown.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates an HTTP server listening on addr.
// A nil handler uses http.DefaultServeMux.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// SetTLSConfig configures server TLS. Call before Start or StartTLS.
func (s *Server) SetTLSConfig(config *tls.Config) {
	s.server.TLSConfig = config
}

// Start serves HTTP, blocking until the server stops.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.server.Addr)
	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// StartTLS serves HTTPS with the provided cert and key files, blocking
// until the server stops.
func (s *Server) StartTLS(certFile, keyFile string) error {
	s.logger.Info("starting HTTPS server", "addr", s.server.Addr)
	err := s.server.ListenAndServeTLS(certFile, keyFile)
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server, waiting up to timeout for active
// connections to drain.
func (s *Server) Stop(timeout time.Duration) error {
	s.logger.Info("stopping HTTP server", "timeout", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server stopped gracefully")
	return nil
}

// ErrorResponse is the JSON error envelope used by all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// WriteError writes err as a JSON error response: {"error":"<msg>"}.
func WriteError(w http.ResponseWriter, status int, err error) {
	resp := ErrorResponse{Error: err.Error()}
	if jsonErr := WriteJSON(w, status, resp); jsonErr != nil {
		slog.Error("failed to write error response", "error", jsonErr, "original_error", err)
	}
}

// WriteErrorMessage writes a JSON error response with a fixed message.
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	resp := ErrorResponse{Error: message}
	if err := WriteJSON(w, status, resp); err != nil {
		slog.Error("failed to write error message", "error", err, "message", message)
	}
}

// HealthHandler returns a handler that always responds 200 OK.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("failed to write health response", "error", err)
		}
	}
}

// HealthHandlerWithCheck returns a handler that responds 200 OK when check
// passes and 503 with the error otherwise.
func HealthHandlerWithCheck(check func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := check(); err != nil {
			WriteError(w, http.StatusServiceUnavailable, err)
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("failed to write health response", "error", err)
		}
	}
}

// LoggingMiddleware logs method, path, status, and duration per request.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// RecoveryMiddleware converts handler panics into logged 500 responses.
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
					)
					WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// NewClient creates an HTTP client, with mTLS when tlsCfg.Enabled.
// The weather source uses this for outbound API calls.
func NewClient(tlsCfg pulsetls.Config, timeout time.Duration) (*http.Client, error) {
	var cryptoTLSConfig *tls.Config
	var err error

	if tlsCfg.Enabled {
		cryptoTLSConfig, err = pulsetls.NewClientTLSConfig(tlsCfg.CertFile, tlsCfg.KeyFile, tlsCfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("create TLS config: %w", err)
		}
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
		TLSClientConfig:     cryptoTLSConfig,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}, nil
}
