// Package sidecar serves the local health endpoint alongside the gateway.
//
// Desktop shells and scripts poll /health to learn whether the gateway is
// ready; every other path is redirected to the gateway port so a single
// well-known address works for both.
package sidecar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/simplestclaw/claw/internal/gateway"
)

// StatusSource reports the gateway state the sidecar exposes.
type StatusSource interface {
	Status() gateway.Status
}

// HealthResponse is the /health payload once the gateway is ready.
type HealthResponse struct {
	Status   string `json:"status"`
	OpenClaw string `json:"openclaw,omitempty"`
	WSPort   int    `json:"wsPort,omitempty"`
}

// Server is the sidecar HTTP server.
type Server struct {
	addr       string
	version    string
	source     StatusSource
	logger     *slog.Logger
	httpServer *http.Server
	listener   net.Listener
}

// New creates a sidecar Server. version is the OpenClaw package version
// reported in health responses.
func New(addr, version string, source StatusSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		addr:    addr,
		version: version,
		source:  source,
		logger:  logger,
	}
}

// Handler builds the sidecar HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRedirect)

	return otelhttp.NewHandler(s.logRequests(mux), "sidecar")
}

// Start begins listening and blocks until ctx is cancelled or the
// server fails.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("sidecar listening", "addr", listener.Addr().String())

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
		return fmt.Errorf("sidecar server: %w", err)
	}

	return nil
}

// Addr returns the bound address, or empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// handleHealth reports gateway readiness. 200 when the gateway is
// running, 503 with {"status":"starting"} in every other state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.source.Status()

	w.Header().Set("Content-Type", "application/json")

	if status.State != gateway.StateRunning {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "starting"})

		return
	}

	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:   "ok",
		OpenClaw: s.version,
		WSPort:   status.Port,
	})
}

// handleRedirect forwards any other path to the gateway port.
func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	status := s.source.Status()

	port := status.Port
	if port == 0 {
		port = gateway.DefaultPort
	}

	host, _, err := net.SplitHostPort(r.Host)
	if err != nil || host == "" {
		host = "127.0.0.1"
	}

	target := fmt.Sprintf("http://%s:%d%s", host, port, r.URL.RequestURI())
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("sidecar request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
