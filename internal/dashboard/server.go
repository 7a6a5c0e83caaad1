// Package dashboard serves the embedded chat UI and bridges its
// WebSocket connection to the gateway, injecting the gateway token so
// the browser never handles it.
package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/simplestclaw/claw/internal/gateway"
	"github.com/simplestclaw/claw/internal/runtime"
)

//go:embed static
var staticFS embed.FS

// StatusSource exposes the state the dashboard renders.
type StatusSource interface {
	Status() gateway.Status
}

// RuntimeSource exposes the runtime state the dashboard renders.
type RuntimeSource interface {
	Status() runtime.Status
}

// StatusResponse is the /api/status payload.
type StatusResponse struct {
	Gateway gateway.Status `json:"gateway"`
	Runtime runtime.Status `json:"runtime"`
	Version string         `json:"version"`
}

// Server is the dashboard HTTP server.
type Server struct {
	addr       string
	version    string
	gateways   StatusSource
	runtimes   RuntimeSource
	logger     *slog.Logger
	httpServer *http.Server
	listener   net.Listener
}

// New creates a dashboard Server.
func New(addr, version string, gateways StatusSource, runtimes RuntimeSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		addr:     addr,
		version:  version,
		gateways: gateways,
		runtimes: runtimes,
		logger:   logger,
	}
}

// Handler builds the dashboard HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("/static/", http.StripPrefix("/static/", staticServer()))
	mux.HandleFunc("/", s.handleIndex)

	return otelhttp.NewHandler(mux, "dashboard")
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

	s.logger.Info("dashboard listening", "addr", listener.Addr().String())

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
		return fmt.Errorf("dashboard server: %w", err)
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

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Gateway: s.gateways.Status(),
		Version: s.version,
	}

	// The browser never needs the token; the /ws bridge injects it.
	resp.Gateway.Token = ""

	if s.runtimes != nil {
		resp.Runtime = s.runtimes.Status()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "dashboard assets missing", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

// staticServer serves embedded assets with explicit content types.
func staticServer() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("dashboard: failed to create sub filesystem: " + err.Error())
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch strings.ToLower(path.Ext(r.URL.Path)) {
		case ".js":
			w.Header().Set("Content-Type", "application/javascript")
		case ".css":
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
		}

		w.Header().Set("Cache-Control", "no-cache")
		fileServer.ServeHTTP(w, r)
	})
}
