package dashboard

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// Server is the ephemeral per-run HTTP server serving the dashboard page
// and its SSE event stream: an ephemeral-listener-plus-http.Server lifecycle
// (Start/Shutdown/Addr/URL) with just the two routes this driver needs and
// no auth/rate-limit-by-IP middleware — a local, single-viewer dashboard has
// no multi-tenant surface to guard.
type Server struct {
	hub *Hub

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	running  bool
}

// NewServer builds a dashboard server bound to hub. Start must be called
// before any client can connect.
func NewServer(hub *Hub) *Server {
	return &Server{hub: hub}
}

// Start binds an ephemeral TCP port on loopback and begins serving in the
// background. Per §3, dashboard-server errors are logged by the caller but
// never abort the run; Start itself returns an error only for a genuine
// bind failure, which the caller is expected to log and continue without
// a dashboard.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("dashboard: already running")
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("dashboard: failed to listen: %w", err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/events", s.handleEvents)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.running = true

	srv := s.server
	go func() {
		_ = srv.Serve(listener)
	}()
	return nil
}

// Shutdown stops accepting new connections and closes the hub so any
// still-open SSE streams end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	srv := s.server
	s.server = nil
	s.mu.Unlock()

	s.hub.closeAll()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

// URL returns the dashboard's base URL (e.g. "http://127.0.0.1:54321"),
// valid only after Start succeeds.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return fmt.Sprintf("http://%s", s.listener.Addr().String())
}
