// Package api provides the read-only HTTP diagnostics API: active call
// sessions, relay coordinator state, and a health probe.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sebas/videophone/internal/call"
	"github.com/sebas/videophone/internal/relay"
)

// CallProvider supplies session snapshots for the API.
// Implemented by call.Coordinator.
type CallProvider interface {
	Sessions() []call.Info
	Active() *call.Info
}

// RelayProvider supplies relay coordinator state for the API.
// Implemented by relay.Coordinator.
type RelayProvider interface {
	Snapshot() relay.Status
}

// Server serves the diagnostics API.
type Server struct {
	addr       string
	httpServer *http.Server
	calls      CallProvider
	relay      RelayProvider
	startTime  time.Time
}

// NewServer creates the API server.
func NewServer(addr string, calls CallProvider, relayProvider RelayProvider) *Server {
	s := &Server{
		addr:      addr,
		calls:     calls,
		relay:     relayProvider,
		startTime: time.Now(),
	}

	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/calls", s.handleCalls)
		r.Get("/calls/active", s.handleActiveCall)
		r.Get("/relay", s.handleRelay)
	})

	s.httpServer = &http.Server{Addr: addr, Handler: r}
	return s
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	slog.Info("[API] Starting HTTP API server", "addr", s.addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("[API] Server error", "error", err)
		}
	}()
	return nil
}

// Stop shuts down the server.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{
		"status": "ok",
		"uptime": int64(time.Since(s.startTime).Seconds()),
	})
}

func (s *Server) handleCalls(w http.ResponseWriter, r *http.Request) {
	sessions := s.calls.Sessions()
	s.writeJSON(w, map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func (s *Server) handleActiveCall(w http.ResponseWriter, r *http.Request) {
	active := s.calls.Active()
	if active == nil {
		http.Error(w, `{"error":"no active call"}`, http.StatusNotFound)
		return
	}
	s.writeJSON(w, active)
}

func (s *Server) handleRelay(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.relay.Snapshot())
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("[API] Failed to encode response", "error", err)
	}
}
