// Package api provides the HTTP API for playing runs.
// GET endpoints are public. Run creation is rate limited, autopilot control
// requires the admin bearer token, and the SSE stream requires the relay
// token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/metrics"
	"github.com/talgya/finsim/internal/persistence"
	"github.com/talgya/finsim/internal/runs"
)

const maxSSEConns = 8

// Server serves runs over HTTP.
type Server struct {
	Runs     *runs.Service
	Hub      *Hub
	Profiles agents.Profiles
	AdminKey string // Bearer token for autopilot control. Empty = disabled.
	RelayKey string // Bearer token for the SSE stream. Empty = streaming disabled.

	// CreateLimiter throttles POST /api/v1/runs. Nil disables throttling.
	CreateLimiter *RateLimiter

	// Active SSE connection count (atomic).
	sseConns int32
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "finsim"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.Hub != nil {
			r.Get("/ws", s.Hub.HandleWS)
		}
		r.Get("/profiles", s.handleProfiles)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			create := http.Handler(http.HandlerFunc(s.handleCreateRun))
			if s.CreateLimiter != nil {
				create = s.CreateLimiter.Limit(create)
			}
			r.Method(http.MethodPost, "/runs", create)
			r.Get("/runs", s.handleListRuns)

			r.Route("/runs/{runID}", func(r chi.Router) {
				r.Get("/", s.handleGetRun)
				r.Get("/months", s.handleListMonths)
				r.Get("/months/{month}", s.handleGetMonth)
				r.Put("/months/{month}/decisions", s.handlePutDecisions)
				r.Post("/advance", s.handleAdvance)
				r.Get("/replay", s.handleReplay)
				r.With(s.adminOnly).Post("/autopilot", s.handleAutopilot)
			})
		})

		// Long-lived; no request timeout.
		r.Get("/stream", s.handleStream)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      corsMiddleware(s.Routes()),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // the SSE stream holds responses open
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "relay_auth", s.RelayKey != "")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	slog.Info("HTTP API shutting down")
	return srv.Shutdown(shutdownCtx)
}

// corsMiddleware allows browser clients from any origin; the API carries no
// cookies.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearer(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(auth, "Bearer "), true
}

// adminOnly requires the admin bearer token.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			writeError(w, "admin endpoints disabled (no admin key configured)", http.StatusForbidden)
			return
		}
		if token, ok := bearer(r); !ok || token != s.AdminKey {
			writeError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleProfiles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Profiles)
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req runs.StartRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	st, err := s.Runs.Start(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	list, err := s.Runs.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	st, err := s.Runs.State(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleListMonths(w http.ResponseWriter, r *http.Request) {
	months, err := s.Runs.History(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, months)
}

func monthParam(r *http.Request) (int, error) {
	m, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || m < 0 {
		return 0, fmt.Errorf("invalid month %q", chi.URLParam(r, "month"))
	}
	return m, nil
}

func (s *Server) handleGetMonth(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	view, err := s.Runs.Month(r.Context(), chi.URLParam(r, "runID"), month)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handlePutDecisions(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	set := agents.DefaultDecisions()
	if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
		writeError(w, "invalid decision set", http.StatusBadRequest)
		return
	}
	runID := chi.URLParam(r, "runID")
	if err := s.Runs.SubmitDecisions(r.Context(), runID, month, set); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "month": month, "status": "accepted"})
}

// AdvanceRequest names the month being closed, so a retried request cannot
// advance twice.
type AdvanceRequest struct {
	Month *int `json:"month"`
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Month == nil {
		writeError(w, "request body must name the current month", http.StatusBadRequest)
		return
	}
	adv, err := s.Runs.Advance(r.Context(), chi.URLParam(r, "runID"), *req.Month, runs.TriggerAPI)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adv)
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	report, err := s.Runs.Replay(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAutopilot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, `request body must be {"enabled": true|false}`, http.StatusBadRequest)
		return
	}
	run, err := s.Runs.SetAutopilot(r.Context(), chi.URLParam(r, "runID"), *req.Enabled)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleStream provides an SSE endpoint for advanced months. Requires the
// relay bearer token and limits concurrent connections. ?run= filters to a
// single run.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.RelayKey == "" || s.Hub == nil {
		writeError(w, "streaming disabled (no relay key)", http.StatusForbidden)
		return
	}
	if token, ok := bearer(r); !ok || token != s.RelayKey {
		writeError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	current := atomic.AddInt32(&s.sseConns, 1)
	if current > maxSSEConns {
		atomic.AddInt32(&s.sseConns, -1)
		writeError(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.sseConns, -1)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	filter := r.URL.Query().Get("run")
	subID, ch := s.Hub.Subscribe()
	defer s.Hub.Unsubscribe(subID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	slog.Info("SSE client connected", "sub_id", subID, "run", filter)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if filter != "" && msg.RunID != filter {
				continue
			}
			writeSSE(w, msg)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE client disconnected", "sub_id", subID)
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, msg MonthMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, data)
}

// writeServiceError maps service and store errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, runs.ErrStaleMonth),
		errors.Is(err, runs.ErrRunFinished),
		errors.Is(err, persistence.ErrMonthExists),
		errors.Is(err, persistence.ErrRunExists):
		status = http.StatusConflict
	case errors.Is(err, agents.ErrUnknownProfile), errors.Is(err, runs.ErrInvalidRequest):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		writeError(w, "internal error", status)
		return
	}
	writeError(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
