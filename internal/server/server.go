// Package server exposes discovery runs over HTTP: submission, status
// polling, report retrieval, and a WebSocket stream of live updates.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pastetrace/pastetrace/internal/model"
)

// Server is the HTTP boundary around a run Manager.
//
// Design decision: We route with net/http's ServeMux rather than a
// third-party router. Method-and-wildcard patterns cover this API's five
// routes, and the WebSocket endpoint is just another handler.
type Server struct {
	httpServer *http.Server
	manager    *Manager
	hub        *Hub
	logger     *slog.Logger
}

// New creates a Server listening on addr. hub may be nil if live updates
// are disabled.
func New(addr string, manager *Manager, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		manager: manager,
		hub:     hub,
		logger:  logger,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// routes builds the request multiplexer.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/scans", s.handleSubmit)
	mux.HandleFunc("GET /api/scans", s.handleList)
	mux.HandleFunc("GET /api/scans/{id}", s.handleStatus)
	mux.HandleFunc("GET /api/results/{id}", s.handleResults)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.hub != nil {
		mux.Handle("GET /ws", s.hub)
	}
	return mux
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe serves until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests.
// In-flight discovery runs are owned by the Manager, not the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

// scanRequest is the submission payload.
type scanRequest struct {
	// URLs are the seed paste locations to analyze.
	URLs []string `json:"urls"`

	// Options tune the run. Absent options default to clearnet-only
	// discovery without author crawling.
	Options *model.RunOptions `json:"options"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	urls := make([]string, 0, len(req.URLs))
	for _, u := range req.URLs {
		if u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		s.writeError(w, http.StatusBadRequest, "urls must contain at least one location")
		return
	}

	opts := model.RunOptions{EnableClearnet: true}
	if req.Options != nil {
		opts = *req.Options
	}

	record, err := s.manager.Submit(r.Context(), urls, opts)
	if err != nil {
		s.logger.Error("failed to submit run", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to submit run")
		return
	}
	s.writeJSON(w, http.StatusAccepted, record)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.manager.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if records == nil {
		records = []*model.RunRecord{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	record, err := s.manager.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error("failed to get run", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	if record == nil {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

// resultsResponse wraps a report with its run's terminal state, so
// clients of failed runs see both the error and the partial results.
type resultsResponse struct {
	RunID  string                 `json:"run_id"`
	Status model.RunStatus        `json:"status"`
	Error  string                 `json:"error,omitempty"`
	Report *model.DiscoveryReport `json:"report"`
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	record, err := s.manager.Get(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get run", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	if record == nil {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if !record.Status.Terminal() {
		s.writeJSON(w, http.StatusConflict, map[string]any{
			"run_id":   record.ID,
			"status":   record.Status,
			"progress": record.Progress,
		})
		return
	}

	report, err := s.manager.Report(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get report", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get report")
		return
	}
	s.writeJSON(w, http.StatusOK, resultsResponse{
		RunID:  record.ID,
		Status: record.Status,
		Error:  record.Error,
		Report: report,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
