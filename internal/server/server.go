// Package server exposes job progress over HTTP and WebSocket.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ixberis/doxai-indexer/internal/progress"
)

// defaultPollInterval paces the WebSocket timeline polling loop.
const defaultPollInterval = time.Second

// ProgressReader answers the queries the server serves. *progress.Service
// implements it.
type ProgressReader interface {
	GetJobProgress(ctx context.Context, jobID string) (*progress.JobProgress, error)
	ListJobs(ctx context.Context, limit int) ([]progress.JobProgress, error)
}

// Server serves job progress queries and event streams.
type Server struct {
	progress     ProgressReader
	logger       *slog.Logger
	pollInterval time.Duration
}

// New creates a progress server.
func New(reader ProgressReader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		progress:     reader,
		logger:       logger,
		pollInterval: defaultPollInterval,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.HandleFunc("GET /jobs/{id}/progress", s.handleJobProgress)
	mux.HandleFunc("GET /jobs/{id}/events", s.handleJobEvents)

	return LoggingMiddleware(s.logger)(mux)
}

// HTTPServer wraps the handler in an http.Server with sane timeouts.
// Write timeout is generous; WebSocket streams outlive slow polls.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	jobs, err := s.progress.ListJobs(r.Context(), limit)
	if err != nil {
		s.logger.Error("list jobs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleJobProgress(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	p, err := s.progress.GetJobProgress(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
