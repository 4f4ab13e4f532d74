// Package server exposes the vidtalk REST API.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/raphaelgruber/vidtalk/internal/metrics"
	"github.com/raphaelgruber/vidtalk/internal/service"
)

// Server wires the HTTP routes to the services.
type Server struct {
	jobs     *service.JobManager
	sessions *service.SessionStore
	ingestor *service.Ingestor
	engine   *service.AnswerEngine
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// New creates the API server. The metrics collector may be nil.
func New(
	jobs *service.JobManager,
	sessions *service.SessionStore,
	ingestor *service.Ingestor,
	engine *service.AnswerEngine,
	collector *metrics.Collector,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		jobs:     jobs,
		sessions: sessions,
		ingestor: ingestor,
		engine:   engine,
		metrics:  collector,
		logger:   logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(s.logger))

	r.Post("/process-video-async", s.handleProcessVideo)
	r.Get("/job-status/{job_id}", s.handleJobStatus)
	r.Get("/jobs", s.handleListJobs)
	r.Post("/query", s.handleQuery)
	r.Post("/stop-session", s.handleStopSession)
	r.Get("/frames/{session_id}/{name}", s.handleFrame)
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)

	return r
}

type processVideoRequest struct {
	YoutubeURL string `json:"youtube_url"`
}

type processVideoResponse struct {
	JobID string `json:"job_id"`
}

func (s *Server) handleProcessVideo(w http.ResponseWriter, r *http.Request) {
	var req processVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if strings.TrimSpace(req.YoutubeURL) == "" {
		writeError(w, http.StatusBadRequest, "youtube_url required")
		return
	}

	job := s.ingestor.Submit(req.YoutubeURL)
	writeJSON(w, http.StatusAccepted, processVideoResponse{JobID: job.ID})
}

type jobStatusResponse struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	Stage       int    `json:"stage"`
	TotalStages int    `json:"total_stages"`
	SessionID   string `json:"session_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

func jobToResponse(job *service.Job) jobStatusResponse {
	return jobStatusResponse{
		JobID:       job.ID,
		Status:      string(job.Status),
		Message:     job.Message,
		Stage:       job.Stage,
		TotalStages: service.TotalStages,
		SessionID:   job.SessionID,
		Error:       job.Error,
	}
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(chi.URLParam(r, "job_id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	snap := job.Snapshot()
	writeJSON(w, http.StatusOK, jobToResponse(&snap))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobs.List()
	out := make([]jobStatusResponse, len(jobs))
	for i, job := range jobs {
		snap := job.Snapshot()
		out[i] = jobToResponse(&snap)
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

type queryRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

type queryResponse struct {
	Answer string `json:"answer"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.SessionID == "" || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "session_id and query required")
		return
	}

	answer, err := s.engine.Answer(r.Context(), req.SessionID, req.Query)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{Answer: answer})
}

type stopSessionRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	var req stopSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}

	// Stopping is idempotent: an already-expired or already-stopped
	// session still yields a success response.
	if err := s.sessions.Remove(r.Context(), req.SessionID); err != nil && !errors.Is(err, service.ErrSessionNotFound) {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s stopped and resources released.", req.SessionID),
	})
}

// handleFrame serves a session's extracted frame. Frame names come from
// index payloads, but the path is still normalized to keep requests
// inside the session's frames dir.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	name := chi.URLParam(r, "name")

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusBadRequest, "invalid frame name")
		return
	}

	http.ServeFile(w, r, filepath.Join(session.Dir, "frames", name))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Count(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeJSON(w, http.StatusOK, metrics.Snapshot{})
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

// writeServiceError maps service sentinels to HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
