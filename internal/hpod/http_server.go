package hpod

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tunebench/hypertune/pkg/logger"
)

type HTTPServer struct {
	mux      *http.ServeMux
	store    *ExperimentStore
	registry *Registry
	Executor *Executor
}

func NewHTTPServer(store *ExperimentStore, registry *Registry, executor *Executor) *HTTPServer {
	s := &HTTPServer{
		mux:      http.NewServeMux(),
		store:    store,
		registry: registry,
		Executor: executor,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/objectives", s.handleObjectives)
	s.mux.HandleFunc("/v1/experiments", s.handleExperiments)
	s.mux.HandleFunc("/v1/experiments/", s.handleExperimentByID)

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// handleObjectives handles GET /v1/objectives
func (s *HTTPServer) handleObjectives(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"objectives": s.registry.Names(),
	})
}

// handleExperiments handles /v1/experiments
func (s *HTTPServer) handleExperiments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateExperiment(w, r)
	case http.MethodGet:
		s.handleListExperiments(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleExperimentByID handles /v1/experiments/{id} and related endpoints
func (s *HTTPServer) handleExperimentByID(w http.ResponseWriter, r *http.Request) {
	// Parse path: /v1/experiments/{id}, {id}:stop, {id}/trials,
	// {id}/incumbents or {id}/events
	path := strings.TrimPrefix(r.URL.Path, "/v1/experiments/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "experiment ID is required")
		return
	}

	if strings.HasSuffix(path, ":stop") {
		id := strings.TrimSuffix(path, ":stop")
		if r.Method == http.MethodPost {
			s.handleStopExperiment(w, r, id)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if strings.HasSuffix(path, "/trials") {
		id := strings.TrimSuffix(path, "/trials")
		if r.Method == http.MethodGet {
			s.handleListTrials(w, r, id)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if strings.HasSuffix(path, "/incumbents") {
		id := strings.TrimSuffix(path, "/incumbents")
		if r.Method == http.MethodGet {
			s.handleIncumbents(w, r, id)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if strings.HasSuffix(path, "/events") {
		id := strings.TrimSuffix(path, "/events")
		if r.Method == http.MethodGet {
			s.handleEvents(w, r, id)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if r.Method == http.MethodGet {
		s.handleGetExperiment(w, r, path)
	} else {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCreateExperiment handles POST /v1/experiments
func (s *HTTPServer) handleCreateExperiment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExperimentID string           `json:"experiment_id,omitempty"`
		Input        *ExperimentInput `json:"input"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Input == nil {
		s.writeError(w, http.StatusBadRequest, "input is required")
		return
	}
	if req.Input.Objective == "" {
		s.writeError(w, http.StatusBadRequest, "objective is required")
		return
	}
	if _, ok := s.registry.Get(req.Input.Objective); !ok {
		s.writeError(w, http.StatusBadRequest, "unknown objective: "+req.Input.Objective)
		return
	}
	if req.Input.ScenarioYAML == "" {
		s.writeError(w, http.StatusBadRequest, "scenario_yaml is required")
		return
	}

	rec, err := s.store.Create(req.ExperimentID, req.Input)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			s.writeError(w, http.StatusConflict, err.Error())
		} else {
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	started, err := s.Executor.Start(rec.Experiment.ID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	logger.Info("experiment created (HTTP)", "experiment_id", rec.Experiment.ID)
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"experiment": started.Experiment,
	})
}

// handleListExperiments handles GET /v1/experiments
func (s *HTTPServer) handleListExperiments(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > 1000 {
				limit = 1000
			}
		}
	}

	recs := s.store.List(limit)
	experiments := make([]*Experiment, 0, len(recs))
	for _, rec := range recs {
		experiments = append(experiments, rec.Experiment)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"experiments": experiments,
		"count":       len(experiments),
	})
}

// handleGetExperiment handles GET /v1/experiments/{id}
func (s *HTTPServer) handleGetExperiment(w http.ResponseWriter, _ *http.Request, id string) {
	exp, ok := s.store.Snapshot(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "experiment not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"experiment": exp,
	})
}

// handleStopExperiment handles POST /v1/experiments/{id}:stop
func (s *HTTPServer) handleStopExperiment(w http.ResponseWriter, _ *http.Request, id string) {
	updated, err := s.Executor.Stop(id)
	if err != nil {
		switch {
		case errors.Is(err, ErrExperimentNotFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrExperimentIDMissing):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Info("experiment cancelled (HTTP)", "experiment_id", id)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"experiment": updated.Experiment,
	})
}

// handleListTrials handles GET /v1/experiments/{id}/trials
func (s *HTTPServer) handleListTrials(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := s.store.Get(id); !ok {
		s.writeError(w, http.StatusNotFound, "experiment not found")
		return
	}

	history, ok := s.Executor.History(id)
	if !ok {
		s.writeError(w, http.StatusPreconditionFailed, "trial history not available")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	trials := history.List(limit, offset)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"trials": trials,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(trials),
			"total":  history.Len(),
		},
	})
}

// handleIncumbents handles GET /v1/experiments/{id}/incumbents
func (s *HTTPServer) handleIncumbents(w http.ResponseWriter, _ *http.Request, id string) {
	if _, ok := s.store.Get(id); !ok {
		s.writeError(w, http.StatusNotFound, "experiment not found")
		return
	}

	history, ok := s.Executor.History(id)
	if !ok {
		s.writeError(w, http.StatusPreconditionFailed, "trial history not available")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"incumbents": history.IncumbentTrajectory(),
	})
}

// handleEvents handles GET /v1/experiments/{id}/events (SSE)
func (s *HTTPServer) handleEvents(w http.ResponseWriter, r *http.Request, id string) {
	exp, ok := s.store.Snapshot(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "experiment not found")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	previousStatus := exp.Status
	s.sendSSEEvent(w, "status_change", map[string]any{
		"status": string(exp.Status),
	})

	// Parse interval from query parameter (default: 1s)
	interval := time.Second
	if intervalStr := r.URL.Query().Get("interval_ms"); intervalStr != "" {
		if intervalMs, err := strconv.ParseInt(intervalStr, 10, 64); err == nil && intervalMs > 0 {
			interval = time.Duration(intervalMs) * time.Millisecond
		}
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	var lastRound int
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			// Client disconnected
			return
		case <-ticker.C:
			exp, ok := s.store.Snapshot(id)
			if !ok {
				s.sendSSEEvent(w, "error", map[string]any{
					"error": "experiment not found",
				})
				return
			}

			if u, ok := s.Executor.Progress(id); ok && u.Round > lastRound {
				s.sendSSEEvent(w, "round_complete", u)
				lastRound = u.Round
			}

			if exp.Status != previousStatus {
				s.sendSSEEvent(w, "status_change", map[string]any{
					"status": string(exp.Status),
				})
				previousStatus = exp.Status
			}

			if exp.Status.IsTerminal() {
				s.sendSSEEvent(w, "complete", map[string]any{
					"status":         string(exp.Status),
					"incumbent_key":  exp.IncumbentKey,
					"incumbent_cost": exp.IncumbentCost,
					"trials_run":     exp.TrialsRun,
				})
				return
			}

			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

func (s *HTTPServer) sendSSEEvent(w http.ResponseWriter, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		logger.Error("failed to encode SSE event", "event", event, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}
