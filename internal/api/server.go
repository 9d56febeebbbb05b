package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"airtriage/internal/attack"
	"airtriage/internal/config"
	"airtriage/internal/model"
	"airtriage/internal/scoring"
	"airtriage/internal/tracker"
)

// Server is a thin polling adapter over the core: it serializes the status
// aggregator's snapshot and forwards submissions and executor transitions.
type Server struct {
	cfg          *config.Manager
	orchestrator *attack.Orchestrator
	aggregator   *attack.Aggregator
	tracker      *tracker.Tracker
	logger       *slog.Logger
	version      string
}

type statusResponse struct {
	Status     string         `json:"status"`
	Time       string         `json:"time"`
	Version    string         `json:"version"`
	ConfigPath string         `json:"config_path"`
	Attacks    model.Snapshot `json:"attacks"`
	Tracker    tracker.Stats  `json:"tracker"`
	Ingest     ingestStatus   `json:"ingest"`
}

type ingestStatus struct {
	REST      bool `json:"rest"`
	TCPStream bool `json:"tcp_stream"`
	Kafka     bool `json:"kafka"`
}

func Start(ctx context.Context, cfg *config.Manager, orchestrator *attack.Orchestrator, aggregator *attack.Aggregator, trk *tracker.Tracker, logger *slog.Logger, version string) *http.Server {
	if cfg == nil {
		return nil
	}
	current := cfg.Get().API
	if !current.Enabled {
		if logger != nil {
			logger.Info("api disabled")
		}
		return nil
	}
	if logger != nil {
		logger.Info("api enabled", "addr", current.Addr)
	}
	server := &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		aggregator:   aggregator,
		tracker:      trk,
		logger:       logger,
		version:      version,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", server.handleStatus)
	mux.HandleFunc("/attacks/status", server.handleAttackStatus)
	mux.HandleFunc("/attacks/next", server.handleNext)
	mux.HandleFunc("/attacks/transition", server.handleTransition)
	mux.HandleFunc("/attacks/progress", server.handleProgress)
	mux.HandleFunc("/attacks/cancel", server.handleCancel)
	mux.HandleFunc("/attacks", server.handleAttacks)
	mux.HandleFunc("/scores/", server.handleScore)
	mux.HandleFunc("/admin/clear", server.handleClear)

	httpServer := &http.Server{Addr: current.Addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctxShutdown)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if logger != nil {
				logger.Error("api server error", "err", err)
			}
		}
	}()
	return httpServer
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	cfg := s.cfg.Get()
	resp := statusResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339Nano),
		Version:    s.version,
		ConfigPath: s.cfg.Path(),
		Attacks:    s.aggregator.Snapshot(),
		Tracker:    s.tracker.Stats(),
		Ingest: ingestStatus{
			REST:      cfg.Ingest.REST.Enabled,
			TCPStream: cfg.Ingest.TCPStream.Enabled,
			Kafka:     cfg.Ingest.Kafka.Enabled,
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

// The shape polling consumers request repeatedly: counts plus the bounded
// recent list, nothing else.
func (s *Server) handleAttackStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.aggregator.Snapshot())
}

func (s *Server) handleAttacks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}
		store := s.orchestrator.Store()
		writeJSON(w, http.StatusOK, map[string]any{
			"active":   store.ListActive(),
			"recent":   store.ListRecent(limit),
			"counters": store.Counters(),
		})
	case http.MethodPost:
		var req struct {
			TargetID    string            `json:"target_id"`
			Kind        model.AttackKind  `json:"kind"`
			Observation model.Observation `json:"observation"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		if req.TargetID == "" || req.Kind == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		record, err := s.orchestrator.Submit(req.TargetID, req.Kind, req.Observation)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	record, ok := s.orchestrator.NextQueued()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		TargetID string             `json:"target_id"`
		Kind     model.AttackKind   `json:"kind"`
		Status   model.AttackStatus `json:"status"`
		Summary  string             `json:"result_summary,omitempty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	var record model.AttackRecord
	var err error
	switch req.Status {
	case model.StatusRunning:
		record, err = s.orchestrator.Start(req.TargetID, req.Kind)
	case model.StatusCompleted:
		record, err = s.orchestrator.Complete(req.TargetID, req.Kind, req.Summary)
	case model.StatusFailed:
		record, err = s.orchestrator.Fail(req.TargetID, req.Kind, req.Summary)
	case model.StatusCancelled:
		record, err = s.orchestrator.Cancel(req.TargetID, req.Kind)
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		TargetID   string           `json:"target_id"`
		Kind       model.AttackKind `json:"kind"`
		Progress   int              `json:"progress"`
		ETASeconds int              `json:"eta_seconds,omitempty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	record, err := s.orchestrator.Progress(req.TargetID, req.Kind, req.Progress, req.ETASeconds)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		TargetID string           `json:"target_id"`
		Kind     model.AttackKind `json:"kind"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	record, err := s.orchestrator.Cancel(req.TargetID, req.Kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	identifier := strings.TrimPrefix(r.URL.Path, "/scores/")
	if identifier == "" {
		writeJSON(w, http.StatusOK, map[string]any{"tracker": s.tracker.Stats()})
		return
	}
	result, ok := s.tracker.Get(identifier)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	obs, _ := s.tracker.Observation(identifier)
	writeJSON(w, http.StatusOK, map[string]any{
		"identifier":      identifier,
		"score":           result.Score,
		"priority":        result.Priority,
		"description":     scoring.Describe(result.Priority, obs.DeviceType),
		"recommendations": scoring.RecommendActions(result.Score, obs.DeviceType, obs.AssociatedTarget != ""),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.tracker != nil {
		s.tracker.Clear()
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, attack.ErrAlreadyActive):
		status = http.StatusConflict
	case errors.Is(err, attack.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, attack.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, attack.ErrInvalidProgress):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
