package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/callops/batch-dialer/pkg/batch"
	"github.com/callops/batch-dialer/pkg/core"
	"github.com/callops/batch-dialer/pkg/security"
)

// Runner starts batch runs. *batch.Runner implements it.
type Runner interface {
	Run(ctx context.Context, trigger core.Trigger) (*core.RunSummary, error)
}

// History reads run history. core.RunStore implementations satisfy it.
type History interface {
	GetRun(ctx context.Context, runID string) (*core.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*core.Run, error)
}

// StatsSource counts call attempts by state.
type StatsSource interface {
	AttemptStats(ctx context.Context, since time.Time) (map[core.AttemptState]int64, error)
}

const workflowErrorMessage = "An error occurred during the workflow."

// Handler creates an http.Handler serving the automation API.
//
// Usage:
//
//	mux.Handle("/api/", api.Handler(runner, api.WithToken(token), api.WithHistory(store)))
func Handler(runner Runner, opts ...Option) http.Handler {
	cfg := &config{ctx: context.Background(), logger: slog.Default(), runs: &sync.WaitGroup{}}
	for _, opt := range opts {
		opt.apply(cfg)
	}
	s := &server{runner: runner, cfg: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.health)
	mux.Handle("POST /api/automation/run", s.authorize(http.HandlerFunc(s.run)))
	if cfg.history != nil {
		mux.Handle("GET /api/automation/runs", s.authorize(http.HandlerFunc(s.listRuns)))
		mux.Handle("GET /api/automation/runs/{id}", s.authorize(http.HandlerFunc(s.getRun)))
	}
	if cfg.stats != nil {
		mux.Handle("GET /api/automation/stats", s.authorize(http.HandlerFunc(s.attemptStats)))
	}

	if cfg.middleware != nil {
		return cfg.middleware(mux)
	}
	return mux
}

type server struct {
	runner Runner
	cfg    *config
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK", "message": "Server is running"})
}

// authorize rejects requests without the configured bearer token.
func (s *server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || !security.TokenEqual(strings.TrimSpace(token), s.cfg.token) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="dialer"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type runResponse struct {
	Message string           `json:"message"`
	RunID   string           `json:"run_id,omitempty"`
	Summary *core.RunSummary `json:"summary,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func (s *server) run(w http.ResponseWriter, r *http.Request) {
	runID := batch.NewRunID()
	ctx := batch.WithRunID(s.cfg.ctx, runID)

	s.cfg.runs.Add(1)
	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		go func() {
			defer s.cfg.runs.Done()
			summary, err := s.runner.Run(ctx, core.TriggerManual)
			s.finished(runID, summary, err)
		}()
		writeJSON(w, http.StatusAccepted, runResponse{Message: "Workflow started.", RunID: runID})
		return
	}
	defer s.cfg.runs.Done()

	summary, err := s.runner.Run(ctx, core.TriggerManual)
	s.finished(runID, summary, err)

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, runResponse{Message: summary.Message(), RunID: summary.RunID, Summary: summary})
	case errors.Is(err, core.ErrRunInProgress):
		writeJSON(w, http.StatusConflict, runResponse{
			Message: "A workflow run is already in progress.",
			Error:   err.Error(),
		})
	default:
		writeJSON(w, http.StatusInternalServerError, runResponse{
			Message: workflowErrorMessage,
			RunID:   runID,
			Summary: summary,
			Error:   security.SanitizeErrorMessage(err.Error()),
		})
	}
}

func (s *server) finished(runID string, summary *core.RunSummary, err error) {
	if err != nil && !errors.Is(err, core.ErrRunInProgress) {
		s.cfg.logger.Error("manual workflow run failed", "run_id", runID, "error", err)
	}
	if s.cfg.done != nil {
		s.cfg.done(summary, err)
	}
}

func (s *server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "limit must be an integer"})
			return
		}
		limit = n
	}

	runs, err := s.cfg.history.ListRuns(r.Context(), security.ClampListLimit(limit))
	if err != nil {
		s.internalError(w, "list runs", err)
		return
	}
	if runs == nil {
		runs = []*core.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.cfg.history.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		s.internalError(w, "get run", err)
		return
	}
	if run == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "run not found"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// attemptStats counts attempts by state. ?since accepts RFC 3339 or a
// duration back from now ("24h").
func (s *server) attemptStats(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			since = time.Now().Add(-d)
		} else if t, err := time.Parse(time.RFC3339, v); err == nil {
			since = t
		} else {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "since must be RFC 3339 or a duration"})
			return
		}
	}

	stats, err := s.cfg.stats.AttemptStats(r.Context(), since)
	if err != nil {
		s.internalError(w, "attempt stats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": stats})
}

func (s *server) internalError(w http.ResponseWriter, op string, err error) {
	s.cfg.logger.Error("api request failed", "op", op, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
