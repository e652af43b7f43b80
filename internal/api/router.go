package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/sentiguard/internal/alert"
	"github.com/kalambet/sentiguard/internal/history"
	"github.com/kalambet/sentiguard/internal/sentiment"
	"github.com/kalambet/sentiguard/internal/storage"
)

const maxAnalyzeBodySize = 64 << 10 // 64KB

// Service is the session facade the HTTP and MCP layers expose.
type Service interface {
	Strategy() map[string]string
	Analyze(ctx context.Context, text string) (sentiment.Analysis, error)
	LatestMood(ctx context.Context) float64
	History() []storage.MoodEntry
	SessionAnalysis(ctx context.Context) []storage.MoodEntry
	Stats(ctx context.Context, period history.Period) []history.Bucket
	Summary(ctx context.Context) history.Summary
	CountNegativesSinceLastAlert(ctx context.Context) (alert.Count, error)
	AlertState(ctx context.Context) (alert.Status, error)
	CheckAlerts(ctx context.Context) (alert.Outcome, error)
	Alerts(limit int) ([]storage.AlertRecord, error)
	ResetAlertPointer() error
	ResetCaches()
	FlushHistory() error
	Concerns(limit int) ([]storage.ConcernEntry, error)
}

type AppDeps struct {
	Service Service
	Token   string // empty disables bearer auth
	Version string
}

type AnalyzeRequest struct {
	Text string `json:"text"`
}

type AnalyzeResponse struct {
	sentiment.Analysis
	Degraded bool   `json:"degraded,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewAppHandler returns the HTTP API. /health is always public.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Route("/v1", func(r chi.Router) {
			r.Post("/analyze", handleAnalyze(deps))
			r.Get("/mood/latest", handleLatestMood(deps))
			r.Get("/history", handleHistory(deps))
			r.Get("/history/session", handleSessionAnalysis(deps))
			r.Post("/history/flush", handleFlush(deps))
			r.Get("/stats", handleStats(deps))
			r.Get("/summary", handleSummary(deps))
			r.Get("/alerts", handleListAlerts(deps))
			r.Get("/alerts/pending", handlePendingAlerts(deps))
			r.Post("/alerts/check", handleCheckAlerts(deps))
			r.Post("/alerts/reset", handleResetAlerts(deps))
			r.Post("/cache/reset", handleResetCaches(deps))
			r.Get("/concerns", handleConcerns(deps))
		})
	})
	return r
}

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"version":  deps.Version,
			"strategy": deps.Service.Strategy(),
		})
	}
}

func handleAnalyze(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxAnalyzeBodySize)
		defer r.Body.Close()

		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		a, err := deps.Service.Analyze(r.Context(), req.Text)
		resp := AnalyzeResponse{Analysis: a}
		if err != nil {
			resp.Degraded = true
			resp.Error = err.Error()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleLatestMood(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]float64{"score": deps.Service.LatestMood(r.Context())})
	}
}

func handleHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tail(deps.Service.History(), parseIntParam(r, "limit", 0, 0)))
	}
}

func handleSessionAnalysis(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := deps.Service.SessionAnalysis(r.Context())
		writeJSON(w, http.StatusOK, tail(entries, parseIntParam(r, "limit", 0, 0)))
	}
}

func handleFlush(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Service.FlushHistory(); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to flush history: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
	}
}

func handleStats(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period, err := history.ParsePeriod(r.URL.Query().Get("period"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, deps.Service.Stats(r.Context(), period))
	}
}

func handleSummary(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Service.Summary(r.Context()))
	}
}

func handleListAlerts(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := deps.Service.Alerts(parseIntParam(r, "limit", 20, 500))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list alerts: %v", err)
			return
		}
		if recs == nil {
			recs = []storage.AlertRecord{}
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

func handlePendingAlerts(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := deps.Service.AlertState(r.Context())
		if err != nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "alert state unavailable: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func handleCheckAlerts(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := deps.Service.CheckAlerts(r.Context())
		if err != nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "alert check failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleResetAlerts(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Service.ResetAlertPointer(); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to reset alert pointer: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	}
}

func handleResetCaches(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Service.ResetCaches()
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	}
}

func handleConcerns(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := deps.Service.Concerns(parseIntParam(r, "limit", 20, 50))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list concerns: %v", err)
			return
		}
		if entries == nil {
			entries = []storage.ConcernEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// tail returns the last n entries, or all of them when n is 0.
func tail(entries []storage.MoodEntry, n int) []storage.MoodEntry {
	if entries == nil {
		return []storage.MoodEntry{}
	}
	if n > 0 && len(entries) > n {
		return entries[len(entries)-n:]
	}
	return entries
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
