package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/sentiguard/internal/alert"
	"github.com/kalambet/sentiguard/internal/history"
	"github.com/kalambet/sentiguard/internal/sentiment"
	"github.com/kalambet/sentiguard/internal/storage"
)

const testToken = "test-token-12345"

// mockService is a hand-written Service double.
type mockService struct {
	mu          sync.Mutex
	analyzeErr  error
	history     []storage.MoodEntry
	alerts      []storage.AlertRecord
	concerns    []storage.ConcernEntry
	state       alert.Status
	stateErr    error
	flushErr    error
	resets      int
	cacheResets int
	lastPeriod  history.Period
	lastLimit   int
}

func (m *mockService) Strategy() map[string]string {
	return map[string]string{"classifier": "lexicon"}
}

func (m *mockService) Analyze(_ context.Context, text string) (sentiment.Analysis, error) {
	if strings.TrimSpace(text) == "" {
		return sentiment.Analysis{}, nil
	}
	return sentiment.Analysis{Score: -0.5, Baseline: -0.6}, m.analyzeErr
}

func (m *mockService) LatestMood(context.Context) float64 { return 0.25 }

func (m *mockService) History() []storage.MoodEntry { return m.history }

func (m *mockService) SessionAnalysis(context.Context) []storage.MoodEntry { return m.history }

func (m *mockService) Stats(_ context.Context, p history.Period) []history.Bucket {
	m.lastPeriod = p
	return []history.Bucket{{Label: "03/01", Mean: 0.2, Count: 1}}
}

func (m *mockService) Summary(context.Context) history.Summary {
	return history.Summary{Total: len(m.history)}
}

func (m *mockService) CountNegativesSinceLastAlert(context.Context) (alert.Count, error) {
	return alert.Count{Negatives: m.state.Negatives}, m.stateErr
}

func (m *mockService) AlertState(context.Context) (alert.Status, error) {
	return m.state, m.stateErr
}

func (m *mockService) CheckAlerts(context.Context) (alert.Outcome, error) {
	if m.stateErr != nil {
		return alert.Outcome{}, m.stateErr
	}
	return alert.Outcome{Triggered: m.state.State == alert.StateArmed}, nil
}

func (m *mockService) Alerts(limit int) ([]storage.AlertRecord, error) {
	m.lastLimit = limit
	return m.alerts, nil
}

func (m *mockService) ResetAlertPointer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	return nil
}

func (m *mockService) ResetCaches() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheResets++
}

func (m *mockService) FlushHistory() error { return m.flushErr }

func (m *mockService) Concerns(limit int) ([]storage.ConcernEntry, error) {
	m.lastLimit = limit
	return m.concerns, nil
}

func setupAppHandler(t *testing.T, token string) (http.Handler, *mockService) {
	t.Helper()
	svc := &mockService{}
	return NewAppHandler(AppDeps{Service: svc, Token: token, Version: "test"}), svc
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestHealth_NoAuth(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var body map[string]any
	json.Unmarshal(rr.Body.Bytes(), &body)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestAuth_RejectsMissingToken(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)
	for _, tok := range []string{"", "wrong"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/summary", "", tok))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", tok, rr.Code)
		}
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		got, ok := bearerToken(req)
		if got != tt.want || ok != tt.ok {
			t.Errorf("bearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAuth_RejectionSetsChallenge(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/summary", "", "wrong"))
	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}
}

func TestAuth_DisabledWithoutToken(t *testing.T) {
	h, _ := setupAppHandler(t, "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/summary", "", ""))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestAnalyze(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/v1/analyze", `{"text":"rough day"}`, testToken))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var resp AnalyzeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Score != -0.5 || resp.Baseline != -0.6 || resp.Degraded {
		t.Errorf("resp = %+v", resp)
	}
}

func TestAnalyze_DegradedCarriesError(t *testing.T) {
	h, svc := setupAppHandler(t, testToken)
	svc.analyzeErr = errors.New("model timeout")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/v1/analyze", `{"text":"rough day"}`, testToken))

	var resp AnalyzeResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if !resp.Degraded || !strings.Contains(resp.Error, "model timeout") {
		t.Errorf("resp = %+v", resp)
	}
}

func TestAnalyze_BadBody(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/v1/analyze", `{not json`, testToken))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHistory_Limit(t *testing.T) {
	h, svc := setupAppHandler(t, testToken)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := range 5 {
		svc.history = append(svc.history, storage.MoodEntry{Timestamp: now.Add(time.Duration(i) * time.Minute), Score: float64(i) / 10})
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/history?limit=2", "", testToken))
	var got []storage.MoodEntry
	json.Unmarshal(rr.Body.Bytes(), &got)
	if len(got) != 2 || got[1].Score != 0.4 {
		t.Errorf("history = %+v", got)
	}
}

func TestHistory_EmptyIsArray(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/history/session", "", testToken))
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", rr.Body.String())
	}
}

func TestStats_Period(t *testing.T) {
	h, svc := setupAppHandler(t, testToken)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/stats?period=weekly", "", testToken))
	if rr.Code != http.StatusOK || svc.lastPeriod != history.Weekly {
		t.Errorf("status = %d period = %q", rr.Code, svc.lastPeriod)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/stats?period=hourly", "", testToken))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown period status = %d, want 400", rr.Code)
	}
}

func TestAlerts_PendingAndCheck(t *testing.T) {
	h, svc := setupAppHandler(t, testToken)
	svc.state = alert.Status{State: alert.StateArmed, Negatives: 6, Limit: 5}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/alerts/pending", "", testToken))
	var st alert.Status
	json.Unmarshal(rr.Body.Bytes(), &st)
	if st.State != alert.StateArmed || st.Negatives != 6 {
		t.Errorf("pending = %+v", st)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/v1/alerts/check", "", testToken))
	var out alert.Outcome
	json.Unmarshal(rr.Body.Bytes(), &out)
	if !out.Triggered {
		t.Errorf("check = %+v", out)
	}

	svc.stateErr = errors.New("log unreadable")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/alerts/pending", "", testToken))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestAlerts_ListClampsLimit(t *testing.T) {
	h, svc := setupAppHandler(t, testToken)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/alerts?limit=10000", "", testToken))
	if svc.lastLimit != 500 {
		t.Errorf("limit = %d, want 500", svc.lastLimit)
	}
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestResets(t *testing.T) {
	h, svc := setupAppHandler(t, testToken)
	for _, path := range []string{"/v1/alerts/reset", "/v1/cache/reset"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, authReq(http.MethodPost, path, "", testToken))
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rr.Code)
		}
	}
	if svc.resets != 1 || svc.cacheResets != 1 {
		t.Errorf("resets = %d cacheResets = %d", svc.resets, svc.cacheResets)
	}
}

func TestFlush_Error(t *testing.T) {
	h, svc := setupAppHandler(t, testToken)
	svc.flushErr = errors.New("disk full")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/v1/history/flush", "", testToken))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "disk full") {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestConcerns(t *testing.T) {
	h, svc := setupAppHandler(t, testToken)
	svc.concerns = []storage.ConcernEntry{{ID: "c1", Sample: "feeling hopeless", Flags: []string{"mental_health_concern"}}}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/concerns", "", testToken))
	var got []storage.ConcernEntry
	json.Unmarshal(rr.Body.Bytes(), &got)
	if len(got) != 1 || got[0].ID != "c1" || svc.lastLimit != 20 {
		t.Errorf("concerns = %+v limit = %d", got, svc.lastLimit)
	}
}

func TestLatestMood(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/mood/latest", "", testToken))
	var got map[string]float64
	json.Unmarshal(rr.Body.Bytes(), &got)
	if got["score"] != 0.25 {
		t.Errorf("latest = %v", got)
	}
}
