package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/catalogsync/internal/config"
	"github.com/JonMunkholm/catalogsync/internal/core"
)

type fakeSyncer struct {
	err    error
	report *core.RunReport
	got    []core.SyncRequest
	last   *core.RunReport
}

func (f *fakeSyncer) Sync(ctx context.Context, req core.SyncRequest) (*core.RunReport, error) {
	f.got = append(f.got, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func (f *fakeSyncer) Status() core.SyncStatus {
	return core.SyncStatus{Phase: core.PhaseIdle, LastRunID: "run-1"}
}

func (f *fakeSyncer) LastReport() *core.RunReport { return f.last }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
	}
}

func do(t *testing.T, s *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

func TestHandleSync(t *testing.T) {
	syncer := &fakeSyncer{report: &core.RunReport{Success: true, RunID: "run-9", Message: "2 of 2 products synchronized, 0 warnings"}}
	s := NewServer(syncer, testConfig())

	rec := do(t, s, http.MethodPost, "/api/sync", `{"partitions":["Alveolar","Perfiles"],"dryRun":true}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}

	var got core.RunReport
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.RunID != "run-9" || !got.Success {
		t.Errorf("report = %+v", got)
	}

	if len(syncer.got) != 1 {
		t.Fatalf("Sync called %d times", len(syncer.got))
	}
	req := syncer.got[0]
	if !req.DryRun || req.ClearFirst || len(req.Partitions) != 2 {
		t.Errorf("request = %+v", req)
	}
}

func TestHandleSync_EmptyBody(t *testing.T) {
	syncer := &fakeSyncer{report: &core.RunReport{}}
	s := NewServer(syncer, testConfig())

	rec := do(t, s, http.MethodPost, "/api/sync", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(syncer.got) != 1 || len(syncer.got[0].Partitions) != 0 {
		t.Errorf("requests = %+v, want one zero request", syncer.got)
	}
}

func TestHandleSync_FailedRunIsStill200(t *testing.T) {
	syncer := &fakeSyncer{report: &core.RunReport{Success: false, Message: "0 of 0 products synchronized"}}
	s := NewServer(syncer, testConfig())

	rec := do(t, s, http.MethodPost, "/api/sync", "{}", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestHandleSync_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"run in progress", "{}", core.ErrSyncInProgress, http.StatusConflict, "RUN001"},
		{"malformed body", "{partitions", nil, http.StatusBadRequest, "REQ001"},
		{"unexpected failure", "{}", errors.New("boom"), http.StatusInternalServerError, "ERR000"},
		{"store unreachable", "{}", errors.New("dial tcp: connection refused"), http.StatusInternalServerError, "DB001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(&fakeSyncer{err: tt.err, report: &core.RunReport{}}, testConfig())
			rec := do(t, s, http.MethodPost, "/api/sync", tt.body, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if e := decodeError(t, rec); e.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", e.Code, tt.wantCode)
			}
		})
	}
}

func TestStatusAndLastReport(t *testing.T) {
	syncer := &fakeSyncer{}
	s := NewServer(syncer, testConfig())

	rec := do(t, s, http.MethodGet, "/api/sync/status", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d", rec.Code)
	}
	var st core.SyncStatus
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Phase != core.PhaseIdle || st.LastRunID != "run-1" {
		t.Errorf("status = %+v", st)
	}

	rec = do(t, s, http.MethodGet, "/api/sync/last", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("last report before any run = %d, want 404", rec.Code)
	}

	syncer.last = &core.RunReport{RunID: "run-1"}
	rec = do(t, s, http.MethodGet, "/api/sync/last", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("last report = %d, want 200", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	s := NewServer(&fakeSyncer{}, testConfig())
	rec := do(t, s, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"alpha", "beta"}
	s := NewServer(&fakeSyncer{}, cfg)

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "gamma", http.StatusForbidden},
		{"valid", "beta", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := map[string]string{}
			if tt.key != "" {
				header["X-API-Key"] = tt.key
			}
			rec := do(t, s, http.MethodGet, "/api/sync/status", "", header)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	// Health checks stay open.
	if rec := do(t, s, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz with auth = %d", rec.Code)
	}
}

func TestTriggerRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security.TriggerRatePerMinute = 2
	s := NewServer(&fakeSyncer{report: &core.RunReport{}}, cfg)

	for i := 0; i < 2; i++ {
		if rec := do(t, s, http.MethodPost, "/api/sync", "{}", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d = %d, want 200", i+1, rec.Code)
		}
	}
	rec := do(t, s, http.MethodPost, "/api/sync", "{}", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	// Status reads are not limited.
	if rec := do(t, s, http.MethodGet, "/api/sync/status", "", nil); rec.Code != http.StatusOK {
		t.Errorf("status after limit = %d", rec.Code)
	}
}

func TestTriggerLimiter_Refills(t *testing.T) {
	tl := newTriggerLimiter(1, time.Minute)
	now := time.Now()
	if !tl.allow("10.0.0.1", now) {
		t.Fatal("first request denied")
	}
	if tl.allow("10.0.0.1", now) {
		t.Error("second request in the same instant allowed")
	}
	if !tl.allow("10.0.0.2", now) {
		t.Error("other client denied")
	}
	if !tl.allow("10.0.0.1", now.Add(61*time.Second)) {
		t.Error("request after refill denied")
	}
}
