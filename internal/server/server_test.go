package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nvandessel/phsim/internal/config"
	"github.com/nvandessel/phsim/internal/metrics"
	"github.com/nvandessel/phsim/internal/ratelimit"
	"github.com/nvandessel/phsim/internal/runner"
	"github.com/nvandessel/phsim/internal/store"
)

func newTestAPI(t *testing.T, opts ...Option) (*httptest.Server, *store.InMemoryResultStore) {
	t.Helper()
	cfg := config.Default()
	cfg.Simulation.Workers = 2
	rs := store.NewInMemoryResultStore()
	srv := NewServer(runner.New(cfg, runner.WithStore(rs)), opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, rs
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestServer_Scenarios(t *testing.T) {
	ts, _ := newTestAPI(t)

	resp, err := http.Get(ts.URL + "/api/scenarios")
	if err != nil {
		t.Fatalf("GET /api/scenarios: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body struct {
		Scenarios    []map[string]any `json:"scenarios"`
		Complexities []map[string]any `json:"complexities"`
	}
	decode(t, resp, &body)
	if len(body.Scenarios) != 6 {
		t.Errorf("got %d scenarios, want 6", len(body.Scenarios))
	}
	if len(body.Complexities) != 4 {
		t.Errorf("got %d complexities, want 4", len(body.Complexities))
	}
}

func TestServer_Simulate(t *testing.T) {
	ts, rs := newTestAPI(t)

	resp := postJSON(t, ts.URL+"/api/simulate", `{"scenario":"ai-guardrails","nChanges":25,"runs":10,"seed":5}`)
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, b)
	}

	var out runner.Response
	decode(t, resp, &out)
	if out.Scenario != "ai-guardrails" {
		t.Errorf("Scenario = %q", out.Scenario)
	}
	if len(out.Stats.AverageTrajectory) != 26 {
		t.Errorf("trajectory length = %d, want 26", len(out.Stats.AverageTrajectory))
	}

	saved, err := rs.Get(context.Background(), out.ID)
	if err != nil {
		t.Fatalf("result not saved: %v", err)
	}
	if saved.Source != "http" {
		t.Errorf("Source = %q, want http", saved.Source)
	}
}

func TestServer_SimulateErrors(t *testing.T) {
	ts, _ := newTestAPI(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed", `{"scenario":`, http.StatusBadRequest},
		{"unknown field", `{"scenario":"ai-vibe","bogus":1}`, http.StatusBadRequest},
		{"no selector", `{}`, http.StatusBadRequest},
		{"too many changes", `{"agent":"senior","nChanges":100001}`, http.StatusBadRequest},
		{"unknown agent", `{"agent":"intern"}`, http.StatusBadRequest},
		{"unknown scenario", `{"scenario":"nope"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/simulate", tt.body)
			var body map[string]string
			decode(t, resp, &body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if body["error"] == "" {
				t.Error("expected error message")
			}
		})
	}
}

type failingStore struct {
	*store.InMemoryResultStore
}

func (failingStore) Save(context.Context, store.Result) (string, error) {
	return "", errors.New("disk full")
}

func TestServer_SimulateStoreFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.Workers = 2
	srv := NewServer(runner.New(cfg, runner.WithStore(failingStore{store.NewInMemoryResultStore()})))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	resp := postJSON(t, ts.URL+"/api/simulate", `{"agent":"senior","nChanges":10,"runs":2,"seed":1}`)
	var body map[string]string
	decode(t, resp, &body)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	if !strings.Contains(body["error"], "disk full") {
		t.Errorf("error = %q, want store failure", body["error"])
	}
}

func TestServer_CompareLimits(t *testing.T) {
	ts, _ := newTestAPI(t)

	resp := postJSON(t, ts.URL+"/api/compare", `{
		"name": "huge",
		"complexity": "simple",
		"nChanges": 100001,
		"runs": 1,
		"agents": [{"id": "a", "engineeringRigor": 0.5}]
	}`)
	var body map[string]string
	decode(t, resp, &body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if !strings.Contains(body["error"], "n_changes") {
		t.Errorf("error = %q, want n_changes limit", body["error"])
	}
}

func TestServer_SimulateWrongMethod(t *testing.T) {
	ts, _ := newTestAPI(t)

	resp, err := http.Get(ts.URL + "/api/simulate")
	if err != nil {
		t.Fatalf("GET /api/simulate: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestServer_Compare(t *testing.T) {
	ts, _ := newTestAPI(t)

	body := `{
		"name": "demo",
		"complexity": "simple",
		"nChanges": 20,
		"runs": 8,
		"seed": 1,
		"visibility": "averages-only",
		"agents": [
			{"id": "ai", "name": "AI", "engineeringRigor": 0.3, "handoffTo": "sr"},
			{"id": "sr", "name": "Senior", "engineeringRigor": 0.8}
		]
	}`
	resp := postJSON(t, ts.URL+"/api/compare", body)
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, b)
	}

	var out runner.ChartResponse
	decode(t, resp, &out)
	if len(out.Series) != 2 {
		t.Fatalf("got %d series, want 2", len(out.Series))
	}
	if len(out.Datasets) != 6 {
		t.Errorf("got %d datasets, want 6", len(out.Datasets))
	}
	if !out.Datasets[0].Hidden {
		t.Error("band datasets should be hidden in averages-only mode")
	}
}

func TestServer_Chart(t *testing.T) {
	ts, _ := newTestAPI(t)

	resp, err := http.Get(ts.URL + "/api/chart?scenarios=ai-vibe,ai-handoff&changes=50&runs=5&seed=2&complexity=medium")
	if err != nil {
		t.Fatalf("GET /api/chart: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, b)
	}
	var out runner.ChartResponse
	decode(t, resp, &out)
	if out.SystemComplexity != 0.5 {
		t.Errorf("SystemComplexity = %v, want 0.5", out.SystemComplexity)
	}
	if out.NChanges != 50 || len(out.Series) != 2 {
		t.Errorf("NChanges = %d, series = %d", out.NChanges, len(out.Series))
	}

	bad, err := http.Get(ts.URL + "/api/chart?runs=many")
	if err != nil {
		t.Fatalf("GET /api/chart: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", bad.StatusCode)
	}
}

func TestServer_History(t *testing.T) {
	ts, _ := newTestAPI(t)

	var created runner.Response
	decode(t, postJSON(t, ts.URL+"/api/simulate", `{"agent":"junior","nChanges":10,"runs":3,"seed":1}`), &created)

	resp, err := http.Get(ts.URL + "/api/history")
	if err != nil {
		t.Fatalf("GET /api/history: %v", err)
	}
	var list struct {
		Results []store.Summary `json:"results"`
		Count   int             `json:"count"`
	}
	decode(t, resp, &list)
	if list.Count != 1 || list.Results[0].ID != created.ID {
		t.Fatalf("list = %+v, want created result", list)
	}

	resp, err = http.Get(ts.URL + "/api/history/" + created.ID)
	if err != nil {
		t.Fatalf("GET /api/history/id: %v", err)
	}
	var got store.Result
	decode(t, resp, &got)
	if got.Scenario != "junior" {
		t.Errorf("Scenario = %q, want junior", got.Scenario)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/history/"+created.ID, nil)
	del, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	del.Body.Close()
	if del.StatusCode != http.StatusOK {
		t.Errorf("DELETE status = %d, want 200", del.StatusCode)
	}

	missing, err := http.Get(ts.URL + "/api/history/" + created.ID)
	if err != nil {
		t.Fatalf("GET deleted: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", missing.StatusCode)
	}
}

func TestServer_HistoryDisabled(t *testing.T) {
	ts := httptest.NewServer(NewServer(runner.New(nil)).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/history")
	if err != nil {
		t.Fatalf("GET /api/history: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestServer_RateLimit(t *testing.T) {
	rec := metrics.NewPrometheusRecorder()
	ts, _ := newTestAPI(t, WithLimiter(ratelimit.PerMinute(1, 1)), WithMetrics(rec))

	body := `{"scenario":"ai-vibe","nChanges":5,"runs":2,"seed":1,"noSave":true}`
	first := postJSON(t, ts.URL+"/api/simulate", body)
	first.Body.Close()
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first status = %d, want 200", first.StatusCode)
	}

	second := postJSON(t, ts.URL+"/api/simulate", body)
	second.Body.Close()
	if second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.StatusCode)
	}
	if second.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	resp.Body.Close()
	if !strings.Contains(buf.String(), `phsim_throttle_total{tool="http"} 1`) {
		t.Error("throttle metric not exported")
	}
}

func TestServer_ListenAndServe(t *testing.T) {
	srv := NewServer(runner.New(nil))
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	waitForServer(t, srv, 2*time.Second)

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	// Cancel context to trigger shutdown
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("unexpected error on shutdown: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down within 3 seconds")
	}
}

// waitForServer polls the server until it's ready or the timeout is reached.
func waitForServer(t *testing.T, srv *Server, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		addr := srv.Addr()
		if addr == "" {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		resp, err := http.Get("http://" + addr + "/")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not start within timeout")
}
