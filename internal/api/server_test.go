package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/talgya/finsim/internal/agents"
	"github.com/talgya/finsim/internal/economy"
	"github.com/talgya/finsim/internal/engine"
	"github.com/talgya/finsim/internal/guru"
	"github.com/talgya/finsim/internal/persistence"
	"github.com/talgya/finsim/internal/runs"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	eng := engine.New(economy.NewGenerator(economy.DefaultCatalog()), guru.DefaultPolicy())
	seq := 0
	svc := runs.NewService(persistence.NewMemoryStore(), eng, agents.DefaultProfiles(),
		runs.WithIDs(func() string { seq++; return fmt.Sprintf("run-%d", seq) }),
	)
	s := &Server{
		Runs:     svc,
		Profiles: agents.DefaultProfiles(),
		AdminKey: "admin-secret",
	}
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		var e map[string]string
		json.NewDecoder(resp.Body).Decode(&e)
		t.Fatalf("expected status %d, got %d (%s)", want, resp.StatusCode, e["error"])
	}
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/healthz", "", nil)
	expectStatus(t, resp, http.StatusOK)
}

func TestProfiles(t *testing.T) {
	_, ts := newTestServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/api/v1/profiles", "", nil)
	expectStatus(t, resp, http.StatusOK)

	var profiles agents.Profiles
	decode(t, resp, &profiles)
	if _, err := profiles.Lookup(agents.ModeHard); err != nil {
		t.Errorf("expected hard profile in response: %v", err)
	}
}

func TestCreateAndGetRun(t *testing.T) {
	_, ts := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/v1/runs", "", runs.StartRequest{Mode: agents.ModeNormal})
	expectStatus(t, resp, http.StatusCreated)
	var created runs.State
	decode(t, resp, &created)
	if created.Run.ID != "run-1" || created.Month.Month != 0 {
		t.Fatalf("unexpected state %+v", created.Run)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/runs/run-1", "", nil)
	expectStatus(t, resp, http.StatusOK)
	var got runs.State
	decode(t, resp, &got)
	if got.Month.Player.Cash != created.Month.Player.Cash {
		t.Errorf("expected cash %d, got %d", created.Month.Player.Cash, got.Month.Player.Cash)
	}

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/runs", "", nil)
	expectStatus(t, resp, http.StatusOK)
	var list []persistence.Run
	decode(t, resp, &list)
	if len(list) != 1 {
		t.Errorf("expected 1 run, got %d", len(list))
	}
}

func TestCreateRunErrors(t *testing.T) {
	_, ts := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/v1/runs", "", runs.StartRequest{Mode: "nightmare"})
	expectStatus(t, resp, http.StatusBadRequest)

	neg := -1
	resp = do(t, http.MethodPost, ts.URL+"/api/v1/runs", "", runs.StartRequest{Horizon: &neg})
	expectStatus(t, resp, http.StatusBadRequest)

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/runs/missing", "", nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func TestDecideAndAdvance(t *testing.T) {
	_, ts := newTestServer(t)
	do(t, http.MethodPost, ts.URL+"/api/v1/runs", "", nil)
	base := ts.URL + "/api/v1/runs/run-1"

	set := agents.DefaultDecisions()
	set.Payment = agents.RevolvingPayment{Kind: agents.PaymentFull}
	resp := do(t, http.MethodPut, base+"/months/0/decisions", "", set)
	expectStatus(t, resp, http.StatusOK)

	resp = do(t, http.MethodPost, base+"/advance", "", nil)
	expectStatus(t, resp, http.StatusBadRequest)

	resp = do(t, http.MethodPost, base+"/advance", "", map[string]int{"month": 0})
	expectStatus(t, resp, http.StatusOK)
	var adv runs.Advanced
	decode(t, resp, &adv)
	if adv.Run.Month != 1 || adv.Month.Month != 1 {
		t.Errorf("expected run at month 1, got %d", adv.Run.Month)
	}
	if len(adv.GuruRationale) == 0 {
		t.Error("expected guru rationale")
	}

	// A retried advance for the same month conflicts.
	resp = do(t, http.MethodPost, base+"/advance", "", map[string]int{"month": 0})
	expectStatus(t, resp, http.StatusConflict)

	resp = do(t, http.MethodPut, base+"/months/0/decisions", "", set)
	expectStatus(t, resp, http.StatusConflict)

	resp = do(t, http.MethodGet, base+"/months/0", "", nil)
	expectStatus(t, resp, http.StatusOK)
	var view runs.MonthView
	decode(t, resp, &view)
	if view.PlayerDecisions == nil || view.PlayerDecisions.Set.Payment.Kind != agents.PaymentFull {
		t.Errorf("expected stored player decisions, got %+v", view.PlayerDecisions)
	}
	if view.GuruDecisions == nil {
		t.Error("expected stored guru decisions")
	}

	resp = do(t, http.MethodGet, base+"/months", "", nil)
	expectStatus(t, resp, http.StatusOK)
	var months []persistence.MonthRecord
	decode(t, resp, &months)
	if len(months) != 2 {
		t.Errorf("expected 2 months, got %d", len(months))
	}

	resp = do(t, http.MethodGet, base+"/months/abc", "", nil)
	expectStatus(t, resp, http.StatusBadRequest)
	resp = do(t, http.MethodGet, base+"/months/9", "", nil)
	expectStatus(t, resp, http.StatusNotFound)

	resp = do(t, http.MethodGet, base+"/replay", "", nil)
	expectStatus(t, resp, http.StatusOK)
	var report runs.ReplayReport
	decode(t, resp, &report)
	if !report.Consistent() {
		t.Errorf("expected consistent replay, got %+v", report.Divergences)
	}
}

func TestAutopilotRequiresAdmin(t *testing.T) {
	_, ts := newTestServer(t)
	do(t, http.MethodPost, ts.URL+"/api/v1/runs", "", nil)
	url := ts.URL + "/api/v1/runs/run-1/autopilot"
	body := map[string]bool{"enabled": true}

	expectStatus(t, do(t, http.MethodPost, url, "", body), http.StatusUnauthorized)
	expectStatus(t, do(t, http.MethodPost, url, "wrong", body), http.StatusUnauthorized)

	resp := do(t, http.MethodPost, url, "admin-secret", body)
	expectStatus(t, resp, http.StatusOK)
	var run persistence.Run
	decode(t, resp, &run)
	if !run.Autopilot {
		t.Error("expected autopilot enabled")
	}
}

func TestAutopilotDisabledWithoutKey(t *testing.T) {
	s, ts := newTestServer(t)
	s.AdminKey = ""
	resp := do(t, http.MethodPost, ts.URL+"/api/v1/runs/run-1/autopilot", "anything", map[string]bool{"enabled": true})
	expectStatus(t, resp, http.StatusForbidden)
}

func TestCreateRateLimited(t *testing.T) {
	eng := engine.New(economy.NewGenerator(economy.DefaultCatalog()), guru.DefaultPolicy())
	s := &Server{
		Runs:          runs.NewService(persistence.NewMemoryStore(), eng, agents.DefaultProfiles()),
		Profiles:      agents.DefaultProfiles(),
		CreateLimiter: NewRateLimiter(1, time.Hour),
	}
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	expectStatus(t, do(t, http.MethodPost, ts.URL+"/api/v1/runs", "", nil), http.StatusCreated)
	resp := do(t, http.MethodPost, ts.URL+"/api/v1/runs", "", nil)
	expectStatus(t, resp, http.StatusTooManyRequests)
	if resp.Header.Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	// Reads are not limited.
	expectStatus(t, do(t, http.MethodGet, ts.URL+"/api/v1/runs", "", nil), http.StatusOK)
}

func TestStreamAuth(t *testing.T) {
	s, ts := newTestServer(t)
	expectStatus(t, do(t, http.MethodGet, ts.URL+"/api/v1/stream", "", nil), http.StatusForbidden)

	s.RelayKey = "relay"
	s.Hub = NewHub()
	go s.Hub.Run()
	defer s.Hub.Close()
	expectStatus(t, do(t, http.MethodGet, ts.URL+"/api/v1/stream", "nope", nil), http.StatusUnauthorized)
}

func TestStreamDeliversAdvancedMonths(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	eng := engine.New(economy.NewGenerator(economy.DefaultCatalog()), guru.DefaultPolicy())
	svc := runs.NewService(persistence.NewMemoryStore(), eng, agents.DefaultProfiles(), runs.WithNotifier(hub))
	s := &Server{Runs: svc, Hub: hub, Profiles: agents.DefaultProfiles(), RelayKey: "relay"}
	ts := httptest.NewServer(s.Routes())
	defer ts.Close()

	st, err := svc.Start(context.Background(), runs.StartRequest{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/stream?run="+st.Run.ID, nil)
	req.Header.Set("Authorization", "Bearer relay")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	// The subscription exists once headers are flushed.
	if _, err := svc.Advance(ctx, st.Run.ID, 0, runs.TriggerAPI); err != nil {
		t.Fatalf("advance: %v", err)
	}

	buf := make([]byte, 4096)
	var got strings.Builder
	for !strings.Contains(got.String(), "\n\n") {
		n, err := resp.Body.Read(buf)
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		got.Write(buf[:n])
	}
	if !strings.HasPrefix(got.String(), "event: month_advanced\ndata: ") {
		t.Fatalf("unexpected SSE frame %q", got.String())
	}
	var msg MonthMessage
	data := strings.TrimSuffix(strings.TrimPrefix(got.String(), "event: month_advanced\ndata: "), "\n\n")
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if msg.RunID != st.Run.ID || msg.Month != 1 {
		t.Errorf("unexpected message %+v", msg)
	}
}
