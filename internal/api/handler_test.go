package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sterlixo/chilli-checker/internal/api"
	"github.com/sterlixo/chilli-checker/internal/batch"
	"github.com/sterlixo/chilli-checker/internal/domain"
	"github.com/sterlixo/chilli-checker/internal/generator"
	"github.com/sterlixo/chilli-checker/internal/rules"
	"github.com/sterlixo/chilli-checker/internal/scoring"
	"github.com/sterlixo/chilli-checker/internal/verify"
	"github.com/sterlixo/chilli-checker/internal/webhook"
)

// ─── Test server setup ────────────────────────────────────────────────────────

type serverOpts struct {
	policy   batch.Policy
	verifier verify.Verifier
}

func newTestServer(t *testing.T, o serverOpts) (*httptest.Server, *batch.Runner) {
	t.Helper()
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	log := zerolog.Nop()
	runner := batch.New(o.policy, log)

	deps := api.Deps{
		Engine:      scoring.New(rules.Standard(), scoring.WithClock(func() time.Time { return now })),
		Runner:      runner,
		Generator:   generator.NewSeeded(1),
		Notifier:    webhook.New(nil, log),
		Limits:      api.Limits{MaxBatchLines: 20, MaxGenerate: 50},
		CORSOrigins: []string{"https://app.example"},
		Log:         log,
	}
	if o.verifier != nil {
		deps.Verifier = verify.NewGuard(o.verifier, time.Second, log)
	}
	return httptest.NewServer(api.NewRouter(api.NewHandler(deps))), runner
}

func post(t *testing.T, srv *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func get(t *testing.T, srv *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func del(t *testing.T, srv *httptest.Server, path string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+path, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE %s: %v", path, err)
	}
	return resp
}

func decodeData(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var env map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	d, ok := env["data"].(map[string]any)
	if !ok {
		t.Fatalf("response has no 'data' key: %v", env)
	}
	return d
}

func decodeError(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var env map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	e, ok := env["error"].(map[string]any)
	if !ok {
		t.Fatalf("response has no 'error' key: %v", env)
	}
	return e
}

// ─── Health ───────────────────────────────────────────────────────────────────

func TestHealth_Returns200(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	defer srv.Close()

	resp := get(t, srv, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestCORS_PreflightFromAllowedOrigin(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/classify", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("expected allowed origin echoed, got %q", got)
	}
}

// ─── POST /api/v1/classify ────────────────────────────────────────────────────

func TestClassify_KnownTestCard_ReturnsLive(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	defer srv.Close()

	resp := post(t, srv, "/api/v1/classify", map[string]any{"card_data": "4242424242424242|12|2030|123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	d := decodeData(t, resp)
	if d["status"] != "LIVE" || d["network"] != "visa" || d["last4"] != "4242" {
		t.Errorf("unexpected result %v", d)
	}
	if d["confidence"].(float64) != 100 || d["score"].(float64) != 160 {
		t.Errorf("expected confidence 100 and score 160, got %v / %v", d["confidence"], d["score"])
	}
}

func TestClassify_MissingCardData_Returns400(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	defer srv.Close()

	resp := post(t, srv, "/api/v1/classify", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if e := decodeError(t, resp); e["code"] != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %v", e["code"])
	}
}

func TestClassify_InvalidJSON_Returns400(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/classify", "application/json", bytes.NewBufferString("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if e := decodeError(t, resp); e["code"] != "INVALID_JSON" {
		t.Errorf("expected INVALID_JSON, got %v", e["code"])
	}
}

// ─── POST /api/v1/batches ─────────────────────────────────────────────────────

func TestRunBatch_Local(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	defer srv.Close()

	input := "4242424242424242|12|2030|123\n\n1234567890123456|12|2030|123\r\n4242424242424242|01|2000|123\n"
	resp := post(t, srv, "/api/v1/batches/", map[string]any{"input": input})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	d := decodeData(t, resp)

	b := d["batch"].(map[string]any)
	if b["status"] != "completed" || b["processed"].(float64) != 3 || b["total"].(float64) != 3 {
		t.Errorf("unexpected batch %v", b)
	}
	if b["live"].(float64) != 1 || b["dead"].(float64) != 2 {
		t.Errorf("expected 1 live / 2 dead, got %v / %v", b["live"], b["dead"])
	}

	results := d["results"].([]any)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, raw := range results {
		if idx := raw.(map[string]any)["index"].(float64); int(idx) != i {
			t.Errorf("result %d has index %v", i, idx)
		}
	}
	if results[0].(map[string]any)["code"].(float64) != 1 {
		t.Errorf("expected code 1 for the live record, got %v", results[0])
	}
}

func TestRunBatch_VerifiedWithoutVerifier_Returns400(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	defer srv.Close()

	resp := post(t, srv, "/api/v1/batches/", map[string]any{"lines": []string{"4242424242424242|12|2030|123"}, "strategy": "verified"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if e := decodeError(t, resp); e["code"] != "VERIFIER_UNAVAILABLE" {
		t.Errorf("expected VERIFIER_UNAVAILABLE, got %v", e["code"])
	}
}

func TestRunBatch_VerifiedUsesStub(t *testing.T) {
	stub := verify.VerifierFunc(func(ctx context.Context, rec domain.CardRecord) (verify.Outcome, error) {
		return verify.Outcome{Status: verify.StatusError, Message: "upstream timeout"}, nil
	})
	srv, _ := newTestServer(t, serverOpts{verifier: stub})
	defer srv.Close()

	resp := post(t, srv, "/api/v1/batches/", map[string]any{"lines": []string{"4242424242424242|12|2030|123"}, "strategy": "verified"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	d := decodeData(t, resp)
	res := d["results"].([]any)[0].(map[string]any)
	if res["status"] != "UNKNOWN" || res["verified"] != true || res["message"] != "upstream timeout" {
		t.Errorf("unexpected verified result %v", res)
	}
	if d["batch"].(map[string]any)["unknown"].(float64) != 1 {
		t.Errorf("expected 1 unknown, got %v", d["batch"])
	}
}

func TestRunBatch_UnknownStrategy_Returns400(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	defer srv.Close()

	resp := post(t, srv, "/api/v1/batches/", map[string]any{"lines": []string{"x"}, "strategy": "remote"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRunBatch_TooManyLines_Returns400(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	defer srv.Close()

	lines := make([]string, 21)
	resp := post(t, srv, "/api/v1/batches/", map[string]any{"lines": lines})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if e := decodeError(t, resp); e["code"] != "TOO_LARGE" {
		t.Errorf("expected TOO_LARGE, got %v", e["code"])
	}
}

func TestRunBatch_ConcurrentStartConflictsAndStopAborts(t *testing.T) {
	srv, runner := newTestServer(t, serverOpts{policy: batch.Policy{LocalDelay: time.Hour}})
	defer srv.Close()

	lines := []string{"4242424242424242|12|2030|123", "4242424242424242|12|2030|123", "4242424242424242|12|2030|123"}
	first := make(chan *http.Response, 1)
	go func() {
		b, _ := json.Marshal(map[string]any{"lines": lines})
		resp, err := http.Post(srv.URL+"/api/v1/batches/", "application/json", bytes.NewReader(b))
		if err != nil {
			first <- nil
			return
		}
		first <- resp
	}()

	deadline := time.Now().Add(2 * time.Second)
	for runner.State().ProcessedCount < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	resp := post(t, srv, "/api/v1/batches/", map[string]any{"lines": lines})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 while running, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	cur := decodeData(t, get(t, srv, "/api/v1/batches/current"))
	if cur["status"] != "running" {
		t.Errorf("expected running state, got %v", cur)
	}

	if resp := del(t, srv, "/api/v1/batches/current"); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on stop, got %d", resp.StatusCode)
	}

	select {
	case resp := <-first:
		if resp == nil {
			t.Fatal("first batch request failed")
		}
		d := decodeData(t, resp)
		b := d["batch"].(map[string]any)
		if b["status"] != "aborted" || b["processed"].(float64) != 1 {
			t.Errorf("expected abort after one record, got %v", b)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("first batch did not finish after stop")
	}
}

func TestStopBatch_WhenIdle_Returns404(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	defer srv.Close()

	if resp := del(t, srv, "/api/v1/batches/current"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCurrentBatch_Idle(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	defer srv.Close()

	d := decodeData(t, get(t, srv, "/api/v1/batches/current"))
	if d["status"] != "idle" {
		t.Errorf("expected idle, got %v", d["status"])
	}
}

// ─── POST /api/v1/generate ────────────────────────────────────────────────────

func TestGenerate_ReturnsRecords(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	defer srv.Close()

	resp := post(t, srv, "/api/v1/generate", map[string]any{"prefix": "453201", "count": 3, "month": 6, "year": 2030})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	records := decodeData(t, resp)["records"].([]any)
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for _, r := range records {
		if _, err := domain.ParseRecord(r.(string)); err != nil {
			t.Errorf("generated record %q does not parse: %v", r, err)
		}
	}
}

func TestGenerate_Validation(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	defer srv.Close()

	cases := []map[string]any{
		{"prefix": "4532", "count": 1},
		{"prefix": "453201", "count": 0},
		{"prefix": "453201", "count": 51},
		{"prefix": "453201", "count": 1, "month": 13},
		{"prefix": "453201", "count": 1, "cvv": "12a"},
	}
	for _, body := range cases {
		resp := post(t, srv, "/api/v1/generate", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%v: expected 400, got %d", body, resp.StatusCode)
		}
		resp.Body.Close()
	}
}
