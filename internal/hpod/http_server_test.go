package hpod

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T) (*HTTPServer, *ExperimentStore) {
	t.Helper()
	registry := NewRegistry()
	if err := registry.Register(NewFuncProvider("quadratic", quadraticSpace, quadraticTarget)); err != nil {
		t.Fatalf("register: %v", err)
	}
	store := NewExperimentStore()
	executor := NewExecutor(store, registry, nil)
	return NewHTTPServer(store, registry, executor), store
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rr.Body.String())
	}
	return out
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)
	rr := doJSON(t, server.Handler(), http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestListObjectives(t *testing.T) {
	server, _ := newTestServer(t)
	rr := doJSON(t, server.Handler(), http.MethodGet, "/v1/objectives", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	objectives, ok := body["objectives"].([]any)
	if !ok || len(objectives) != 1 || objectives[0] != "quadratic" {
		t.Fatalf("unexpected objectives: %v", body)
	}

	rr = doJSON(t, server.Handler(), http.MethodPost, "/v1/objectives", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestCreateExperimentValidation(t *testing.T) {
	server, _ := newTestServer(t)

	cases := []struct {
		name string
		body any
		want int
	}{
		{"no input", map[string]any{}, http.StatusBadRequest},
		{"no objective", map[string]any{"input": map[string]any{"scenario_yaml": fastScenarioYAML}}, http.StatusBadRequest},
		{"unknown objective", map[string]any{"input": map[string]any{"objective": "nope", "scenario_yaml": fastScenarioYAML}}, http.StatusBadRequest},
		{"no scenario", map[string]any{"input": map[string]any{"objective": "quadratic"}}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, server.Handler(), http.MethodPost, "/v1/experiments", tc.body)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rr.Code, rr.Body.String())
			}
		})
	}

	// Malformed JSON
	req := httptest.NewRequest(http.MethodPost, "/v1/experiments", bytes.NewBufferString("{broken"))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", rr.Code)
	}
}

func TestExperimentLifecycleOverHTTP(t *testing.T) {
	server, store := newTestServer(t)
	handler := server.Handler()

	rr := doJSON(t, handler, http.MethodPost, "/v1/experiments", map[string]any{
		"experiment_id": "exp-http",
		"input": map[string]any{
			"objective":     "quadratic",
			"scenario_yaml": fastScenarioYAML,
			"seed":          42,
		},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	expBody, ok := body["experiment"].(map[string]any)
	if !ok || expBody["id"] != "exp-http" {
		t.Fatalf("unexpected create response: %v", body)
	}

	// Duplicate ID conflicts
	rr = doJSON(t, handler, http.MethodPost, "/v1/experiments", map[string]any{
		"experiment_id": "exp-http",
		"input": map[string]any{
			"objective":     "quadratic",
			"scenario_yaml": fastScenarioYAML,
		},
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}

	exp := waitForTerminal(t, store, "exp-http")
	if exp.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", exp.Status, exp.Error)
	}

	// GET by ID
	rr = doJSON(t, handler, http.MethodGet, "/v1/experiments/exp-http", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body = decodeBody(t, rr)
	expBody = body["experiment"].(map[string]any)
	if expBody["status"] != string(StatusCompleted) {
		t.Fatalf("unexpected status in response: %v", expBody["status"])
	}

	// List
	rr = doJSON(t, handler, http.MethodGet, "/v1/experiments?limit=10", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body = decodeBody(t, rr)
	if count, _ := body["count"].(float64); count != 1 {
		t.Fatalf("expected 1 experiment, got %v", body["count"])
	}

	// Trials
	rr = doJSON(t, handler, http.MethodGet, "/v1/experiments/exp-http/trials?limit=5", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body = decodeBody(t, rr)
	trials, ok := body["trials"].([]any)
	if !ok || len(trials) == 0 {
		t.Fatalf("expected trials in response: %v", body)
	}

	// Incumbent trajectory
	rr = doJSON(t, handler, http.MethodGet, "/v1/experiments/exp-http/incumbents", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body = decodeBody(t, rr)
	incumbents, ok := body["incumbents"].([]any)
	if !ok || len(incumbents) == 0 {
		t.Fatalf("expected incumbents in response: %v", body)
	}
}

func TestGetExperimentNotFound(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.Handler()

	for _, path := range []string{
		"/v1/experiments/missing",
		"/v1/experiments/missing/trials",
		"/v1/experiments/missing/incumbents",
		"/v1/experiments/missing/events",
	} {
		rr := doJSON(t, handler, http.MethodGet, path, nil)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for %s, got %d", path, rr.Code)
		}
	}

	rr := doJSON(t, handler, http.MethodPost, "/v1/experiments/missing:stop", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for stop, got %d", rr.Code)
	}
}

func TestStopExperimentOverHTTP(t *testing.T) {
	server, store := newTestServer(t)
	handler := server.Handler()

	rr := doJSON(t, handler, http.MethodPost, "/v1/experiments", map[string]any{
		"experiment_id": "exp-stop",
		"input": map[string]any{
			"objective":     "quadratic",
			"scenario_yaml": fastScenarioYAML,
			"seed":          1,
		},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, handler, http.MethodPost, "/v1/experiments/exp-stop:stop", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	exp := waitForTerminal(t, store, "exp-stop")
	if exp.Status != StatusCancelled && exp.Status != StatusCompleted {
		t.Fatalf("unexpected terminal status %s", exp.Status)
	}
}

func TestEventsStream(t *testing.T) {
	server, store := newTestServer(t)
	handler := server.Handler()

	rr := doJSON(t, handler, http.MethodPost, "/v1/experiments", map[string]any{
		"experiment_id": "exp-sse",
		"input": map[string]any{
			"objective":     "quadratic",
			"scenario_yaml": fastScenarioYAML,
			"seed":          42,
		},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	waitForTerminal(t, store, "exp-sse")

	req := httptest.NewRequest(http.MethodGet, "/v1/experiments/exp-sse/events?interval_ms=10", nil)
	recorder := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.ServeHTTP(recorder, req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("SSE handler did not terminate for a finished experiment")
	}

	if got := recorder.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type %q", got)
	}
	out := recorder.Body.String()
	if !bytes.Contains([]byte(out), []byte("event: status_change")) {
		t.Fatalf("expected a status_change event, got: %s", out)
	}
	if !bytes.Contains([]byte(out), []byte("event: complete")) {
		t.Fatalf("expected a complete event, got: %s", out)
	}
}
