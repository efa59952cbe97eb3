package hpod

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/tunebench/hypertune/pkg/utils"
)

func testExperiment() *Experiment {
	return &Experiment{
		ID:              "exp-1",
		Objective:       "quadratic",
		Status:          StatusCompleted,
		CreatedAtUnixMs: 1000,
		StartedAtUnixMs: 2000,
		EndedAtUnixMs:   3000,
		IncumbentKey:    "x=2",
		IncumbentCost:   4,
		TrialsRun:       12,
	}
}

// fastNotifier retries without real delays
func fastNotifier() *Notifier {
	return &Notifier{
		httpClient: &http.Client{Timeout: time.Second},
		maxRetries: 3,
		backoff:    utils.NewConstantBackoff(time.Millisecond),
	}
}

func TestNotifierDeliversPayload(t *testing.T) {
	var mu sync.Mutex
	var received NotificationPayload
	var secret string
	done := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		secret = r.Header.Get("X-Hypertune-Callback-Secret")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		close(done)
	}))
	defer srv.Close()

	n := fastNotifier()
	n.Notify(srv.URL, "s3cret", testExperiment())

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("notification was not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	if received.ExperimentID != "exp-1" || received.Status != StatusCompleted {
		t.Fatalf("unexpected payload: %+v", received)
	}
	if received.IncumbentKey != "x=2" || received.IncumbentCost != 4 || received.TrialsRun != 12 {
		t.Fatalf("expected result fields in payload: %+v", received)
	}
	if received.Timestamp == 0 {
		t.Fatalf("expected a send timestamp")
	}
	if secret != "s3cret" {
		t.Fatalf("expected callback secret header, got %q", secret)
	}
}

func TestNotifierRetriesOnServerError(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		close(done)
	}))
	defer srv.Close()

	n := fastNotifier()
	n.Notify(srv.URL, "", testExperiment())

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("notification retries did not succeed")
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestNotifierTemplatesExperimentID(t *testing.T) {
	var mu sync.Mutex
	var path string
	done := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		path = r.URL.Path
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		close(done)
	}))
	defer srv.Close()

	n := fastNotifier()
	n.Notify(srv.URL+"/hooks/{experiment_id}", "", testExperiment())

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("notification was not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	if path != "/hooks/exp-1" {
		t.Fatalf("expected templated path, got %q", path)
	}
}

func TestNotifierSkipsEmptyURL(t *testing.T) {
	n := fastNotifier()
	// Must not panic or block
	n.Notify("", "secret", testExperiment())
	n.Notify("http://127.0.0.1:0/unreachable", "", nil)
}
