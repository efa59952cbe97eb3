package hpod

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tunebench/hypertune/pkg/logger"
	"github.com/tunebench/hypertune/pkg/utils"
)

// NotificationPayload is the JSON body posted to the callback URL when an
// experiment reaches a terminal state.
type NotificationPayload struct {
	ExperimentID    string           `json:"experiment_id"`
	Status          ExperimentStatus `json:"status"`
	IncumbentKey    string           `json:"incumbent_key,omitempty"`
	IncumbentCost   float64          `json:"incumbent_cost,omitempty"`
	TrialsRun       int              `json:"trials_run,omitempty"`
	CreatedAtUnixMs int64            `json:"created_at_unix_ms"`
	StartedAtUnixMs int64            `json:"started_at_unix_ms,omitempty"`
	EndedAtUnixMs   int64            `json:"ended_at_unix_ms,omitempty"`
	Error           string           `json:"error,omitempty"`
	Timestamp       int64            `json:"timestamp"` // When notification was sent
}

// Notifier posts completion callbacks with retries
type Notifier struct {
	httpClient *http.Client
	maxRetries int
	backoff    utils.BackoffStrategy
}

// NewNotifier creates a notifier with exponential backoff between retries
func NewNotifier() *Notifier {
	return &Notifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: 3,
		backoff:    utils.NewExponentialBackoff(time.Second, 8*time.Second, 2.0, false),
	}
}

// Notify sends a notification to the callback URL asynchronously.
// This method returns immediately and performs the delivery in a goroutine.
func (n *Notifier) Notify(callbackURL, callbackSecret string, exp *Experiment) {
	if callbackURL == "" {
		return
	}
	if exp == nil {
		logger.Warn("cannot notify: no experiment state", "callback_url", callbackURL)
		return
	}

	// Replace {experiment_id} template in the callback URL if present
	finalURL := strings.ReplaceAll(callbackURL, "{experiment_id}", exp.ID)

	payload := NotificationPayload{
		ExperimentID:    exp.ID,
		Status:          exp.Status,
		IncumbentKey:    exp.IncumbentKey,
		IncumbentCost:   exp.IncumbentCost,
		TrialsRun:       exp.TrialsRun,
		CreatedAtUnixMs: exp.CreatedAtUnixMs,
		StartedAtUnixMs: exp.StartedAtUnixMs,
		EndedAtUnixMs:   exp.EndedAtUnixMs,
		Error:           exp.Error,
		Timestamp:       time.Now().UTC().UnixMilli(),
	}

	go n.send(finalURL, callbackSecret, payload)
}

func (n *Notifier) send(callbackURL, callbackSecret string, payload NotificationPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal notification payload",
			"callback_url", callbackURL,
			"experiment_id", payload.ExperimentID,
			"error", err)
		return
	}

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		if attempt > 0 {
			delay := n.backoff.NextDelay(attempt - 1)
			logger.Debug("retrying notification",
				"callback_url", callbackURL,
				"experiment_id", payload.ExperimentID,
				"attempt", attempt,
				"delay", delay)
			time.Sleep(delay)
		}

		req, err := http.NewRequest(http.MethodPost, callbackURL, bytes.NewReader(body))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "hypertune/1.0")
		if callbackSecret != "" {
			req.Header.Set("X-Hypertune-Callback-Secret", callbackSecret)
		}

		resp, err := n.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			logger.Warn("notification attempt failed",
				"callback_url", callbackURL,
				"experiment_id", payload.ExperimentID,
				"attempt", attempt+1,
				"error", err)
			continue
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		preview := string(respBody)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			logger.Info("notification sent",
				"experiment_id", payload.ExperimentID,
				"status", payload.Status,
				"status_code", resp.StatusCode)
			return
		}

		lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		logger.Warn("notification returned non-2xx status",
			"callback_url", callbackURL,
			"experiment_id", payload.ExperimentID,
			"status_code", resp.StatusCode,
			"response_body", preview,
			"attempt", attempt+1)
	}

	logger.Error("failed to send notification after retries",
		"callback_url", callbackURL,
		"experiment_id", payload.ExperimentID,
		"status", payload.Status,
		"max_retries", n.maxRetries,
		"last_error", lastErr)
}
