// Package openai is the model invoker: a small chat-completions REST client
// with a fixed retry budget, a fixed backoff schedule, and an automatic
// downgrade out of JSON response mode when the API rejects it.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"reel-monitor-go/internal/metrics"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"

	temperature = 0.2
	maxTokens   = 1000
	maxAttempts = 3
)

// backoffSchedule is indexed by attempt number; attempts past the end reuse
// the last entry.
var backoffSchedule = []time.Duration{
	500 * time.Millisecond,
	1 * time.Second,
	2 * time.Second,
}

// ErrAuth means the credential was rejected. Retrying cannot succeed, so
// the invoker aborts immediately when it sees this.
var ErrAuth = errors.New("openai: authentication failed")

// ErrExhausted means every attempt failed.
var ErrExhausted = errors.New("openai: all attempts failed")

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// Client calls the chat-completions endpoint. Calls are blocking; the only
// timeout is the HTTP client's own, and retries add at most the bounded
// backoff schedule. It is safe for concurrent use.
type Client struct {
	baseURL      string
	model        string
	systemPrompt string
	httpClient   *http.Client
	registry     *metrics.Registry
	log          *logrus.Entry

	// sleep is swapped out in tests to assert the backoff schedule.
	sleep func(time.Duration)
}

func NewClient(model, systemPrompt string, registry *metrics.Registry, log *logrus.Entry) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		baseURL:      defaultBaseURL,
		model:        model,
		systemPrompt: systemPrompt,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		registry:     registry,
		log:          log.WithField("component", "openai"),
		sleep:        time.Sleep,
	}
}

// Invoke sends one classification request with up to maxAttempts tries.
//
// On success it returns the trimmed response text, the latency of the
// successful attempt only, and the reported token usage (0 if the API did
// not report usage). On failure it returns the latency accumulated across
// the failed attempts. Every attempt, successful or not, is recorded in the
// metrics registry.
func (c *Client) Invoke(ctx context.Context, apiKey, userMessage string) (string, float64, int, error) {
	useJSONMode := true
	accumulated := 0.0

	for attempt := 0; attempt < maxAttempts; attempt++ {
		t0 := time.Now()
		text, tokens, status, body, err := c.attempt(ctx, apiKey, userMessage, useJSONMode)
		elapsed := time.Since(t0).Seconds()
		c.registry.Record(elapsed)

		if err == nil {
			latency := round2(elapsed)
			stats := c.registry.Snapshot()
			c.log.WithFields(logrus.Fields{
				"latency_s":   latency,
				"tokens":      tokens,
				"attempt":     attempt + 1,
				"total_calls": stats.TotalCalls,
				"avg_latency": stats.AvgLatency,
			}).Info("api ok")
			return strings.TrimSpace(text), latency, tokens, nil
		}

		accumulated += elapsed

		if status == http.StatusUnauthorized {
			c.log.WithField("error_tag", "api_auth_error").Error("api key invalid or expired")
			return "", round2(accumulated), 0, ErrAuth
		}

		// Capability downgrade: retry right away without response_format.
		if useJSONMode && status == http.StatusBadRequest && strings.Contains(body, "response_format") {
			c.log.WithField("error_tag", "api_json_mode_unsupported").
				Warn("dropping response_format, relying on JSON extraction")
			useJSONMode = false
			continue
		}

		tag := "api_error"
		if status == http.StatusTooManyRequests {
			tag = "api_rate_limit"
		}

		if attempt < maxAttempts-1 {
			wait := backoffSchedule[minInt(attempt, len(backoffSchedule)-1)]
			c.log.WithError(err).WithFields(logrus.Fields{
				"error_tag": tag,
				"attempt":   attempt + 1,
				"max":       maxAttempts,
				"wait_s":    wait.Seconds(),
			}).Warn("api attempt failed")
			c.sleep(wait)
		} else {
			c.log.WithError(err).WithFields(logrus.Fields{
				"error_tag": "api_failed",
				"attempts":  maxAttempts,
			}).Error("api call failed after all attempts")
			return "", round2(accumulated), 0, fmt.Errorf("%w: %v", ErrExhausted, err)
		}
	}

	return "", round2(accumulated), 0, ErrExhausted
}

// attempt performs one HTTP round trip. status is 0 on transport errors;
// body carries the raw response for error-signature matching.
func (c *Client) attempt(ctx context.Context, apiKey, userMessage string, useJSONMode bool) (text string, tokens, status int, body string, err error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: userMessage},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if useJSONMode {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", 0, 0, "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", 0, 0, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, 0, "", fmt.Errorf("transport: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, resp.StatusCode, "", fmt.Errorf("read response: %w", err)
	}
	body = string(raw)

	if resp.StatusCode != http.StatusOK {
		return "", 0, resp.StatusCode, body, fmt.Errorf("status %d", resp.StatusCode)
	}

	content := gjson.GetBytes(raw, "choices.0.message.content").String()
	if strings.TrimSpace(content) == "" {
		return "", 0, resp.StatusCode, body, errors.New("empty completion")
	}
	tokens = int(gjson.GetBytes(raw, "usage.total_tokens").Int())

	return content, tokens, resp.StatusCode, body, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
