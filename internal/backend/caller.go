// Package backend talks to the remote record service that owns onboarding
// records, checklist fields, notes and ION data.
package backend

import (
	"bytes"
	"context"
	stdjson "encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Caller abstracts action calls against the record service for testability.
type Caller interface {
	Call(ctx context.Context, action string, params map[string]any) (stdjson.RawMessage, error)
}

// Config holds record service connection settings.
type Config struct {
	URL     string
	Timeout time.Duration
	RPS     float64 // <= 0 disables outbound rate limiting
	Burst   int
}

// DefaultConfig returns conservative defaults for the record service quota.
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
		RPS:     5,
		Burst:   10,
	}
}

// envelope is the response wrapper every action returns.
type envelope struct {
	OK    bool                `json:"ok"`
	Data  stdjson.RawMessage `json:"data"`
	Error string              `json:"error"`
	Code  string              `json:"code"`
}

// HTTPCaller implements Caller by posting JSON to the service proxy.
type HTTPCaller struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	seq     atomic.Int64
}

// NewHTTPCaller creates a caller targeting cfg.URL.
func NewHTTPCaller(cfg Config, logger *slog.Logger) *HTTPCaller {
	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
	}
	return &HTTPCaller{
		url:     cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With("component", "backend"),
	}
}

// Call posts {"action": action, ...params} and returns the envelope's data.
func (c *HTTPCaller) Call(ctx context.Context, action string, params map[string]any) (stdjson.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("call %s: rate limit: %w", action, err)
	}

	payload := make(map[string]any, len(params)+1)
	for k, v := range params {
		payload[k] = v
	}
	payload["action"] = action

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", action, err)
	}

	seq := c.seq.Add(1)
	c.logger.Debug("backend call", "action", action, "seq", seq)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", action, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", action, err)
	}

	c.logger.Debug("backend response",
		"action", action,
		"seq", seq,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Action: action, StatusCode: resp.StatusCode, Body: truncate(string(respBody), 512)}
	}

	jsonBody, err := unwrapHTML(respBody)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", action, err)
	}

	var env envelope
	if err := json.Unmarshal(jsonBody, &env); err != nil {
		return nil, fmt.Errorf("unmarshal %s response: %w", action, err)
	}
	if !env.OK {
		return nil, &RemoteError{Action: action, Code: env.Code, Message: env.Error}
	}
	return env.Data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
