package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"renttalk-tenant-portal/shared/config"
	"renttalk-tenant-portal/shared/metricsx"
	"renttalk-tenant-portal/shared/observability"
)

var ErrCircuitOpen = errors.New("assistant circuit open")

// Client asks a remote assistant service for a landlord reply.
type Client struct {
	baseURL  string
	timeout  time.Duration
	retryMax int
	http     *http.Client
	breaker  *circuitBreaker
}

type ReplyRequest struct {
	TenantID string `json:"tenant_id"`
	Message  string `json:"message"`
}

type ReplyResponse struct {
	Reply string `json:"reply"`
}

func New(cfg config.Config) (*Client, error) {
	if cfg.AssistantURL == "" {
		return nil, errors.New("ASSISTANT_URL is required")
	}
	timeout := time.Duration(cfg.AssistantTimeoutMS) * time.Millisecond
	return &Client{
		baseURL:  strings.TrimRight(cfg.AssistantURL, "/"),
		timeout:  timeout,
		retryMax: cfg.AssistantRetryMax,
		http:     observability.HTTPClient(timeout),
		breaker:  newCircuitBreaker(5, 30*time.Second),
	}, nil
}

func (c *Client) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	if c == nil || c.http == nil {
		return "", errors.New("assistant client not initialized")
	}
	if c.breaker.Open() {
		return "", ErrCircuitOpen
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		out, retry, err := c.do(ctx, body)
		if err == nil {
			c.breaker.Success()
			metricsx.ObserveAssistantLatency(time.Since(start))
			return out.Reply, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (c *Client) do(ctx context.Context, body []byte) (ReplyResponse, bool, error) {
	reqHTTP, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/assistant/reply", bytes.NewReader(body))
	if err != nil {
		return ReplyResponse{}, false, err
	}
	reqHTTP.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(reqHTTP)
	if err != nil {
		c.breaker.Fail()
		return ReplyResponse{}, true, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		c.breaker.Fail()
		return ReplyResponse{}, true, fmt.Errorf("assistant service error: %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return ReplyResponse{}, false, fmt.Errorf("assistant request failed: %d", resp.StatusCode)
	}
	var out ReplyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.breaker.Fail()
		return ReplyResponse{}, false, err
	}
	if strings.TrimSpace(out.Reply) == "" {
		return ReplyResponse{}, false, errors.New("assistant returned an empty reply")
	}
	return out, false, nil
}

type circuitBreaker struct {
	mu            sync.Mutex
	failures      int
	openUntil     time.Time
	threshold     int
	resetDuration time.Duration
}

func newCircuitBreaker(threshold int, reset time.Duration) *circuitBreaker {
	return &circuitBreaker{threshold: threshold, resetDuration: reset}
}

func (b *circuitBreaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openUntil.IsZero() {
		return false
	}
	if time.Now().After(b.openUntil) {
		b.openUntil = time.Time{}
		b.failures = 0
		return false
	}
	return true
}

func (b *circuitBreaker) Fail() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.threshold {
		b.openUntil = time.Now().Add(b.resetDuration)
	}
}

func (b *circuitBreaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.openUntil = time.Time{}
}
