package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL targets the OpenRouter chat-completions endpoint.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	defaultMaxAttempts = 3
	defaultRetryDelay  = 1 * time.Second
	maxBackoff        = 30 * time.Second
)

// Config configures a Client. Exactly one of APIKey (BYOK mode) or AuthToken
// (hosted mode) must be set.
type Config struct {
	APIKey     string
	AuthToken  string
	BaseURL    string
	Referer    string // sent as HTTP-Referer
	Title      string // sent as X-Title
	// MaxAttempts is the total attempt budget including the first request
	// (default 3). MaxAttempts of 1 disables retries.
	MaxAttempts int
	RetryDelay  time.Duration
	HTTPClient *http.Client
}

// Client performs chat-completion requests against an OpenAI-compatible wire
// protocol, with retry on transient failures and prompt cancellation.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a provider client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{cfg: cfg, http: hc}
}

// Chat performs a non-streaming chat completion.
func (c *Client) Chat(ctx context.Context, req Request) (*Response, error) {
	req.Stream = false
	var resp *Response
	err := c.withRetry(ctx, func(ctx context.Context) error {
		httpResp, err := c.post(ctx, "/chat/completions", req)
		if err != nil {
			return err
		}
		defer httpResp.Body.Close()
		if err := checkStatus(httpResp); err != nil {
			return err
		}
		var out Response
		if err := json.NewDecoder(httpResp.Body).Decode(&out); err != nil {
			return &Error{Err: err, Message: fmt.Sprintf("decode response: %v", err)}
		}
		if len(out.Choices) == 0 {
			return &Error{Message: "empty response: no choices"}
		}
		resp = &out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ChatStream opens a streaming chat completion. Retry applies only to
// connection establishment; once the stream is returned, failures are
// terminal. The caller must drain or Close the stream.
func (c *Client) ChatStream(ctx context.Context, req Request) (*Stream, error) {
	req.Stream = true
	if req.StreamOptions == nil {
		req.StreamOptions = &StreamOptions{IncludeUsage: true}
	}
	var stream *Stream
	err := c.withRetry(ctx, func(ctx context.Context) error {
		// Derive a cancel so Close can tear down the connection without
		// waiting for the parent context.
		sctx, cancel := context.WithCancel(ctx)
		httpResp, err := c.post(sctx, "/chat/completions", req)
		if err != nil {
			cancel()
			return err
		}
		if err := checkStatus(httpResp); err != nil {
			httpResp.Body.Close()
			cancel()
			return err
		}
		stream = newStream(httpResp.Body, cancel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// Models lists the model ids offered by the upstream.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq)
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &Error{Err: err, Retryable: true, Message: err.Error()}
	}
	defer httpResp.Body.Close()
	if err := checkStatus(httpResp); err != nil {
		return nil, err
	}
	var list modelList
	if err := json.NewDecoder(httpResp.Body).Decode(&list); err != nil {
		return nil, &Error{Err: err, Message: fmt.Sprintf("decode models: %v", err)}
	}
	ids := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &Error{Err: err, Message: fmt.Sprintf("encode request: %v", err)}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Err: err, Message: err.Error()}
	}
	c.setHeaders(httpReq)
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{Err: err, Retryable: true, Message: err.Error()}
	}
	return httpResp, nil
}

func (c *Client) setHeaders(req *http.Request) {
	token := c.cfg.APIKey
	if token == "" {
		token = c.cfg.AuthToken
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}
}

// checkStatus converts a non-2xx response into a classified *Error, consuming
// the body.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)
	msg := eb.Error.Message
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = resp.Status
	}
	perr := &Error{
		Status:     resp.StatusCode,
		Message:    msg,
		Type:       eb.Error.Type,
		Code:       fmt.Sprint(eb.Error.Code),
		Retryable:  classifyRetryable(resp.StatusCode, string(raw)),
		RetryAfter: parseRetryAfter(resp.Header),
	}
	if isUsageLimit(resp.StatusCode, string(raw)) {
		return &UsageLimitError{Err: perr}
	}
	return perr
}

// withRetry runs fn, retrying classified-retryable failures with either the
// server-requested delay or exponential backoff with jitter.
func (c *Client) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var perr *Error
		if !errors.As(err, &perr) || !perr.Retryable {
			return err
		}
		if attempt+1 >= c.cfg.MaxAttempts {
			return &RetryExhaustedError{Err: err, Attempts: attempt + 1}
		}
		delay := perr.RetryAfter
		if delay <= 0 {
			delay = c.backoff(attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// backoff is base·2^attempt with 0-30% additive jitter, capped at 30s.
func (c *Client) backoff(attempt int) time.Duration {
	d := float64(c.cfg.RetryDelay)
	for i := 0; i < attempt; i++ {
		d *= 2
	}
	if d > float64(maxBackoff) {
		d = float64(maxBackoff)
	}
	d += rand.Float64() * 0.3 * d
	if d > float64(maxBackoff) {
		d = float64(maxBackoff)
	}
	return time.Duration(d)
}
