package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return New(Config{
		APIKey:      "test-key",
		BaseURL:     url,
		MaxAttempts: 4,
		RetryDelay:  10 * time.Millisecond,
	})
}

func chatOK(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"id":"resp-1","choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":5,"total_tokens":8}}`, content)
}

func TestChatRetriesOn429WithRetryAfter(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"rate_limit","type":"rate_limit_error"}}`)
			return
		}
		chatOK(w, "hello")
	}))
	defer srv.Close()

	start := time.Now()
	resp, err := newTestClient(srv.URL).Chat(context.Background(), Request{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	elapsed := time.Since(start)

	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", got)
	}
	if elapsed < 2*time.Second {
		t.Errorf("retry started too early: %v", elapsed)
	}
	if elapsed > 2*time.Second+1500*time.Millisecond {
		t.Errorf("retry started too late: %v", elapsed)
	}
	if resp.Choices[0].Message.Content != "hello" {
		t.Errorf("unexpected content: %q", resp.Choices[0].Message.Content)
	}
}

func TestChatHonorsRetryAfterMs(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.Header().Set("retry-after-ms", "50")
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		chatOK(w, "ok")
	}))
	defer srv.Close()

	start := time.Now()
	if _, err := newTestClient(srv.URL).Chat(context.Background(), Request{Model: "m"}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond || elapsed > 2*time.Second {
		t.Errorf("retry-after-ms not honored, elapsed %v", elapsed)
	}
}

func TestChatDoesNotRetryAuthErrors(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key","type":"authentication_error"}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Chat(context.Background(), Request{Model: "m"})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if perr.Retryable {
		t.Error("auth error must not be retryable")
	}
	if perr.Status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", perr.Status)
	}
}

func TestChatRetriesExhaust(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Chat(context.Background(), Request{Model: "m"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsRetryExhausted(err) {
		t.Errorf("expected RetryExhaustedError, got %v", err)
	}
	// the full attempt budget of the test client
	if got := atomic.LoadInt32(&attempts); got != 4 {
		t.Errorf("expected 4 attempts, got %d", got)
	}
}

func TestChatSingleAttemptDisablesRetry(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cli := New(Config{APIKey: "k", BaseURL: srv.URL, MaxAttempts: 1, RetryDelay: time.Millisecond})
	_, err := cli.Chat(context.Background(), Request{Model: "m"})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", got)
	}
}

func TestChatUsageLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":{"message":"Monthly token limit exceeded","type":"usage_limit_exceeded"}}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Chat(context.Background(), Request{Model: "m"})
	var ule *UsageLimitError
	if !errors.As(err, &ule) {
		t.Fatalf("expected UsageLimitError, got %v", err)
	}
}

func TestCancellationAbortsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := newTestClient(srv.URL).Chat(ctx, Request{Model: "m"})
	if err == nil {
		t.Fatal("expected error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cancellation did not interrupt backoff, elapsed %v", elapsed)
	}
	if ctx.Err() == nil {
		t.Error("context should be cancelled")
	}
}

func TestModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"data":[{"id":"alpha"},{"id":"beta"}]}`)
	}))
	defer srv.Close()

	ids, err := newTestClient(srv.URL).Models(context.Background())
	if err != nil {
		t.Fatalf("Models failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "beta" {
		t.Errorf("unexpected ids: %v", ids)
	}
}

func TestAttributionHeaders(t *testing.T) {
	var gotAuth, gotReferer, gotTitle string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		chatOK(w, "ok")
	}))
	defer srv.Close()

	cli := New(Config{APIKey: "k", BaseURL: srv.URL, Referer: "https://10x.dev", Title: "10x"})
	if _, err := cli.Chat(context.Background(), Request{Model: "m"}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if gotAuth != "Bearer k" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReferer != "https://10x.dev" || gotTitle != "10x" {
		t.Errorf("attribution headers missing: %q %q", gotReferer, gotTitle)
	}
}

func TestStreamDeliversChunksAndSkipsInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		io.WriteString(w, "data: not json at all\n\n")
		io.WriteString(w, ": comment line\n")
		io.WriteString(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"lo\"},\"finish_reason\":\"stop\"}]}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	stream, err := newTestClient(srv.URL).ChatStream(context.Background(), Request{Model: "m"})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	text, err := collectText(stream)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if text != "Hello" {
		t.Errorf("text = %q, want %q", text, "Hello")
	}
}

func TestStreamEOFWithoutDoneSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"partial\"}}]}\n\n")
		// connection closes with no [DONE]
	}))
	defer srv.Close()

	stream, err := newTestClient(srv.URL).ChatStream(context.Background(), Request{Model: "m"})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	text, err := collectText(stream)
	if err != nil {
		t.Fatalf("EOF without sentinel should terminate cleanly, got %v", err)
	}
	if text != "partial" {
		t.Errorf("text = %q", text)
	}
}

func TestStreamConnectRetries(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":{"message":"overloaded"}}`)
			return
		}
		io.WriteString(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"ok\"}}]}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	stream, err := newTestClient(srv.URL).ChatStream(context.Background(), Request{Model: "m"})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	text, err := collectText(stream)
	if err != nil || text != "ok" {
		t.Fatalf("collect = %q, %v", text, err)
	}
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Errorf("expected 2 connection attempts, got %d", got)
	}
}
