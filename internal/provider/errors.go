package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Error is an upstream HTTP or wire failure, classified for retry.
type Error struct {
	Status     int
	Message    string
	Type       string
	Code       string
	Retryable  bool
	RetryAfter time.Duration // server-requested delay, 0 when absent
	Err        error         // underlying transport error, if any
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("provider error: %v", e.Err)
	}
	return fmt.Sprintf("provider error (status %d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// UsageLimitError is surfaced when the hosted-mode proxy reports that the
// subscription's token budget is spent.
type UsageLimitError struct {
	Err *Error
}

func (e *UsageLimitError) Error() string {
	return fmt.Sprintf("usage limit exceeded: %s", e.Err.Message)
}

func (e *UsageLimitError) Unwrap() error { return e.Err }

// RetryExhaustedError wraps the final failure after all attempts.
type RetryExhaustedError struct {
	Err      error
	Attempts int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// IsRetryExhausted reports whether err is (or wraps) a RetryExhaustedError.
func IsRetryExhausted(err error) bool {
	var re *RetryExhaustedError
	return errors.As(err, &re)
}

// Error-body substrings that force a retry regardless of status.
var retryableMarkers = []string{
	"overloaded",
	"too_many_requests",
	"rate_limit",
	"temporarily unavailable",
	"service unavailable",
	"server_error",
	"exhausted",
	"unavailable",
	"no_kv_space",
}

// Error-body substrings that make a failure terminal.
var fatalMarkers = []string{
	"invalid_request_error",
	"authentication_error",
	"invalid api key",
	"insufficient_quota",
	"billing",
}

var usageLimitMarkers = []string{
	"usage_limit_exceeded",
	"monthly token limit exceeded",
}

// classifyRetryable decides whether a failure with the given HTTP status and
// error-body text should be retried. Status 0 means a network-layer failure.
func classifyRetryable(status int, body string) bool {
	lower := strings.ToLower(body)
	for _, m := range fatalMarkers {
		if strings.Contains(lower, m) {
			return false
		}
	}
	switch status {
	case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden:
		return false
	}
	for _, m := range retryableMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	if status == 0 {
		// network-layer error
		return true
	}
	return status == http.StatusTooManyRequests || status >= 500
}

// isUsageLimit reports whether the failure is the hosted-mode quota signal.
func isUsageLimit(status int, body string) bool {
	if status == http.StatusPaymentRequired {
		return true
	}
	lower := strings.ToLower(body)
	for _, m := range usageLimitMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// parseRetryAfter extracts the server-requested retry delay from response
// headers. `retry-after-ms` (milliseconds) wins over `Retry-After`, which is
// parsed as seconds or as an HTTP date converted to a positive delta.
func parseRetryAfter(h http.Header) time.Duration {
	if ms := h.Get("retry-after-ms"); ms != "" {
		if v, err := strconv.ParseFloat(ms, 64); err == nil && v > 0 {
			return time.Duration(v * float64(time.Millisecond))
		}
	}
	ra := h.Get("Retry-After")
	if ra == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(ra)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(ra); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
