package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
)

const dataPrefix = "data: "

// Stream is a single-pass reader over an SSE chat-completions response.
// Callers must drain it to io.EOF or Close it.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	cancel  context.CancelFunc
	closed  bool
}

func newStream(body io.ReadCloser, cancel context.CancelFunc) *Stream {
	sc := bufio.NewScanner(body)
	// Tool-call argument deltas can make individual events large.
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	return &Stream{body: body, scanner: sc, cancel: cancel}
}

// Recv returns the next chunk. It returns io.EOF on the `[DONE]` sentinel and
// on a clean end of body without one. Malformed `data:` payloads are skipped.
func (s *Stream) Recv() (StreamChunk, error) {
	if s.closed {
		return StreamChunk{}, io.EOF
	}
	for s.scanner.Scan() {
		line := strings.TrimRight(s.scanner.Text(), "\r")
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		if payload == "[DONE]" {
			s.Close()
			return StreamChunk{}, io.EOF
		}
		var chunk StreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		return chunk, nil
	}
	err := s.scanner.Err()
	s.Close()
	if err == nil || isBenignClose(err) {
		// EOF without a sentinel still terminates the stream.
		return StreamChunk{}, io.EOF
	}
	return StreamChunk{}, &Error{Err: err, Retryable: false, Message: err.Error()}
}

// Close releases the underlying connection. Safe to call more than once.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	return s.body.Close()
}

// isBenignClose reports read errors that amount to a normal teardown of an
// already-consumed body.
func isBenignClose(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "http: read on closed response body") ||
		strings.Contains(msg, "use of closed network connection")
}

// collectText drains a stream and concatenates its content deltas. Used by
// the non-streaming convenience paths and by tests.
func collectText(s *Stream) (string, error) {
	defer s.Close()
	var b bytes.Buffer
	for {
		chunk, err := s.Recv()
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			return b.String(), err
		}
		for _, c := range chunk.Choices {
			b.WriteString(c.Delta.Content)
		}
	}
}
