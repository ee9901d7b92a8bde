package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tenxhq/tenx/internal/chat"
	"github.com/tenxhq/tenx/internal/provider"
)

func TestCompactSummarizerSendsTranscript(t *testing.T) {
	var gotBody provider.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		fmt.Fprint(w, `{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"  compact summary  "},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	client := provider.New(provider.Config{APIKey: "k", BaseURL: srv.URL})
	s := NewCompactSummarizer(client, "model-x")

	summary, err := s.Summarize(context.Background(), []chat.Message{
		{Role: chat.RoleUser, Content: "refactor the parser"},
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary != "compact summary" {
		t.Errorf("summary = %q", summary)
	}
	if gotBody.Model != "model-x" || len(gotBody.Messages) != 2 {
		t.Errorf("request = %+v", gotBody)
	}
	user, _ := gotBody.Messages[1].Content.(string)
	if !strings.Contains(user, "refactor the parser") {
		t.Errorf("transcript not forwarded: %q", user)
	}
}

func TestCompactSummarizerEmptyPrefix(t *testing.T) {
	s := NewCompactSummarizer(nil, "model-x")
	summary, err := s.Summarize(context.Background(), nil)
	if err != nil || summary != "" {
		t.Errorf("empty prefix: %q, %v", summary, err)
	}
}
