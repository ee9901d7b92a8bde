package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/tenxhq/tenx/internal/chat"
	"github.com/tenxhq/tenx/internal/provider"
)

const summaryPrompt = "You are a helpful assistant. Summarize the conversation so far into a compact brief a model can continue from: user goals, decisions made, files touched, and any unresolved work. Plain text, no preamble."

// CompactSummarizer produces compaction summaries through the provider.
type CompactSummarizer struct {
	client *provider.Client
	model  string
}

// NewCompactSummarizer creates a summarizer using the given model id.
func NewCompactSummarizer(client *provider.Client, model string) *CompactSummarizer {
	return &CompactSummarizer{client: client, model: model}
}

// Summarize condenses a message prefix into one summary string. It satisfies
// the Summarizer callback used by Manager.Compact.
func (s *CompactSummarizer) Summarize(ctx context.Context, prefix []chat.Message) (string, error) {
	if len(prefix) == 0 {
		return "", nil
	}

	resp, err := s.client.Chat(ctx, provider.Request{
		Model: s.model,
		Messages: []provider.Message{
			{Role: "system", Content: summaryPrompt},
			{Role: "user", Content: "Conversation:\n" + RenderTranscript(prefix)},
		},
		MaxTokens: 1024,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// RenderTranscript flattens messages into a plain-text transcript for
// summarization prompts.
func RenderTranscript(msgs []chat.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		text := m.Text()
		if text == "" && len(m.ToolCalls) > 0 {
			names := make([]string, 0, len(m.ToolCalls))
			for _, c := range m.ToolCalls {
				names = append(names, c.Name)
			}
			text = "[called tools: " + strings.Join(names, ", ") + "]"
		}
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", m.Role, text)
	}
	return b.String()
}
