package chat

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartKind discriminates ContentPart variants.
type PartKind string

const (
	PartText  PartKind = "text"
	PartImage PartKind = "image"
)

// ContentPart is one element of a multimodal message body.
// Exactly one of the payload fields applies per kind: Text for PartText,
// URL or Base64 (plus MediaType) for PartImage.
type ContentPart struct {
	Kind      PartKind `json:"kind"`
	Text      string   `json:"text,omitempty"`
	URL       string   `json:"url,omitempty"`
	Base64    string   `json:"base64,omitempty"`
	MediaType string   `json:"media_type,omitempty"`
}

// Message is the provider-agnostic chat message passed through the core.
// Content holds plain text; Parts holds an ordered multimodal body. A message
// uses one or the other, never both.
type Message struct {
	Role       Role          `json:"role"`
	Content    string        `json:"content,omitempty"`
	Parts      []ContentPart `json:"parts,omitempty"`
	ToolCalls  []ToolCall    `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
	Timestamp  time.Time     `json:"timestamp,omitzero"`
	Tier       Tier          `json:"model_tier,omitempty"`
}

// Validate checks structural invariants. Tool messages must reference the
// assistant tool call they answer.
func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
	default:
		return fmt.Errorf("invalid message role: %q", m.Role)
	}
	if m.Role == RoleTool && m.ToolCallID == "" {
		return fmt.Errorf("tool messages must carry a tool_call_id")
	}
	return nil
}

// Text returns the textual content of the message, joining text parts for
// multimodal bodies.
func (m Message) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Kind == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// HasImages reports whether the message carries any image parts.
func (m Message) HasImages() bool {
	for _, p := range m.Parts {
		if p.Kind == PartImage {
			return true
		}
	}
	return false
}

// AnyImages reports whether any message in the slice carries image parts.
func AnyImages(msgs []Message) bool {
	for _, m := range msgs {
		if m.HasImages() {
			return true
		}
	}
	return false
}

// Usage holds token accounting for a turn or a session.
type Usage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Add accumulates another usage sample.
func (u *Usage) Add(other Usage) {
	u.Input += other.Input
	u.Output += other.Output
}

// Total returns input plus output tokens.
func (u Usage) Total() int { return u.Input + u.Output }
