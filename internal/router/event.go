package router

import "github.com/tenxhq/tenx/internal/chat"

// EventKind discriminates router stream events.
type EventKind string

const (
	// EventText is a streamed text delta.
	EventText EventKind = "text"
	// EventToolCall is a newly-observed tool call with aggregated arguments.
	EventToolCall EventKind = "tool_call"
	// EventToolResult is the same tool call updated with terminal status.
	EventToolResult EventKind = "tool_result"
	// EventDone terminates the stream. Exactly one is emitted per turn.
	EventDone EventKind = "done"
)

// Event is one element of the turn's event stream.
type Event struct {
	Kind     EventKind
	Content  string
	ToolCall *chat.ToolCall
	Tier     chat.Tier
	Usage    *chat.Usage
}
