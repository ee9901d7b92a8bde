package router

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/tenxhq/tenx/internal/chat"
	"github.com/tenxhq/tenx/internal/provider"
)

// toWireMessages converts the internal log to the provider wire shape,
// prepending the system prompt when present.
func toWireMessages(systemPrompt string, msgs []chat.Message) []provider.Message {
	out := make([]provider.Message, 0, len(msgs)+1)
	if systemPrompt != "" {
		out = append(out, provider.Message{Role: string(chat.RoleSystem), Content: systemPrompt})
	}
	for _, m := range msgs {
		out = append(out, toWireMessage(m))
	}
	return out
}

func toWireMessage(m chat.Message) provider.Message {
	wm := provider.Message{
		Role:       string(m.Role),
		ToolCallID: m.ToolCallID,
	}

	if len(m.Parts) > 0 {
		parts := make([]provider.ContentPart, 0, len(m.Parts))
		for _, p := range m.Parts {
			switch p.Kind {
			case chat.PartText:
				parts = append(parts, provider.ContentPart{Type: "text", Text: p.Text})
			case chat.PartImage:
				url := p.URL
				if url == "" && p.Base64 != "" {
					url = "data:" + p.MediaType + ";base64," + p.Base64
				}
				parts = append(parts, provider.ContentPart{Type: "image_url", ImageURL: &provider.ImageURL{URL: url}})
			}
		}
		wm.Content = parts
	} else if m.Content != "" {
		wm.Content = m.Content
	}

	for _, call := range m.ToolCalls {
		args, err := json.Marshal(call.Input)
		if err != nil {
			args = []byte("{}")
		}
		wm.ToolCalls = append(wm.ToolCalls, provider.ToolCall{
			ID:   call.ID,
			Type: "function",
			Function: provider.FunctionCall{
				Name:      call.Name,
				Arguments: string(args),
			},
		})
	}

	return wm
}

// pendingCall accumulates one tool call's streamed fragments.
type pendingCall struct {
	id   string
	name string
	args strings.Builder
}

// callAccumulator reassembles tool calls from streamed deltas, keyed by the
// wire-provided fragment index.
type callAccumulator struct {
	order   []int
	byIndex map[int]*pendingCall
}

func newCallAccumulator() *callAccumulator {
	return &callAccumulator{byIndex: make(map[int]*pendingCall)}
}

func (a *callAccumulator) add(d provider.ToolCallDelta) {
	idx := 0
	switch {
	case d.Index != nil:
		idx = *d.Index
	case len(a.order) > 0:
		// index-less fragments continue the most recent call
		idx = a.order[len(a.order)-1]
	}

	pc, ok := a.byIndex[idx]
	if !ok {
		pc = &pendingCall{}
		a.byIndex[idx] = pc
		a.order = append(a.order, idx)
	}
	if d.ID != "" {
		pc.id = d.ID
	}
	if d.Function.Name != "" {
		pc.name = d.Function.Name
	}
	pc.args.WriteString(d.Function.Arguments)
}

// finish materializes the accumulated calls in emission order. Calls the
// provider left id-less get stable synthetic ids.
func (a *callAccumulator) finish() []chat.ToolCall {
	calls := make([]chat.ToolCall, 0, len(a.order))
	for _, idx := range a.order {
		pc := a.byIndex[idx]
		id := pc.id
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		input := map[string]any{}
		if raw := pc.args.String(); raw != "" {
			if err := json.Unmarshal([]byte(raw), &input); err != nil {
				input = map[string]any{}
			}
		}
		calls = append(calls, chat.ToolCall{
			ID:     id,
			Name:   pc.name,
			Input:  input,
			Status: chat.StatusPending,
		})
	}
	return calls
}
