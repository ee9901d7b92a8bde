package chat

// ToolCallStatus tracks the lifecycle of a single tool call within a turn.
type ToolCallStatus string

const (
	StatusPending ToolCallStatus = "pending"
	StatusRunning ToolCallStatus = "running"
	StatusSuccess ToolCallStatus = "success"
	StatusError   ToolCallStatus = "error"
)

// ToolOutput is the terminal payload of a finished tool call.
type ToolOutput struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// ToolCall is a provider-requested function invocation. The ID is stable
// within a turn; calls are one-shot and never reused across turns.
type ToolCall struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Input  map[string]any `json:"input"`
	Status ToolCallStatus `json:"status"`
	Output *ToolOutput    `json:"output,omitempty"`
}

// Finish transitions the call to its terminal status from a result.
func (c *ToolCall) Finish(ok bool, output, errMsg string) {
	if ok {
		c.Status = StatusSuccess
	} else {
		c.Status = StatusError
	}
	c.Output = &ToolOutput{Text: output, Error: errMsg}
}
