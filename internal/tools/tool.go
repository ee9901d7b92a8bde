package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ToolFunc executes a tool against validated arguments.
type ToolFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is a named callable advertised to the model.
type Tool struct {
	Name        string
	Description string
	SchemaJSON  string
	Fn          ToolFunc
	ReadOnly    bool
}

// Result is the envelope every tool execution returns. Tool failures are
// carried in Error, never as panics or propagated errors.
type Result struct {
	Ok     bool   `json:"ok"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Text returns the payload the model sees for this result.
func (r Result) Text() string {
	if r.Ok {
		return r.Output
	}
	return r.Error
}

// ValidationError reports tool arguments that failed JSON schema validation.
type ValidationError struct {
	ToolName string
	Errors   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tool %s validation failed: %s", e.ToolName, strings.Join(e.Errors, "; "))
}

// ValidateArgs checks args against the tool's JSON schema.
func (t Tool) ValidateArgs(args map[string]any) error {
	schemaLoader := gojsonschema.NewStringLoader(t.SchemaJSON)
	documentLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var errorMsgs []string
		for _, err := range result.Errors() {
			errorMsgs = append(errorMsgs, err.String())
		}
		return &ValidationError{ToolName: t.Name, Errors: errorMsgs}
	}

	return nil
}
