package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/tenxhq/tenx/internal/provider"
)

// PermissionChecker gates tool execution. Implemented by permission.Manager.
type PermissionChecker interface {
	// Check reports whether the (tool, key) pair may execute. It may block
	// on an interactive prompt; ctx cancels the wait.
	Check(ctx context.Context, tool, key string) bool
}

// Registry holds the tool table and dispatches gated executions.
// Registration is monotonic: tools are never removed during a turn.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	perms PermissionChecker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %q already registered", t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Size returns the number of registered tools.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// SetPermissionManager installs the execution gate.
func (r *Registry) SetPermissionManager(pm PermissionChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.perms = pm
}

// WireSchemas exports the tool table in the provider's function-call shape.
func (r *Registry) WireSchemas() []provider.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]provider.Tool, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		out = append(out, provider.Tool{
			Type: "function",
			Function: provider.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  json.RawMessage(t.SchemaJSON),
			},
		})
	}
	return out
}

// Execute validates, permission-gates, and runs the named tool. Failures of
// any kind are captured into the Result envelope.
func (r *Registry) Execute(ctx context.Context, name string, input map[string]any) (result Result) {
	r.mu.RLock()
	t, ok := r.tools[name]
	pm := r.perms
	r.mu.RUnlock()

	if !ok {
		return Result{Ok: false, Error: fmt.Sprintf("unknown tool: %s", name)}
	}

	if err := t.ValidateArgs(input); err != nil {
		return Result{Ok: false, Error: err.Error()}
	}

	if pm != nil && !pm.Check(ctx, name, PermissionKey(name, input)) {
		return Result{Ok: false, Error: "Permission denied"}
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = Result{Ok: false, Error: fmt.Sprintf("tool %s panicked: %v", name, rec)}
		}
	}()

	output, err := t.Fn(ctx, input)
	if err != nil {
		return Result{Ok: false, Error: err.Error()}
	}
	return Result{Ok: true, Output: output}
}

// PermissionKey derives the string permission rules match against.
func PermissionKey(name string, input map[string]any) string {
	switch name {
	case "read", "write", "edit":
		if p, ok := input["path"].(string); ok {
			return p
		}
	case "bash":
		if c, ok := input["command"].(string); ok {
			return c
		}
	case "glob", "grep":
		if p, ok := input["pattern"].(string); ok {
			return p
		}
	}
	// Stable fallback: encoding/json sorts map keys.
	b, err := json.Marshal(input)
	if err != nil {
		return ""
	}
	return string(b)
}
