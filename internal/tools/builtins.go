package tools

import (
	"github.com/tenxhq/tenx/internal/sandbox"
)

// Builtins returns the default tool set rooted at dir.
func Builtins(root string, runner sandbox.Runner) []Tool {
	return []Tool{
		NewReadTool(root),
		NewWriteTool(root),
		NewEditTool(root),
		NewGlobTool(root),
		NewGrepTool(root),
		NewBashTool(root, runner),
	}
}

// NewBuiltinRegistry creates a registry with every built-in tool.
func NewBuiltinRegistry(root string, runner sandbox.Runner) (*Registry, error) {
	return NewRestrictedRegistry(root, runner, nil)
}

// NewRestrictedRegistry creates a registry with only the named built-ins.
// A nil allowed set means all of them.
func NewRestrictedRegistry(root string, runner sandbox.Runner, allowed []string) (*Registry, error) {
	var allow map[string]bool
	if allowed != nil {
		allow = make(map[string]bool, len(allowed))
		for _, name := range allowed {
			allow[name] = true
		}
	}

	reg := NewRegistry()
	for _, t := range Builtins(root, runner) {
		if allow != nil && !allow[t.Name] {
			continue
		}
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
