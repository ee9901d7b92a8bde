package permission

import (
	"context"
	"sync"
)

// PromptFunc asks the user to approve a gated tool invocation. It may block;
// ctx cancels the wait. Returning true approves the call for this session.
type PromptFunc func(ctx context.Context, tool, key, reason string) bool

// Manager decides allow/deny/ask per tool invocation and caches session
// approvals.
type Manager struct {
	mu         sync.Mutex
	config     Config
	allowances map[string]bool
	prompt     PromptFunc
}

// NewManager creates a manager over the given configuration. A nil config
// uses DefaultConfig.
func NewManager(cfg Config) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Manager{
		config:     cfg,
		allowances: make(map[string]bool),
	}
}

// SetPromptFunc installs the interactive approval callback. Without one,
// every `ask` outcome is refused.
func (m *Manager) SetPromptFunc(fn PromptFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompt = fn
}

// Evaluate is the pure inspector: it never prompts and never mutates state.
func (m *Manager) Evaluate(tool, key string) Decision {
	m.mu.Lock()
	tp := m.config[tool]
	m.mu.Unlock()
	return evaluate(tp, key)
}

// Check gates one invocation. For `ask` outcomes it consults the session
// allowance cache and then the prompt callback.
func (m *Manager) Check(ctx context.Context, tool, key string) bool {
	d := m.Evaluate(tool, key)
	switch d.Action {
	case Allow:
		return true
	case Deny:
		return false
	}

	ak := allowanceKey(tool, key)
	m.mu.Lock()
	cached := m.allowances[ak]
	prompt := m.prompt
	m.mu.Unlock()

	if cached {
		return true
	}
	if prompt == nil {
		return false
	}
	if !prompt(ctx, tool, key, d.Reason) {
		return false
	}

	m.mu.Lock()
	m.allowances[ak] = true
	m.mu.Unlock()
	return true
}

// UpdateConfig merges per-tool entries into the current configuration.
func (m *Manager) UpdateConfig(partial Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tool, tp := range partial {
		m.config[tool] = tp
	}
}

// AllowForSession force-adds one session allowance.
func (m *Manager) AllowForSession(tool, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowances[allowanceKey(tool, key)] = true
}

// ClearSession empties the session allowance cache.
func (m *Manager) ClearSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowances = make(map[string]bool)
}
