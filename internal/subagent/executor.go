package subagent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tenxhq/tenx/internal/chat"
	"github.com/tenxhq/tenx/internal/router"
	"github.com/tenxhq/tenx/internal/sandbox"
	"github.com/tenxhq/tenx/internal/session"
	"github.com/tenxhq/tenx/internal/tools"
)

// Params describes one sub-agent invocation.
type Params struct {
	Type   Type
	Prompt string
	Model  chat.Tier // optional tier override
	Resume string    // agent id of a completed run to return cached
}

// Result is the terminal outcome of an invocation.
type Result struct {
	Ok      bool
	Output  string
	AgentID string
	Error   string
}

// runState tracks one invocation in the in-memory table.
type runState string

const (
	stateRunning   runState = "running"
	stateCompleted runState = "completed"
	stateError     runState = "error"
)

type runEntry struct {
	state  runState
	result Result
}

// Executor spawns restricted child routers for bounded tasks.
type Executor struct {
	mu      sync.Mutex
	runs    map[string]*runEntry
	baseCfg router.Config
	workDir string
	runner  sandbox.Runner
	perms   tools.PermissionChecker
}

// NewExecutor creates an executor. baseCfg supplies the provider client and
// model table; each invocation gets its own registry and router.
func NewExecutor(baseCfg router.Config, workDir string, runner sandbox.Runner, perms tools.PermissionChecker) *Executor {
	return &Executor{
		runs:    make(map[string]*runEntry),
		baseCfg: baseCfg,
		workDir: workDir,
		runner:  runner,
		perms:   perms,
	}
}

// Execute runs one sub-agent to completion, collecting only text deltas.
// Tool events are not propagated to the parent.
func (e *Executor) Execute(ctx context.Context, p Params, contextMsgs []chat.Message) Result {
	if p.Resume != "" {
		if res, ok := e.cached(p.Resume); ok {
			return res
		}
		return Result{Ok: false, AgentID: p.Resume, Error: fmt.Sprintf("no completed run with id %q", p.Resume)}
	}

	agent, err := Lookup(p.Type)
	if err != nil {
		return Result{Ok: false, Error: err.Error()}
	}

	agentID := uuid.NewString()
	e.setState(agentID, &runEntry{state: stateRunning})

	res := e.run(ctx, agentID, agent, p, contextMsgs)

	entry := &runEntry{state: stateCompleted, result: res}
	if !res.Ok {
		entry.state = stateError
	}
	e.setState(agentID, entry)
	return res
}

func (e *Executor) run(ctx context.Context, agentID string, agent Agent, p Params, contextMsgs []chat.Message) Result {
	reg, err := tools.NewRestrictedRegistry(e.workDir, e.runner, allowedOrNone(agent.AllowedTools))
	if err != nil {
		return Result{Ok: false, AgentID: agentID, Error: err.Error()}
	}
	if e.perms != nil {
		reg.SetPermissionManager(e.perms)
	}

	tier := agent.DefaultTier
	if p.Model != "" {
		tier = p.Model
	}

	cfg := e.baseCfg
	cfg.Registry = reg
	cfg.Sessions = nil // child turns never touch the parent session log
	// interaction hooks stay with the root router; children get none
	cfg.AskQuestion = nil
	cfg.EnterPlanMode = nil
	cfg.ExitPlanMode = nil
	cfg.SystemPrompt = agent.SystemPrompt
	cfg.DefaultTier = tier
	cfg.RoutingMode = chat.RoutingMode(tier)
	child := router.New(cfg)

	prompt := p.Prompt
	if agent.Type == Summarize && len(contextMsgs) > 0 {
		prompt = formatSummarizeInput(p.Prompt, contextMsgs)
	}

	msgs := []chat.Message{{Role: chat.RoleUser, Content: prompt}}
	events, errs := child.Stream(ctx, msgs, tier, chat.AnyImages(contextMsgs))

	var out strings.Builder
	for ev := range events {
		if ev.Kind == router.EventText {
			out.WriteString(ev.Content)
		}
	}
	if err := <-errs; err != nil {
		return Result{Ok: false, AgentID: agentID, Output: out.String(), Error: err.Error()}
	}
	return Result{Ok: true, AgentID: agentID, Output: out.String()}
}

// formatSummarizeInput folds context messages into the single user message
// the Summarize agent consumes.
func formatSummarizeInput(prompt string, msgs []chat.Message) string {
	var b strings.Builder
	if prompt != "" {
		b.WriteString(prompt)
		b.WriteString("\n\n")
	}
	b.WriteString("Conversation:\n")
	b.WriteString(session.RenderTranscript(msgs))
	return b.String()
}

// allowedOrNone maps a nil tool list to an empty registry rather than the
// full built-in set.
func allowedOrNone(allowed []string) []string {
	if allowed == nil {
		return []string{}
	}
	return allowed
}

func (e *Executor) setState(id string, entry *runEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runs[id] = entry
}

// cached returns the stored result for a completed run.
func (e *Executor) cached(id string) (Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.runs[id]
	if !ok || entry.state != stateCompleted {
		return Result{}, false
	}
	return entry.result, true
}

// State reports the run state for an agent id.
func (e *Executor) State(id string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.runs[id]
	if !ok {
		return "", false
	}
	return string(entry.state), true
}
