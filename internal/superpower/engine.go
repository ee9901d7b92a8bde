package superpower

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tenxhq/tenx/internal/chat"
	"github.com/tenxhq/tenx/internal/router"
	"github.com/tenxhq/tenx/internal/sandbox"
	"github.com/tenxhq/tenx/internal/tools"
)

// EventKind discriminates engine events.
type EventKind string

const (
	EventStepStart    EventKind = "step_start"
	EventStepText     EventKind = "step_text"
	EventStepComplete EventKind = "step_complete"
	EventStepError    EventKind = "step_error"
	EventComplete     EventKind = "complete"
)

// Event is one item of the run stream. Step events carry the step number and
// name; the terminal complete event carries the final result and success
// flag.
type Event struct {
	Kind     EventKind
	Step     int
	StepName string
	Content  string
	Result   string
	Success  bool
	Error    string
}

// Input is what a run substitutes into step templates.
type Input struct {
	UserInput string
	Cwd       string
	Images    []string
}

// Engine drives a superpower's steps through per-step routers.
type Engine struct {
	baseCfg router.Config
	workDir string
	runner  sandbox.Runner
	perms   tools.PermissionChecker
}

// NewEngine creates an engine. baseCfg supplies the provider client, model
// table, and the default registry used by steps without a tools marker.
func NewEngine(baseCfg router.Config, workDir string, runner sandbox.Runner, perms tools.PermissionChecker) *Engine {
	return &Engine{baseCfg: baseCfg, workDir: workDir, runner: runner, perms: perms}
}

// Run executes the steps in order, emitting events on the returned channel.
// The channel is closed after the terminal complete event. Steps are not
// retried; transient provider failures are absorbed by the client's own
// retry loop.
func (e *Engine) Run(ctx context.Context, sp *Superpower, in Input) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		outputs := make(map[int]string)
		var last string

		for _, step := range sp.Steps {
			events <- Event{Kind: EventStepStart, Step: step.Number, StepName: step.Name}

			prompt := interpolate(step.PromptTemplate, in, last, outputs)
			out, err := e.runStep(ctx, step, prompt, events)
			if err != nil {
				events <- Event{Kind: EventStepError, Step: step.Number, StepName: step.Name, Error: err.Error()}
				events <- Event{Kind: EventComplete, Result: last, Success: false}
				return
			}

			outputs[step.Number] = out
			last = out
			events <- Event{Kind: EventStepComplete, Step: step.Number, StepName: step.Name, Content: out}
		}
		events <- Event{Kind: EventComplete, Result: last, Success: true}
	}()
	return events
}

func (e *Engine) runStep(ctx context.Context, step Step, prompt string, events chan<- Event) (string, error) {
	cfg := e.baseCfg
	cfg.Sessions = nil
	// interaction hooks stay with the root router; step turns get none
	cfg.AskQuestion = nil
	cfg.EnterPlanMode = nil
	cfg.ExitPlanMode = nil
	cfg.DefaultTier = step.ModelTier
	cfg.RoutingMode = chat.RoutingMode(step.ModelTier)

	if len(step.Tools) > 0 {
		reg, err := tools.NewRestrictedRegistry(e.workDir, e.runner, step.Tools)
		if err != nil {
			return "", fmt.Errorf("step registry: %w", err)
		}
		if e.perms != nil {
			reg.SetPermissionManager(e.perms)
		}
		cfg.Registry = reg
	}

	child := router.New(cfg)
	msgs := []chat.Message{{Role: chat.RoleUser, Content: prompt}}
	stream, errs := child.Stream(ctx, msgs, step.ModelTier, false)

	var out strings.Builder
	for ev := range stream {
		if ev.Kind == router.EventText {
			out.WriteString(ev.Content)
			events <- Event{Kind: EventStepText, Step: step.Number, StepName: step.Name, Content: ev.Content}
		}
	}
	if err := <-errs; err != nil {
		return "", err
	}
	return out.String(), nil
}

var stepVar = regexp.MustCompile(`\{\{step(\d+)\}\}`)

// interpolate substitutes template variables. Unknown variables are left
// untouched.
func interpolate(template string, in Input, previous string, outputs map[int]string) string {
	first := ""
	if len(in.Images) > 0 {
		first = in.Images[0]
	}
	s := strings.NewReplacer(
		"{{input}}", in.UserInput,
		"{{user_input}}", in.UserInput,
		"{{cwd}}", in.Cwd,
		"{{previous}}", previous,
		"{{output}}", previous,
		"{{image}}", first,
		"{{images}}", strings.Join(in.Images, ", "),
	).Replace(template)

	return stepVar.ReplaceAllStringFunc(s, func(m string) string {
		num, _ := strconv.Atoi(stepVar.FindStringSubmatch(m)[1])
		if out, ok := outputs[num]; ok {
			return out
		}
		return m
	})
}
