package subagent

import (
	"fmt"

	"github.com/tenxhq/tenx/internal/chat"
)

// Type identifies a bounded child-router profile.
type Type string

const (
	Explore   Type = "Explore"
	Summarize Type = "Summarize"
	ReviewPR  Type = "ReviewPR"
	TitleGen  Type = "TitleGen"
	Plan      Type = "Plan"
)

// Agent is one entry of the static agent table.
type Agent struct {
	Type         Type
	SystemPrompt string
	AllowedTools []string
	DefaultTier  chat.Tier
	ReadOnly     bool
}

// agents is the authoritative table. Agents are spawned per-call and do not
// persist.
var agents = map[Type]Agent{
	Explore: {
		Type:         Explore,
		SystemPrompt: "You are a codebase exploration agent. Investigate the repository to answer the task. Prefer reading and searching; report findings concisely with file paths.",
		AllowedTools: []string{"read", "glob", "grep", "bash"},
		DefaultTier:  chat.TierFast,
		ReadOnly:     true,
	},
	Summarize: {
		Type:         Summarize,
		SystemPrompt: "You summarize conversations. Produce a compact brief preserving goals, decisions, and unresolved work.",
		DefaultTier:  chat.TierFast,
	},
	ReviewPR: {
		Type:         ReviewPR,
		SystemPrompt: "You are a code review agent. Examine the changes in question, flag correctness and design problems, and suggest concrete improvements.",
		AllowedTools: []string{"read", "glob", "grep", "bash"},
		DefaultTier:  chat.TierSmart,
	},
	TitleGen: {
		Type:         TitleGen,
		SystemPrompt: "Generate a short title (3-5 words) for the conversation. No quotes or punctuation.",
		DefaultTier:  chat.TierSuperfast,
	},
	Plan: {
		Type:         Plan,
		SystemPrompt: "You are a planning agent. Study the codebase and produce a step-by-step plan for the task. Do not modify anything.",
		AllowedTools: []string{"read", "glob", "grep"},
		DefaultTier:  chat.TierSmart,
		ReadOnly:     true,
	},
}

// Lookup returns the agent profile for a type.
func Lookup(t Type) (Agent, error) {
	a, ok := agents[t]
	if !ok {
		return Agent{}, fmt.Errorf("unknown subagent type: %q", t)
	}
	return a, nil
}

// Types lists the known agent types.
func Types() []Type {
	return []Type{Explore, Summarize, ReviewPR, TitleGen, Plan}
}
