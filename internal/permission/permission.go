package permission

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// Action is the outcome a rule or default prescribes.
type Action string

const (
	Allow Action = "allow"
	Deny  Action = "deny"
	Ask   Action = "ask"
)

// Rule pairs a glob pattern with an action.
type Rule struct {
	Pattern string `json:"pattern"`
	Action  Action `json:"action"`
}

// ToolPermissions configures one tool: a default action plus ordered rules.
type ToolPermissions struct {
	Default Action `json:"default"`
	Rules   []Rule `json:"rules,omitempty"`
}

// Config maps tool names to their permission configuration.
type Config map[string]ToolPermissions

// Decision is the result of a pure evaluation.
type Decision struct {
	Action      Action
	Allowed     bool
	MatchedRule string
	Reason      string
}

// DefaultConfig is the shipped permission posture: reads are free, mutations
// prompt, and the bash ruleset blocks the obvious footguns.
func DefaultConfig() Config {
	return Config{
		"read": {Default: Allow},
		"glob": {Default: Allow},
		"grep": {Default: Allow},
		"write": {Default: Ask},
		"edit":  {Default: Ask},
		"bash": {
			Default: Ask,
			Rules: []Rule{
				{Pattern: "sudo *", Action: Deny},
				{Pattern: "rm -rf /", Action: Deny},
				{Pattern: "rm -rf /*", Action: Deny},
				{Pattern: "git *", Action: Allow},
				{Pattern: "git status", Action: Allow},
				{Pattern: "npm test*", Action: Allow},
				{Pattern: "bun *", Action: Allow},
			},
		},
	}
}

var (
	globCacheMu sync.Mutex
	globCache   = map[string]glob.Glob{}
)

// matchPattern matches key against a glob pattern. No separator is special:
// `sudo *` matches `sudo git status`.
func matchPattern(pattern, key string) bool {
	globCacheMu.Lock()
	g, ok := globCache[pattern]
	if !ok {
		var err error
		g, err = glob.Compile(pattern)
		if err != nil {
			globCacheMu.Unlock()
			return false
		}
		globCache[pattern] = g
	}
	globCacheMu.Unlock()
	return g.Match(key)
}

// evaluate applies the deny-allow-ask scan for one tool configuration.
func evaluate(tp ToolPermissions, key string) Decision {
	if key != "" && len(tp.Rules) > 0 {
		for _, want := range []Action{Deny, Allow, Ask} {
			for _, rule := range tp.Rules {
				if rule.Action != want {
					continue
				}
				if matchPattern(rule.Pattern, key) {
					return Decision{
						Action:      rule.Action,
						Allowed:     rule.Action == Allow,
						MatchedRule: rule.Pattern,
						Reason:      fmt.Sprintf("rule %q -> %s", rule.Pattern, rule.Action),
					}
				}
			}
		}
	}

	def := tp.Default
	if def == "" {
		def = Ask
	}
	return Decision{
		Action:  def,
		Allowed: def == Allow,
		Reason:  fmt.Sprintf("default -> %s", def),
	}
}

// allowanceKey derives the session-allowance cache key. Bash approvals are
// cached per command head so one approval of `npm test` does not cover
// arbitrary npm invocations.
func allowanceKey(tool, key string) string {
	if tool == "bash" {
		fields := strings.Fields(key)
		switch {
		case len(fields) >= 2:
			return "bash:" + fields[0] + ":" + fields[1]
		case len(fields) == 1:
			return "bash:" + fields[0]
		}
		return "bash:"
	}
	return tool + ":" + key
}
