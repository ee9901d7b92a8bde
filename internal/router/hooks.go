package router

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tenxhq/tenx/internal/tools"
)

// registerHookTools exposes the configured host callbacks to the model as
// pseudo-tools. Registration failures mean the host already registered a
// tool under the name; the host's version wins.
func registerHookTools(cfg Config) {
	if cfg.Registry == nil {
		return
	}
	if cfg.AskQuestion != nil {
		_ = cfg.Registry.Register(askQuestionTool(cfg.AskQuestion))
	}
	if cfg.EnterPlanMode != nil {
		_ = cfg.Registry.Register(enterPlanTool(cfg.EnterPlanMode))
	}
	if cfg.ExitPlanMode != nil {
		_ = cfg.Registry.Register(exitPlanTool(cfg.ExitPlanMode))
	}
}

func askQuestionTool(fn AskQuestionFunc) tools.Tool {
	return tools.Tool{
		Name:        "ask_question",
		Description: "Ask the user one or more clarifying questions and wait for their answers.",
		SchemaJSON: `{
  "type": "object",
  "properties": {
    "questions": {"type": "array", "items": {"type": "string"}, "minItems": 1}
  },
  "required": ["questions"]
}`,
		ReadOnly: true,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			raw, _ := args["questions"].([]any)
			questions := make([]string, 0, len(raw))
			for _, q := range raw {
				if s, ok := q.(string); ok {
					questions = append(questions, s)
				}
			}
			answers, err := fn(ctx, questions)
			if err != nil {
				return "", err
			}

			keys := make([]string, 0, len(answers))
			for q := range answers {
				keys = append(keys, q)
			}
			sort.Strings(keys)
			var b strings.Builder
			for _, q := range keys {
				fmt.Fprintf(&b, "Q: %s\nA: %s\n", q, answers[q])
			}
			return b.String(), nil
		},
	}
}

func enterPlanTool(fn EnterPlanFunc) tools.Tool {
	return tools.Tool{
		Name:        "enter_plan_mode",
		Description: "Request plan mode for a task. On approval, write the plan to the returned file path.",
		SchemaJSON: `{
  "type": "object",
  "properties": {
    "task": {"type": "string"}
  },
  "required": ["task"]
}`,
		ReadOnly: true,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			task, _ := args["task"].(string)
			approved, planPath, err := fn(ctx, task)
			if err != nil {
				return "", err
			}
			if !approved {
				return "Plan mode declined by the user.", nil
			}
			return fmt.Sprintf("Plan mode approved. Write your plan to %s, then call exit_plan_mode.", planPath), nil
		},
	}
}

func exitPlanTool(fn ExitPlanFunc) tools.Tool {
	return tools.Tool{
		Name:        "exit_plan_mode",
		Description: "Submit the written plan for user approval and leave plan mode.",
		SchemaJSON: `{
  "type": "object",
  "properties": {
    "plan_file_path": {"type": "string"}
  },
  "required": ["plan_file_path"]
}`,
		ReadOnly: true,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["plan_file_path"].(string)
			approved, content, err := fn(ctx, path)
			if err != nil {
				return "", err
			}
			if !approved {
				return "Plan rejected by the user. Revise it and submit again.", nil
			}
			return "Plan approved:\n" + content, nil
		},
	}
}
