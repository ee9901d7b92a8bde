package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tenxhq/tenx/internal/sandbox"
)

const maxBashOutput = 30000

// NewBashTool returns the `bash` tool backed by the given runner. Without an
// explicit timeout_ms the runner's configured command timeout applies.
func NewBashTool(root string, runner sandbox.Runner) Tool {
	if runner == nil {
		runner = sandbox.NewDefaultRunner()
	}
	return Tool{
		Name:        "bash",
		Description: "Run a shell command in the working directory and return its combined output and exit status. Commands are subject to permission rules.",
		SchemaJSON:  `{"type":"object","properties":{"command":{"type":"string","description":"Shell command to execute with sh -c"},"timeout_ms":{"type":"integer","description":"Timeout in milliseconds, defaults to the configured command timeout"}},"required":["command"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			command, _ := args["command"].(string)
			var timeout time.Duration
			if ms := intArg(args, "timeout_ms", 0); ms > 0 {
				timeout = time.Duration(ms) * time.Millisecond
			}
			return runBash(ctx, runner, root, command, timeout)
		},
	}
}

func runBash(ctx context.Context, runner sandbox.Runner, dir, command string, timeout time.Duration) (string, error) {
	res, err := runner.Run(ctx, dir, command, timeout)
	if err != nil && !res.TimedOut {
		return "", fmt.Errorf("command failed to run: %w", err)
	}

	var b strings.Builder
	b.WriteString(res.Stdout)
	if res.Stderr != "" {
		if b.Len() > 0 && !strings.HasSuffix(res.Stdout, "\n") {
			b.WriteString("\n")
		}
		b.WriteString(res.Stderr)
	}
	output := b.String()
	if len(output) > maxBashOutput {
		output = output[:maxBashOutput] + "\n(output truncated)"
	}

	if res.TimedOut {
		if timeout > 0 {
			return "", fmt.Errorf("command timed out after %s\n%s", timeout, output)
		}
		return "", fmt.Errorf("command timed out\n%s", output)
	}
	if res.Code != 0 {
		if output != "" {
			output += "\n"
		}
		output += fmt.Sprintf("exit status %d", res.Code)
	}
	return output, nil
}
