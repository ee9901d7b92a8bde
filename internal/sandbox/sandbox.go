package sandbox

import (
	"context"
	"time"
)

// Result captures the output of a shell command.
type Result struct {
	Stdout   string
	Stderr   string
	Code     int
	TimedOut bool
}

// Runner executes shell scripts for the bash tool. Implementations may
// provide isolation from the host to contain untrusted commands.
type Runner interface {
	// Run executes script with `sh -c` in dir with a timeout.
	// A timeout <= 0 uses the runner's configured default.
	Run(ctx context.Context, dir, script string, timeout time.Duration) (Result, error)
}

// Run is a convenience that executes script with the default runner,
// preferring Docker when available and falling back to the host.
func Run(ctx context.Context, dir, script string, timeout time.Duration) (Result, error) {
	return NewDefaultRunner().Run(ctx, dir, script, timeout)
}
