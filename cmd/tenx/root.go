package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tenxhq/tenx/internal/chat"
	"github.com/tenxhq/tenx/internal/config"
	"github.com/tenxhq/tenx/internal/permission"
	"github.com/tenxhq/tenx/internal/prompts"
	"github.com/tenxhq/tenx/internal/provider"
	"github.com/tenxhq/tenx/internal/router"
	"github.com/tenxhq/tenx/internal/sandbox"
	"github.com/tenxhq/tenx/internal/session"
	"github.com/tenxhq/tenx/internal/subagent"
	"github.com/tenxhq/tenx/internal/superpower"
	"github.com/tenxhq/tenx/internal/tools"
)

type rootFlags struct {
	byok        bool
	model       string
	resumeName  string
	continueArg bool
	execute     string
	quiet       bool
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:           "tenx",
		Short:         "Tiered model orchestration with tools, sessions, and superpowers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(flags)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if flags.execute != "" {
				return app.runTurn(ctx, chat.Message{Role: chat.RoleUser, Content: flags.execute})
			}
			return app.repl(ctx)
		},
	}

	cmd.Flags().BoolVar(&flags.byok, "byok", false, "require a user-supplied API key")
	cmd.Flags().StringVarP(&flags.model, "model", "m", "", "fixed model tier (superfast|fast|smart)")
	cmd.Flags().StringVarP(&flags.resumeName, "resume", "r", "", "resume the named session")
	cmd.Flags().BoolVarP(&flags.continueArg, "continue", "c", false, "continue the most recent session")
	cmd.Flags().StringVarP(&flags.execute, "execute", "x", "", "run a single prompt and exit")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "suppress tool and status output")

	return cmd
}

type app struct {
	cfg      *config.Config
	cfgMgr   *config.Manager
	client   *provider.Client
	perms    *permission.Manager
	registry *tools.Registry
	sessions *session.Manager
	rtr      *router.Router
	agents   *subagent.Executor
	powers   *superpower.Loader
	engine   *superpower.Engine
	workDir  string

	routingMode chat.RoutingMode
	quiet       bool

	in  *bufio.Scanner
	out io.Writer
}

func newApp(flags rootFlags) (*app, error) {
	cfgMgr, err := config.NewManager()
	if err != nil {
		return nil, err
	}
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, err
	}

	if flags.byok && cfg.APIKey == "" {
		return nil, fmt.Errorf("--byok requires an API key (set TENX_API_KEY or api_key in %s)", cfgMgr.Path())
	}
	if cfg.APIKey == "" && cfg.AuthToken == "" {
		return nil, fmt.Errorf("no credentials: set TENX_API_KEY or TENX_AUTH_TOKEN")
	}

	workDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	runner := newRunner(cfg)
	registry, err := tools.NewBuiltinRegistry(workDir, runner)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		cfgMgr:  cfgMgr,
		workDir: workDir,
		quiet:   flags.quiet,
		in:      bufio.NewScanner(os.Stdin),
		out:     os.Stdout,
	}

	a.perms = permission.NewManager(cfg.Permissions)
	a.perms.SetPromptFunc(a.promptApproval)
	registry.SetPermissionManager(a.perms)
	a.registry = registry

	// The config knob counts retries after the first attempt; the client
	// takes a total attempt budget.
	maxAttempts := 0
	if cfg.MaxRetries > 0 {
		maxAttempts = cfg.MaxRetries + 1
	}
	a.client = provider.New(provider.Config{
		APIKey:      cfg.APIKey,
		AuthToken:   cfg.AuthToken,
		BaseURL:     cfg.BaseURL,
		Referer:     "https://github.com/tenxhq/tenx",
		Title:       "tenx",
		MaxAttempts: maxAttempts,
		RetryDelay:  time.Duration(cfg.RetryDelayMs) * time.Millisecond,
	})

	a.sessions = session.NewManager(cfgMgr.Dir(), workDir, cfg.DefaultTier)

	a.routingMode = cfg.RoutingMode
	if flags.model != "" {
		tier, err := chat.ParseTier(flags.model)
		if err != nil {
			return nil, err
		}
		a.routingMode = chat.RoutingMode(tier)
	}

	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = prompts.Default(workDir)
	}

	// The router stays in auto mode; a fixed routing mode is applied as the
	// forced tier on each turn so /model can switch back to auto.
	rtrCfg := router.Config{
		Client:       a.client,
		Registry:     registry,
		Sessions:     a.sessions,
		SystemPrompt: systemPrompt,
		DefaultTier:  cfg.DefaultTier,
		RoutingMode:  chat.RouteAuto,
		MaxToolHops:  cfg.MaxToolHops,
		Models:       cfg.Models,
	}
	a.rtr = router.New(rtrCfg)
	a.agents = subagent.NewExecutor(rtrCfg, workDir, runner, a.perms)
	a.powers = superpower.NewLoader(cfg.SuperpowerDir)
	a.engine = superpower.NewEngine(rtrCfg, workDir, runner, a.perms)

	switch {
	case flags.continueArg:
		if _, err := a.sessions.ResumeLast(); err != nil {
			return nil, fmt.Errorf("continue: %w", err)
		}
	case flags.resumeName != "":
		if _, err := a.sessions.LoadByName(flags.resumeName); err != nil {
			return nil, fmt.Errorf("resume %q: %w", flags.resumeName, err)
		}
	}

	return a, nil
}

func newRunner(cfg *config.Config) sandbox.Runner {
	sc := sandbox.DefaultConfig()
	if cfg.SandboxMode != "" {
		sc.Mode = sandbox.Mode(cfg.SandboxMode)
	}
	if cfg.BashTimeoutMs > 0 {
		sc.CmdTimeout = time.Duration(cfg.BashTimeoutMs) * time.Millisecond
	}
	return sandbox.RunnerFromConfig(sc)
}

func (a *app) Close() {
	_ = a.powers.Close()
}

// promptApproval is the permission prompt: a y/N question on stdin.
func (a *app) promptApproval(ctx context.Context, tool, key, reason string) bool {
	if reason != "" {
		fmt.Fprintf(a.out, "\n%s wants to run: %s (%s)\n", tool, key, reason)
	} else {
		fmt.Fprintf(a.out, "\n%s wants to run: %s\n", tool, key)
	}
	fmt.Fprint(a.out, "Allow? [y/N] ")
	if !a.in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(a.in.Text()))
	return answer == "y" || answer == "yes"
}

// forcedTier maps a fixed routing mode to the tier passed per turn.
func (a *app) forcedTier() chat.Tier {
	tier, _ := a.routingMode.TierOf()
	return tier
}

// runTurn appends the user message to the current session and streams one
// full turn, printing events as they arrive.
func (a *app) runTurn(ctx context.Context, msg chat.Message) error {
	msg.Timestamp = time.Now().UTC()
	if err := a.sessions.AddMessage(msg); err != nil {
		return err
	}

	msgs := a.sessions.GetCurrent().Messages
	events, errs := a.rtr.Stream(ctx, msgs, a.forcedTier(), chat.AnyImages(msgs))

	for ev := range events {
		switch ev.Kind {
		case router.EventText:
			fmt.Fprint(a.out, ev.Content)
		case router.EventToolCall:
			if !a.quiet && ev.ToolCall != nil {
				fmt.Fprintf(a.out, "\n[%s]\n", ev.ToolCall.Name)
			}
		case router.EventDone:
			fmt.Fprintln(a.out)
		}
	}
	if err := <-errs; err != nil {
		return err
	}

	if a.sessions.NeedsCompaction() {
		summarizer := session.NewCompactSummarizer(a.client, a.cfg.Models[chat.TierFast])
		if err := a.sessions.Compact(ctx, summarizer.Summarize); err != nil && !a.quiet {
			fmt.Fprintf(a.out, "compaction failed: %v\n", err)
		}
	}
	return nil
}
