package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tenxhq/tenx/internal/chat"
	"github.com/tenxhq/tenx/internal/subagent"
	"github.com/tenxhq/tenx/internal/superpower"
)

const helpText = `Commands:
  /help               show this help
  /clear              start a fresh session
  /resume [name]      resume the named (or most recent) session
  /rename <name>      rename the current session
  /fork [name]        fork the current session
  /model [mode]       show or set routing mode (auto|superfast|fast|smart)
  /skills             list sub-agent types
  /superpowers        list available superpowers
  /image <path> [prompt]  send an image with an optional prompt
  /logout             remove stored credentials
  /quit               exit

Superpowers run via their trigger, e.g. /commit.`

func (a *app) repl(ctx context.Context) error {
	if !a.quiet {
		fmt.Fprintln(a.out, "tenx ready. /help for commands.")
	}

	if err := a.powers.Watch(ctx); err != nil && !a.quiet {
		fmt.Fprintf(a.out, "superpower watch disabled: %v\n", err)
	}

	for {
		fmt.Fprint(a.out, "> ")
		if !a.in.Scan() {
			return a.in.Err()
		}
		line := strings.TrimSpace(a.in.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := a.dispatch(ctx, line)
			if err != nil {
				fmt.Fprintf(a.out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := a.runTurn(ctx, chat.Message{Role: chat.RoleUser, Content: line}); err != nil {
			fmt.Fprintf(a.out, "error: %v\n", err)
		}
	}
}

// dispatch handles one slash command. Unknown commands are checked against
// superpower triggers before being rejected.
func (a *app) dispatch(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	cmd := strings.TrimPrefix(fields[0], "/")
	rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch cmd {
	case "help":
		fmt.Fprintln(a.out, helpText)
	case "quit", "exit":
		return true, nil
	case "clear":
		a.perms.ClearSession()
		return false, a.sessions.Clear()
	case "resume":
		if rest == "" {
			_, err = a.sessions.ResumeLast()
		} else {
			_, err = a.sessions.LoadByName(rest)
		}
		if err == nil {
			fmt.Fprintf(a.out, "resumed %q\n", a.sessions.GetCurrent().Name)
		}
		return false, err
	case "rename":
		if rest == "" {
			return false, fmt.Errorf("usage: /rename <name>")
		}
		return false, a.sessions.Rename(rest)
	case "fork":
		s, err := a.sessions.Fork(rest)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(a.out, "forked into %q\n", s.Name)
	case "model":
		if rest == "" {
			fmt.Fprintf(a.out, "routing mode: %s\n", a.routingMode)
			return false, nil
		}
		mode, err := chat.ParseRoutingMode(rest)
		if err != nil {
			return false, err
		}
		a.routingMode = mode
	case "skills":
		for _, t := range subagent.Types() {
			agent, _ := subagent.Lookup(t)
			fmt.Fprintf(a.out, "  %-10s tier=%s tools=%s\n", t, agent.DefaultTier, strings.Join(agent.AllowedTools, ","))
		}
	case "superpowers":
		list, err := a.powers.Load(a.workDir)
		if err != nil {
			return false, err
		}
		for _, sp := range list {
			fmt.Fprintf(a.out, "  /%-14s %s\n", sp.Trigger, sp.Description)
		}
	case "image":
		return false, a.sendImage(ctx, rest)
	case "logout":
		a.cfg.APIKey = ""
		a.cfg.AuthToken = ""
		if err := a.cfgMgr.Save(a.cfg); err != nil {
			return false, err
		}
		fmt.Fprintln(a.out, "credentials removed")
		return true, nil
	default:
		if sp, ok := a.powers.Find(a.workDir, cmd); ok {
			return false, a.runSuperpower(ctx, sp, rest)
		}
		return false, fmt.Errorf("unknown command: /%s", cmd)
	}
	return false, nil
}

// sendImage builds a multimodal user message from a file path and runs a
// turn with it. Image turns always route smart.
func (a *app) sendImage(ctx context.Context, rest string) error {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return fmt.Errorf("usage: /image <path> [prompt]")
	}
	path := fields[0]
	prompt := strings.TrimSpace(strings.TrimPrefix(rest, path))
	if prompt == "" {
		prompt = "Describe this image."
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	msg := chat.Message{
		Role: chat.RoleUser,
		Parts: []chat.ContentPart{
			{Kind: chat.PartText, Text: prompt},
			{
				Kind:      chat.PartImage,
				Base64:    base64.StdEncoding.EncodeToString(data),
				MediaType: mediaType(path),
			},
		},
	}
	return a.runTurn(ctx, msg)
}

func mediaType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

// runSuperpower drives one workflow, printing step output as it streams.
func (a *app) runSuperpower(ctx context.Context, sp *superpower.Superpower, input string) error {
	in := superpower.Input{UserInput: input, Cwd: a.workDir}
	start := time.Now()

	for ev := range a.engine.Run(ctx, sp, in) {
		switch ev.Kind {
		case superpower.EventStepStart:
			if !a.quiet {
				fmt.Fprintf(a.out, "\n-- step %d: %s --\n", ev.Step, ev.StepName)
			}
		case superpower.EventStepText:
			fmt.Fprint(a.out, ev.Content)
		case superpower.EventStepError:
			fmt.Fprintf(a.out, "\nstep %d failed: %s\n", ev.Step, ev.Error)
		case superpower.EventComplete:
			if !a.quiet {
				fmt.Fprintf(a.out, "\n-- %s %s in %s --\n", sp.Trigger, outcome(ev.Success), time.Since(start).Round(time.Millisecond))
			}
		}
	}
	return nil
}

func outcome(ok bool) string {
	if ok {
		return "completed"
	}
	return "failed"
}
