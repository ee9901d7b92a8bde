package router

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/tenxhq/tenx/internal/chat"
	"github.com/tenxhq/tenx/internal/provider"
	"github.com/tenxhq/tenx/internal/session"
	"github.com/tenxhq/tenx/internal/tools"
)

// defaultMaxToolHops bounds provider round-trips within one turn.
const defaultMaxToolHops = 25

// cancelledMarker replaces an empty assistant message on cancellation.
const cancelledMarker = "(cancelled)"

// AskQuestionFunc lets the model ask the user clarifying questions.
type AskQuestionFunc func(ctx context.Context, questions []string) (map[string]string, error)

// EnterPlanFunc asks the host to start plan mode; it returns the file path
// the model should write its plan to.
type EnterPlanFunc func(ctx context.Context, task string) (approved bool, planFilePath string, err error)

// ExitPlanFunc submits the written plan to the host for approval.
type ExitPlanFunc func(ctx context.Context, planFilePath string) (approved bool, planContent string, err error)

// Config wires the router's collaborators. Nothing is process-global.
type Config struct {
	Client       *provider.Client
	Registry     *tools.Registry
	Sessions     *session.Manager
	SystemPrompt string
	DefaultTier  chat.Tier
	RoutingMode  chat.RoutingMode
	MaxToolHops  int
	Models       map[chat.Tier]string

	AskQuestion   AskQuestionFunc
	EnterPlanMode EnterPlanFunc
	ExitPlanMode  ExitPlanFunc
}

// DefaultModels maps tiers to OpenRouter model ids.
func DefaultModels() map[chat.Tier]string {
	return map[chat.Tier]string{
		chat.TierSuperfast: "google/gemini-2.5-flash-lite",
		chat.TierFast:      "openai/gpt-4o-mini",
		chat.TierSmart:     "anthropic/claude-sonnet-4",
	}
}

// Router orchestrates one user turn end-to-end: tier selection, provider
// streaming, and the tool-call loop. Not re-entrant for the same session.
type Router struct {
	mu  sync.Mutex
	cfg Config
}

// New creates a router.
func New(cfg Config) *Router {
	if cfg.MaxToolHops <= 0 {
		cfg.MaxToolHops = defaultMaxToolHops
	}
	if cfg.DefaultTier == "" {
		cfg.DefaultTier = chat.TierSmart
	}
	if cfg.RoutingMode == "" {
		cfg.RoutingMode = chat.RouteAuto
	}
	if cfg.Models == nil {
		cfg.Models = DefaultModels()
	}
	registerHookTools(cfg)
	return &Router{cfg: cfg}
}

// SetSystemPrompt replaces the prompt prepended to every turn.
func (r *Router) SetSystemPrompt(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.SystemPrompt = s
}

// SetDefaultTier replaces the fallback tier used by classification.
func (r *Router) SetDefaultTier(t chat.Tier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.DefaultTier = t
}

// Classify selects the tier for a user text under the current routing mode.
// It is a pure function of the text and the configured defaults.
func (r *Router) Classify(userText string) chat.Tier {
	r.mu.Lock()
	mode := r.cfg.RoutingMode
	def := r.cfg.DefaultTier
	r.mu.Unlock()

	if tier, ok := mode.TierOf(); ok {
		return tier
	}
	return classify(userText, def)
}

// selectTier applies the full precedence: forced tier, then images forcing
// smart, then routing mode / classification.
func (r *Router) selectTier(msgs []chat.Message, forced chat.Tier, hasImages bool) chat.Tier {
	if forced != "" {
		return forced
	}
	if hasImages || chat.AnyImages(msgs) {
		return chat.TierSmart
	}
	return r.Classify(lastUserText(msgs))
}

func lastUserText(msgs []chat.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == chat.RoleUser {
			return msgs[i].Text()
		}
	}
	return ""
}

// CompleteResult is the non-streaming convenience result.
type CompleteResult struct {
	Content string
	Tier    chat.Tier
	Usage   *chat.Usage
}

// Complete runs a single non-streaming completion without the tool loop.
func (r *Router) Complete(ctx context.Context, msgs []chat.Message, forced chat.Tier) (*CompleteResult, error) {
	tier := r.selectTier(msgs, forced, false)

	r.mu.Lock()
	systemPrompt := r.cfg.SystemPrompt
	model := r.cfg.Models[tier]
	client := r.cfg.Client
	r.mu.Unlock()

	resp, err := client.Chat(ctx, provider.Request{
		Model:    model,
		Messages: toWireMessages(systemPrompt, msgs),
	})
	if err != nil {
		return nil, err
	}

	res := &CompleteResult{
		Content: resp.Choices[0].Message.Content,
		Tier:    tier,
	}
	if resp.Usage != nil {
		res.Usage = &chat.Usage{Input: resp.Usage.PromptTokens, Output: resp.Usage.CompletionTokens}
	}
	return res, nil
}

// Stream runs one turn. The event channel carries text, tool_call,
// tool_result, and a single terminal done; the error channel delivers the
// terminal error, or nil on success and on cancellation.
func (r *Router) Stream(ctx context.Context, msgs []chat.Message, forced chat.Tier, hasImages bool) (<-chan Event, <-chan error) {
	events := make(chan Event, 64)
	errs := make(chan error, 1)

	go func() {
		err := r.run(ctx, msgs, forced, hasImages, events)
		close(events)
		errs <- err
		close(errs)
	}()

	return events, errs
}

func (r *Router) run(ctx context.Context, msgs []chat.Message, forced chat.Tier, hasImages bool, events chan<- Event) error {
	tier := r.selectTier(msgs, forced, hasImages)

	r.mu.Lock()
	cfg := r.cfg
	r.mu.Unlock()

	model := cfg.Models[tier]
	log := append([]chat.Message(nil), msgs...)

	var schemas []provider.Tool
	if cfg.Registry != nil {
		schemas = cfg.Registry.WireSchemas()
	}

	for hop := 0; hop < cfg.MaxToolHops; hop++ {
		stream, err := cfg.Client.ChatStream(ctx, provider.Request{
			Model:    model,
			Messages: toWireMessages(cfg.SystemPrompt, log),
			Tools:    schemas,
		})
		if err != nil {
			if ctx.Err() != nil {
				r.finishCancelled(tier, "", events)
				return nil
			}
			return err
		}

		text, calls, usage, err := r.consume(ctx, tier, stream, events)
		if err != nil {
			if ctx.Err() != nil {
				r.finishCancelled(tier, text, events)
				return nil
			}
			return err
		}

		if len(calls) == 0 {
			if ctx.Err() != nil {
				r.finishCancelled(tier, text, events)
				return nil
			}
			if text != "" {
				r.appendToSession(chat.Message{
					Role:      chat.RoleAssistant,
					Content:   text,
					Timestamp: time.Now().UTC(),
					Tier:      tier,
				})
			}
			events <- Event{Kind: EventDone, Tier: tier, Usage: usage}
			return nil
		}

		// Dispatch sequentially in emission order: later calls may
		// reference earlier results textually.
		var toolMsgs []chat.Message
		cancelled := false
		for i := range calls {
			call := &calls[i]
			call.Status = chat.StatusRunning

			announced := *call
			events <- Event{Kind: EventToolCall, ToolCall: &announced, Tier: tier}

			result := cfg.Registry.Execute(ctx, call.Name, call.Input)
			call.Finish(result.Ok, result.Output, result.Error)

			finished := *call
			events <- Event{Kind: EventToolResult, ToolCall: &finished, Tier: tier}

			toolMsgs = append(toolMsgs, chat.Message{
				Role:       chat.RoleTool,
				Content:    result.Text(),
				ToolCallID: call.ID,
				Timestamp:  time.Now().UTC(),
			})

			if ctx.Err() != nil {
				cancelled = true
				break
			}
		}

		// The assistant message carries the completed calls; one tool
		// message follows per result, in order. A cancelled dispatch keeps
		// only the executed prefix so every recorded call has its tool
		// response.
		if cancelled {
			calls = calls[:len(toolMsgs)]
		}
		assistant := chat.Message{
			Role:      chat.RoleAssistant,
			Content:   text,
			ToolCalls: calls,
			Timestamp: time.Now().UTC(),
			Tier:      tier,
		}
		log = append(log, assistant)
		r.appendToSession(assistant)
		for _, tm := range toolMsgs {
			log = append(log, tm)
			r.appendToSession(tm)
		}

		if cancelled {
			events <- Event{Kind: EventDone, Tier: tier}
			return nil
		}
	}

	// Hop limit reached: synthetic stop.
	events <- Event{Kind: EventDone, Tier: tier}
	return nil
}

// consume drains one provider stream, emitting text events and aggregating
// tool-call deltas.
func (r *Router) consume(ctx context.Context, tier chat.Tier, stream *provider.Stream, events chan<- Event) (string, []chat.ToolCall, *chat.Usage, error) {
	defer stream.Close()

	var text string
	var usage *chat.Usage
	acc := newCallAccumulator()

	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return text, nil, usage, err
		}

		if chunk.Usage != nil {
			usage = &chat.Usage{Input: chunk.Usage.PromptTokens, Output: chunk.Usage.CompletionTokens}
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				text += choice.Delta.Content
				events <- Event{Kind: EventText, Content: choice.Delta.Content, Tier: tier}
			}
			for _, td := range choice.Delta.ToolCalls {
				acc.add(td)
			}
		}

		if ctx.Err() != nil {
			return text, nil, usage, ctx.Err()
		}
	}

	return text, acc.finish(), usage, nil
}

// finishCancelled retains the partial assistant message and drains to a
// single done. Cancellation is an outcome, not an error.
func (r *Router) finishCancelled(tier chat.Tier, partial string, events chan<- Event) {
	content := partial
	if content == "" {
		content = cancelledMarker
	}
	r.appendToSession(chat.Message{
		Role:      chat.RoleAssistant,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Tier:      tier,
	})
	events <- Event{Kind: EventDone, Tier: tier}
}

func (r *Router) appendToSession(msg chat.Message) {
	r.mu.Lock()
	sessions := r.cfg.Sessions
	r.mu.Unlock()
	if sessions != nil {
		_ = sessions.AddMessage(msg)
	}
}
