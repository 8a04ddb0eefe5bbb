package agent

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/agent-cli/internal/llm"
)

// LoopConfig parameterizes the conversation state machine. The two agents
// are instances of the same machine: the document agent runs up to
// MaxRounds tool rounds; the tabular agent runs one tool round followed by
// an optional no-tool narrative round.
type LoopConfig struct {
	Model       string
	MaxTokens   int64
	Temperature float64

	// MaxRounds caps model round-trips that may request tools.
	MaxRounds int
	// NarrativePhase appends one tool-free model call that interprets the
	// factual tool output. Skipped when nothing factual was produced or
	// when the invocation asks for concise output.
	NarrativePhase bool
}

// LoopResult is the terminal state of one loop execution.
type LoopResult struct {
	// Text is the model's final answer when the loop reached Done, empty
	// when the round cap was hit (the caller supplies its fallback).
	Text string
	// Done distinguishes a model-terminated loop from a capped-out one.
	Done bool
	// ToolText, Tables and Images accumulate the factual tool outputs in
	// execution order.
	ToolText string
	Tables   []string
	Images   []string
	// Narrative is the optional interpretation phase output.
	Narrative string
	// Rounds counts model calls that were allowed to request tools.
	Rounds int
	// ToolsCalled counts dispatched tool executions.
	ToolsCalled int
}

// Loop drives the request/response cycle between the model backend and the
// tool registry. One Loop value is reusable; all mutable state lives in the
// invocation.
type Loop struct {
	client   llm.Client
	registry *Registry
	cfg      LoopConfig
}

// NewLoop builds a loop over the given backend and registry.
func NewLoop(client llm.Client, registry *Registry, cfg LoopConfig) *Loop {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 1
	}
	return &Loop{client: client, registry: registry, cfg: cfg}
}

// Run executes one complete invocation: system + user prompt in, terminal
// state out. Tools requested within a round are dispatched sequentially in
// the order the model listed them, and their results appended to the
// transcript in that same order. The scratchpad carries stage results
// between tool calls.
func (l *Loop) Run(ctx context.Context, system, user string, scratch *Scratchpad, concise bool) (*LoopResult, error) {
	log := zap.L().With(zap.String("model", l.cfg.Model))
	temp := l.cfg.Temperature

	transcript := []llm.Message{llm.TextMessage("user", user)}
	res := &LoopResult{}

	for round := 0; round < l.cfg.MaxRounds; round++ {
		res.Rounds++

		resp, err := l.client.CreateMessage(ctx, llm.MessageRequest{
			Model:       l.cfg.Model,
			MaxTokens:   l.cfg.MaxTokens,
			System:      system,
			Messages:    transcript,
			Tools:       l.registry.Tools(),
			Temperature: &temp,
		})
		if err != nil {
			return nil, eris.Wrap(err, "agent: model call")
		}
		resp.Usage.LogCost(l.cfg.Model, "tool_round")

		toolUses := resp.ToolUses()
		if len(toolUses) == 0 {
			res.Text = resp.TextContent()
			res.Done = true
			break
		}

		transcript = append(transcript, resp.AssistantTurn())

		results := make([]llm.ToolResultBlock, 0, len(toolUses))
		for _, call := range toolUses {
			start := time.Now()
			outcome := l.registry.Dispatch(ctx, scratch, call)
			log.Debug("tool dispatched",
				zap.String("tool", call.Name),
				zap.Bool("is_error", outcome.IsError),
				zap.Duration("took", time.Since(start)),
			)

			res.ToolsCalled++
			if outcome.Text != "" {
				if res.ToolText != "" {
					res.ToolText += "\n\n"
				}
				res.ToolText += outcome.Text
			}
			res.Tables = append(res.Tables, outcome.Tables...)
			res.Images = append(res.Images, outcome.Images...)

			results = append(results, llm.ToolResultBlock{
				ToolUseID: call.ID,
				Content:   outcome.resultContent(),
				IsError:   outcome.IsError,
			})
		}
		transcript = append(transcript, llm.ToolResultsTurn(results))
	}

	if l.cfg.NarrativePhase {
		l.runNarrative(ctx, system, user, concise, res)
	}

	return res, nil
}

// runNarrative performs the tool-free interpretation round. Failures are
// swallowed: the factual output stands on its own.
func (l *Loop) runNarrative(ctx context.Context, system, user string, concise bool, res *LoopResult) {
	if concise || res.ToolText == "" || res.ToolsCalled == 0 {
		return
	}

	temp := l.cfg.Temperature
	resp, err := l.client.CreateMessage(ctx, llm.MessageRequest{
		Model:     l.cfg.Model,
		MaxTokens: l.cfg.MaxTokens,
		System:    system,
		Messages: []llm.Message{
			llm.TextMessage("user", user),
			llm.TextMessage("assistant",
				"Resultados das ferramentas (resumo factual, não invente números):\n"+res.ToolText),
		},
		Temperature: &temp,
	})
	if err != nil {
		zap.L().Warn("narrative phase failed", zap.Error(err))
		return
	}
	resp.Usage.LogCost(l.cfg.Model, "narrative")
	res.Narrative = resp.TextContent()
}
