package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/agent-cli/internal/llm"
)

// Outcome is what one tool execution produced. Text, Tables and Images are
// merged into the invocation result; Payload is what the model sees as the
// tool result content (falls back to Text when empty).
type Outcome struct {
	Text    string
	Tables  []string
	Images  []string
	Payload string
	IsError bool
}

// resultContent returns the content serialized back into the transcript.
func (o Outcome) resultContent() string {
	if o.Payload != "" {
		return o.Payload
	}
	if o.Text != "" {
		return o.Text
	}
	return "ok"
}

// HandlerFunc executes one tool call. Implementations must convert internal
// failures into an explanatory Outcome instead of returning an error;
// the error return is reserved for faults the loop itself must surface.
type HandlerFunc func(ctx context.Context, scratch *Scratchpad, args Args) Outcome

// Handler couples a tool's schema, as exposed to the model, with its
// implementation. Schema and implementation must accept the same keys.
type Handler struct {
	Name        string
	Description string
	Schema      llm.Schema
	Fn          HandlerFunc
}

// Registry maps tool names to handlers. It is built once per agent and
// read-only afterwards; dispatch is sequential by design.
type Registry struct {
	handlers map[string]Handler
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler. Registering a duplicate name panics: tool menus
// are static and a collision is a programming error.
func (r *Registry) Register(h Handler) {
	if _, exists := r.handlers[h.Name]; exists {
		panic(fmt.Sprintf("agent: duplicate tool %q", h.Name))
	}
	r.handlers[h.Name] = h
	r.order = append(r.order, h.Name)
}

// Tools returns the schema list exposed to the model backend, in
// registration order.
func (r *Registry) Tools() []llm.Tool {
	out := make([]llm.Tool, 0, len(r.order))
	for _, name := range r.order {
		h := r.handlers[name]
		out = append(out, llm.Tool{
			Name:        h.Name,
			Description: h.Description,
			InputSchema: h.Schema,
		})
	}
	return out
}

// Dispatch executes one tool call. An unknown tool name degrades to an
// error outcome; a malformed argument payload degrades to empty arguments.
// Dispatch itself never fails.
func (r *Registry) Dispatch(ctx context.Context, scratch *Scratchpad, call llm.ToolUse) Outcome {
	h, ok := r.handlers[call.Name]
	if !ok {
		zap.L().Warn("unknown tool requested", zap.String("tool", call.Name))
		return Outcome{
			Text:    fmt.Sprintf("Ferramenta desconhecida: %s", call.Name),
			IsError: true,
		}
	}

	return h.Fn(ctx, scratch, ParseArgs(call.ArgsJSON))
}
