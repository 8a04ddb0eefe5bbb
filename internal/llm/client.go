// Package llm is the model backend boundary: an ordered transcript plus a
// tool menu goes in, one response with either terminal text or tool calls
// comes out. The SDK adapter and the resilience decorators live here; the
// conversation loop only sees the Client interface.
package llm

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

// Client defines the model backend operation the agents use.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

// Block types within a message.
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// ToolUse is a structured request from the model to invoke one tool. The
// argument payload is raw JSON and may fail to parse; callers must treat
// that as an empty argument set, never as a fatal error.
type ToolUse struct {
	ID       string
	Name     string
	ArgsJSON string
}

// ToolResultBlock carries one executed tool's output back to the model.
type ToolResultBlock struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// Block is one content block of a conversation message.
type Block struct {
	Type       string
	Text       string
	ToolUse    *ToolUse
	ToolResult *ToolResultBlock
}

// Message is a single conversational turn.
type Message struct {
	Role   string // "user" or "assistant"
	Blocks []Block
}

// TextMessage builds a plain-text message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Blocks: []Block{{Type: BlockText, Text: text}}}
}

// Tool describes one callable function exposed to the model. InputSchema
// must exactly match the arguments the registered handler accepts.
type Tool struct {
	Name        string
	Description string
	InputSchema Schema
}

// Schema is a JSON-schema object parameter description.
type Schema struct {
	Properties map[string]any
	Required   []string
}

// MessageRequest is our own request type for CreateMessage.
type MessageRequest struct {
	Model       string
	MaxTokens   int64
	System      string
	Messages    []Message
	Tools       []Tool
	Temperature *float64
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// LogCost logs token usage with structured zap fields, attributed to a
// pipeline phase.
func (u TokenUsage) LogCost(model, phase string) {
	zap.L().Info("token usage",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
	)
}

// MessageResponse is our own response type from CreateMessage.
type MessageResponse struct {
	ID         string
	Model      string
	Content    []Block
	StopReason string
	Usage      TokenUsage
}

// TextContent concatenates the text blocks of the response.
func (r *MessageResponse) TextContent() string {
	var parts []string
	for _, b := range r.Content {
		if b.Type == BlockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ToolUses returns the tool calls requested by the response, in order.
func (r *MessageResponse) ToolUses() []ToolUse {
	var out []ToolUse
	for _, b := range r.Content {
		if b.Type == BlockToolUse && b.ToolUse != nil {
			out = append(out, *b.ToolUse)
		}
	}
	return out
}

// AssistantTurn rebuilds the assistant message that produced this response,
// so it can be appended to the transcript before the tool results.
func (r *MessageResponse) AssistantTurn() Message {
	return Message{Role: "assistant", Blocks: r.Content}
}

// ToolResultsTurn bundles executed tool results into the user turn the
// protocol expects, preserving execution order.
func ToolResultsTurn(results []ToolResultBlock) Message {
	blocks := make([]Block, len(results))
	for i := range results {
		blocks[i] = Block{Type: BlockToolResult, ToolResult: &results[i]}
	}
	return Message{Role: "user", Blocks: blocks}
}

// ParseToolArgs deserializes a tool-use argument payload. A malformed
// payload yields an empty map, not an error.
func ParseToolArgs(argsJSON string) map[string]any {
	if strings.TrimSpace(argsJSON) == "" {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}
