package types

import "encoding/json"

// MessageRole identifies who authored a conversation turn.
type MessageRole string

const (
	RoleUser      MessageRole = "user"      // RoleUser marks a user-authored turn.
	RoleAssistant MessageRole = "assistant" // RoleAssistant marks a model-authored turn.
	RoleTool      MessageRole = "tool"      // RoleTool marks a batch of tool results.
)

// ToolCall is a structured tool invocation requested by the model.
// It is produced only by an LLM provider and never mutated afterwards.
type ToolCall struct {
	// ID is the provider-assigned call identifier; results refer back to it.
	ID string

	// Name is the registered tool name.
	Name string

	// Arguments is the raw JSON object the model supplied.
	Arguments json.RawMessage
}

// ToolResult is the outcome of exactly one ToolCall.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

// Message is a single conversation turn.
//
// A user turn carries Content only. An assistant turn carries Content and/or
// ToolCalls. A tool turn carries ToolResults, one per ToolCall of the
// preceding assistant turn, in the same order.
type Message struct {
	Role        MessageRole
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// NewUserMessage creates a user turn.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant turn with optional tool calls.
func NewAssistantMessage(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// NewToolResultMessage creates a tool turn holding a whole result batch.
func NewToolResultMessage(results []ToolResult) Message {
	return Message{Role: RoleTool, ToolResults: results}
}

// HasToolCalls reports whether the turn requests tool use.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}
