package bookline

import (
	"encoding/json"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleSystem is a system instruction message.
	RoleSystem Role = "system"
	// RoleUser is a message authored by the end user.
	RoleUser Role = "user"
	// RoleAssistant is a message authored by the model.
	RoleAssistant Role = "assistant"
	// RoleTool is a message carrying tool results back to the model.
	RoleTool Role = "tool"
)

// Status indicates whether a streamed message is a partial delta or final.
type Status string

const (
	// StatusIncomplete marks a partial streaming delta.
	StatusIncomplete Status = "incomplete"
	// StatusCompleted marks a fully accumulated message.
	StatusCompleted Status = "completed"
)

// ToolCall is a single tool invocation requested by the model, and, once
// executed, its result. On assistant messages only ID, Name and Arguments
// are set; on tool messages ID and Result are set.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
	Result    string `json:"result,omitempty"`
}

// Message is a single entry in a conversation transcript.
type Message struct {
	Role      Role        `json:"role"`
	Content   string      `json:"content,omitempty"`
	ToolCalls []*ToolCall `json:"tool_calls,omitempty"`
	Status    Status      `json:"status,omitempty"`
}

// SystemMessage creates a system message with the given text.
func SystemMessage(text string) *Message {
	return &Message{Role: RoleSystem, Content: text, Status: StatusCompleted}
}

// UserMessage creates a user message with the given text.
func UserMessage(text string) *Message {
	return &Message{Role: RoleUser, Content: text, Status: StatusCompleted}
}

// AssistantMessage creates a completed assistant message with the given text.
func AssistantMessage(text string) *Message {
	return &Message{Role: RoleAssistant, Content: text, Status: StatusCompleted}
}

// ToolResultMessage creates a tool message carrying the given results.
func ToolResultMessage(calls ...*ToolCall) *Message {
	return &Message{Role: RoleTool, ToolCalls: calls, Status: StatusCompleted}
}

// Text returns the textual content of the message.
func (m *Message) Text() string {
	return m.Content
}

// String returns a compact human-readable rendering of the message.
func (m *Message) String() string {
	var buf strings.Builder
	buf.WriteString(string(m.Role))
	buf.WriteString(": ")
	buf.WriteString(m.Content)
	for _, call := range m.ToolCalls {
		buf.WriteString(" [tool ")
		buf.WriteString(call.Name)
		buf.WriteString("]")
	}
	return buf.String()
}

// EncodeMessages serializes a batch of messages as one transcript row.
// Each agent run contributes exactly one row holding every message the run
// produced, so rows stay ordered and self-contained.
func EncodeMessages(messages []*Message) ([]byte, error) {
	return json.Marshal(messages)
}

// DecodeMessages deserializes a single transcript row.
func DecodeMessages(row []byte) ([]*Message, error) {
	var messages []*Message
	if err := json.Unmarshal(row, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// DecodeHistory decodes and concatenates transcript rows in order, yielding
// the full message history visible to the next agent run.
func DecodeHistory(rows [][]byte) ([]*Message, error) {
	var history []*Message
	for _, row := range rows {
		messages, err := DecodeMessages(row)
		if err != nil {
			return nil, err
		}
		history = append(history, messages...)
	}
	return history, nil
}
