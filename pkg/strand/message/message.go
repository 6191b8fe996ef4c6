// Package message provides the durable per-thread conversation log.
//
// The log is the external record of a conversation: human messages appended
// before an execution starts, assistant and tool records appended only after
// a clean stream completion. It is append-only and ordered by creation.
package message

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role classifies a log entry.
type Role string

// Message roles.
const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall records one tool interaction attached to an assistant message.
type ToolCall struct {
	Name   string         `json:"name"`
	Input  map[string]any `json:"input,omitempty"`
	Output string         `json:"output,omitempty"`
}

// Message is one conversation log entry.
type Message struct {
	ID        string     `json:"id"`
	ThreadID  string     `json:"thread_id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// New creates a message with a generated ID.
func New(threadID string, role Role, content string) *Message {
	return &Message{
		ID:        uuid.New().String(),
		ThreadID:  threadID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// WithToolCalls attaches tool interaction records.
func (m *Message) WithToolCalls(calls []ToolCall) *Message {
	m.ToolCalls = calls
	return m
}

// Log is the append-only conversation sink.
// Implementations must be safe for concurrent use.
type Log interface {
	// Append adds one message to the thread's log.
	Append(ctx context.Context, msg *Message) error

	// List returns a thread's messages in creation order.
	// limit caps the result; zero means no cap.
	List(ctx context.Context, threadID string, limit int) ([]*Message, error)

	// Close releases any resources held by the log.
	Close() error
}

// ErrLogClosed indicates the log has been closed.
var ErrLogClosed = errors.New("message log closed")
