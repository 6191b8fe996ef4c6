package message

import (
	"context"
	"sync"
)

// MemoryLog is an in-memory message log for testing and development.
type MemoryLog struct {
	mu      sync.RWMutex
	threads map[string][]*Message
	closed  bool
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{threads: make(map[string][]*Message)}
}

// Append implements Log.
func (l *MemoryLog) Append(_ context.Context, msg *Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLogClosed
	}

	stored := *msg
	if len(msg.ToolCalls) > 0 {
		stored.ToolCalls = make([]ToolCall, len(msg.ToolCalls))
		copy(stored.ToolCalls, msg.ToolCalls)
	}
	l.threads[msg.ThreadID] = append(l.threads[msg.ThreadID], &stored)
	return nil
}

// List implements Log.
func (l *MemoryLog) List(_ context.Context, threadID string, limit int) ([]*Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, ErrLogClosed
	}

	msgs := l.threads[threadID]
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[:limit]
	}

	out := make([]*Message, len(msgs))
	for i, m := range msgs {
		copied := *m
		out[i] = &copied
	}
	return out, nil
}

// Close implements Log.
func (l *MemoryLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	l.threads = nil
	return nil
}
