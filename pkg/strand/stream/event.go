// Package stream converts engine-internal notifications into the ordered,
// client-safe wire protocol.
//
// The protocol invariant: at most one start, start precedes all deltas and
// tool events, and the sequence terminates with exactly one of end or error.
package stream

import (
	"time"
)

// Kind discriminates wire events.
type Kind string

// Wire event kinds.
const (
	KindStart         Kind = "start"
	KindContentDelta  Kind = "content_delta"
	KindToolCallStart Kind = "tool_call_start"
	KindToolCallEnd   Kind = "tool_call_end"
	KindEnd           Kind = "end"
	KindError         Kind = "error"
)

// Event is one frame of the external streaming protocol. Transient: events
// are delivered as produced and never persisted.
type Event struct {
	Kind     Kind   `json:"type"`
	ThreadID string `json:"thread_id,omitempty"`

	// Content carries a text fragment for content_delta, the echoed user
	// input for start, and the human-readable message for error.
	Content string `json:"content,omitempty"`

	ToolName   string         `json:"tool_name,omitempty"`
	ToolInput  map[string]any `json:"tool_input,omitempty"`
	ToolOutput string         `json:"tool_output,omitempty"`

	// FullText is the accumulated assistant text, set on end only.
	FullText string `json:"full_text,omitempty"`

	// ToolsUsed counts externally-visible tool invocations, set on end only.
	ToolsUsed int `json:"tools_used,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// ToolUse records one externally-visible tool interaction, accumulated by
// the translator as a side channel for the message log.
type ToolUse struct {
	Name   string
	Input  map[string]any
	Output string
}
