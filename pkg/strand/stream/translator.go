package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/strandkit/strand/pkg/strand/engine"
)

// State is the translator's position in its lifecycle.
type State int

// Translator states. Completed and Errored are terminal.
const (
	StateIdle State = iota
	StateStreaming
	StateCompleted
	StateErrored
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// ErrTerminal indicates a notification arrived after the translator reached
// a terminal state. The instance is single-use per execution.
var ErrTerminal = errors.New("translator is in a terminal state")

// Translator is a deterministic state machine mapping engine notifications
// to wire events. Not safe for concurrent use; one instance drives exactly
// one execution.
type Translator struct {
	threadID string
	allowed  map[string]struct{} // nil allows every tool
	now      func() time.Time

	state State
	full  strings.Builder
	tools []ToolUse

	// pendingInput remembers inputs of suppressed tool starts so the
	// matching tool end is suppressed too.
	suppressed map[string]int
	// open holds the input of the most recent allowed start per tool, so
	// the end event's side-channel record carries both input and output.
	open map[string][]map[string]any
}

// Option configures a Translator.
type Option func(*Translator)

// WithAllowedTools restricts which tool invocations become wire events.
// Tools outside the list (internal planning or filesystem tools, say) are
// silently dropped from the external protocol. An empty call allows all.
func WithAllowedTools(names ...string) Option {
	return func(t *Translator) {
		if len(names) == 0 {
			return
		}
		t.allowed = make(map[string]struct{}, len(names))
		for _, n := range names {
			t.allowed[n] = struct{}{}
		}
	}
}

// WithClock overrides the timestamp source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(t *Translator) {
		t.now = now
	}
}

// New creates a translator for one execution on the given thread.
func New(threadID string, opts ...Option) *Translator {
	t := &Translator{
		threadID:   threadID,
		now:        time.Now,
		suppressed: make(map[string]int),
		open:       make(map[string][]map[string]any),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the current lifecycle state.
func (t *Translator) State() State {
	return t.state
}

// Begin emits the single start event and moves Idle to Streaming. The
// coordinator calls this before any engine notification so the client sees
// start immediately; if it never did, the first content token would emit
// the same event. Either way there is at most one start.
func (t *Translator) Begin(userInput string) (Event, error) {
	if t.state != StateIdle {
		return Event{}, ErrTerminal
	}
	t.state = StateStreaming
	return Event{
		Kind:      KindStart,
		ThreadID:  t.threadID,
		Content:   userInput,
		Timestamp: t.now().UTC(),
	}, nil
}

// Push translates one engine notification into zero or more wire events, in
// receipt order. Returns ErrTerminal once the translator has completed or
// errored.
func (t *Translator) Push(n engine.Notification) ([]Event, error) {
	if t.state == StateCompleted || t.state == StateErrored {
		return nil, ErrTerminal
	}

	switch v := n.(type) {
	case engine.TokenDelta:
		if v.Text == "" {
			return nil, nil
		}
		events := t.ensureStarted()
		t.full.WriteString(v.Text)
		return append(events, Event{
			Kind:      KindContentDelta,
			ThreadID:  t.threadID,
			Content:   v.Text,
			Timestamp: t.now().UTC(),
		}), nil

	case engine.ToolStart:
		if !t.toolAllowed(v.Name) {
			t.suppressed[v.Name]++
			return nil, nil
		}
		events := t.ensureStarted()
		t.open[v.Name] = append(t.open[v.Name], v.Input)
		return append(events, Event{
			Kind:      KindToolCallStart,
			ThreadID:  t.threadID,
			ToolName:  v.Name,
			ToolInput: v.Input,
			Timestamp: t.now().UTC(),
		}), nil

	case engine.ToolEnd:
		if t.suppressed[v.Name] > 0 {
			t.suppressed[v.Name]--
			return nil, nil
		}
		events := t.ensureStarted()
		output := normalizeOutput(v.Output)
		t.tools = append(t.tools, ToolUse{
			Name:   v.Name,
			Input:  t.takeOpenInput(v.Name),
			Output: output,
		})
		return append(events, Event{
			Kind:       KindToolCallEnd,
			ThreadID:   t.threadID,
			ToolName:   v.Name,
			ToolOutput: output,
			Timestamp:  t.now().UTC(),
		}), nil

	case engine.PlanUpdate:
		// Internal only; never externally visible.
		return nil, nil

	case engine.Done:
		ev, err := t.Finish()
		if err != nil {
			return nil, err
		}
		return []Event{ev}, nil

	case engine.Failure:
		return []Event{t.Fail(v.Err)}, nil

	default:
		// Unknown internal notification kinds are ignored, not fatal: the
		// engine's event vocabulary may grow ahead of the translator's.
		return nil, nil
	}
}

// Finish emits the single end event and moves to Completed.
func (t *Translator) Finish() (Event, error) {
	if t.state == StateCompleted || t.state == StateErrored {
		return Event{}, ErrTerminal
	}
	t.state = StateCompleted
	return Event{
		Kind:      KindEnd,
		ThreadID:  t.threadID,
		FullText:  t.full.String(),
		ToolsUsed: len(t.tools),
		Timestamp: t.now().UTC(),
	}, nil
}

// Fail emits the single terminal error event. After Fail no further events
// are produced and no end event may follow.
func (t *Translator) Fail(err error) Event {
	t.state = StateErrored
	msg := "execution failed"
	if err != nil {
		msg = err.Error()
	}
	return Event{
		Kind:      KindError,
		ThreadID:  t.threadID,
		Content:   msg,
		Timestamp: t.now().UTC(),
	}
}

// FullText returns the accumulated assistant text.
func (t *Translator) FullText() string {
	return t.full.String()
}

// ToolUses returns the externally-visible tool interactions in order.
func (t *Translator) ToolUses() []ToolUse {
	return t.tools
}

// ensureStarted backfills the start event when Begin was never called.
func (t *Translator) ensureStarted() []Event {
	if t.state != StateIdle {
		return nil
	}
	t.state = StateStreaming
	return []Event{{
		Kind:      KindStart,
		ThreadID:  t.threadID,
		Timestamp: t.now().UTC(),
	}}
}

func (t *Translator) toolAllowed(name string) bool {
	if t.allowed == nil {
		return true
	}
	_, ok := t.allowed[name]
	return ok
}

func (t *Translator) takeOpenInput(name string) map[string]any {
	stack := t.open[name]
	if len(stack) == 0 {
		return nil
	}
	input := stack[len(stack)-1]
	t.open[name] = stack[:len(stack)-1]
	return input
}

// normalizeOutput renders an engine-shaped tool result as text. A textual
// content field wins over a raw structural dump.
func normalizeOutput(output any) string {
	switch v := output.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any:
		if content, ok := v["content"].(string); ok {
			return content
		}
	}
	if data, err := json.Marshal(output); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", output)
}
