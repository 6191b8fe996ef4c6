package strand

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/strandkit/strand/pkg/strand/checkpoint"
	"github.com/strandkit/strand/pkg/strand/engine"
	"github.com/strandkit/strand/pkg/strand/message"
	"github.com/strandkit/strand/pkg/strand/observability"
	"github.com/strandkit/strand/pkg/strand/stream"
)

// Coordinator wires an execution engine to durable storage and the external
// streaming protocol. Safe for concurrent use across threads; runs on the
// same thread are serialized via ErrThreadBusy.
type Coordinator struct {
	engine engine.Engine
	store  checkpoint.Store
	log    message.Log

	namespace    string
	allowedTools []string
	eventBuffer  int

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	mu    sync.Mutex
	slots map[string]*semaphore.Weighted
}

// New creates a Coordinator from its three required collaborators.
func New(eng engine.Engine, store checkpoint.Store, log message.Log, opts ...Option) (*Coordinator, error) {
	if eng == nil {
		return nil, ErrEngineRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	if log == nil {
		return nil, ErrLogRequired
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Coordinator{
		engine:       eng,
		store:        store,
		log:          log,
		namespace:    cfg.namespace,
		allowedTools: cfg.allowedTools,
		eventBuffer:  cfg.eventBuffer,
		logger:       cfg.logger,
		metrics:      observability.NoopMetrics{},
		spans:        observability.NoopSpanManager{},
		slots:        make(map[string]*semaphore.Weighted),
	}

	if cfg.metrics {
		recorder, err := observability.NewMetricsRecorder()
		if err != nil {
			return nil, fmt.Errorf("create metrics recorder: %w", err)
		}
		c.metrics = recorder
	}
	if cfg.tracing {
		c.spans = observability.NewSpanManager()
	}

	return c, nil
}

// Run executes one turn on a thread and streams its wire events.
//
// The human message is recorded before the engine starts; failures at that
// boundary, and engine start failures, return directly. Once the channel is
// returned the stream terminates with exactly one end or error event, except
// under cancellation, where the channel closes without a terminal event.
//
// The returned channel is closed when the run finishes. A second concurrent
// Run for the same thread returns ErrThreadBusy.
func (c *Coordinator) Run(ctx context.Context, threadID, input string) (<-chan stream.Event, error) {
	if threadID == "" {
		return nil, ErrThreadIDRequired
	}

	slot := c.slot(threadID)
	if !slot.TryAcquire(1) {
		return nil, ErrThreadBusy
	}

	runLogger := observability.EnrichLogger(c.logger, threadID, c.namespace)
	ctx, span := c.spans.StartRunSpan(ctx, threadID, c.namespace)

	// Infrastructure boundary: the human message must be durable before any
	// engine work begins. Failure here aborts the run entirely.
	if err := c.log.Append(ctx, message.New(threadID, message.RoleHuman, input)); err != nil {
		c.metrics.RecordMessageAppend(ctx, false)
		c.spans.EndSpanWithError(span, err)
		slot.Release(1)
		return nil, fmt.Errorf("append human message: %w", err)
	}
	c.metrics.RecordMessageAppend(ctx, true)

	session := engine.Session{
		ThreadID:    threadID,
		Namespace:   c.namespace,
		Checkpoints: c.store,
	}
	notifications, err := c.engine.Execute(ctx, session, input)
	if err != nil {
		c.spans.EndSpanWithError(span, err)
		slot.Release(1)
		return nil, fmt.Errorf("start engine: %w", err)
	}

	observability.LogRunStart(runLogger, threadID)

	out := make(chan stream.Event, c.eventBuffer)
	go c.drive(ctx, driveState{
		threadID:      threadID,
		input:         input,
		notifications: notifications,
		out:           out,
		slot:          slot,
		span:          span,
		logger:        runLogger,
		started:       time.Now(),
	})
	return out, nil
}

// slot returns the per-thread exclusivity semaphore, creating it on first
// use. Slots are never removed; the registry is bounded by the number of
// distinct threads this process has served.
func (c *Coordinator) slot(threadID string) *semaphore.Weighted {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[threadID]
	if !ok {
		s = semaphore.NewWeighted(1)
		c.slots[threadID] = s
	}
	return s
}

// driveState carries one run's plumbing through the drive goroutine.
type driveState struct {
	threadID      string
	input         string
	notifications <-chan engine.Notification
	out           chan stream.Event
	slot          *semaphore.Weighted
	span          trace.Span
	logger        *slog.Logger
	started       time.Time
}

// drive forwards engine notifications through the translator until the run
// reaches a terminal state, then performs completion bookkeeping.
func (c *Coordinator) drive(ctx context.Context, st driveState) {
	defer close(st.out)
	defer st.slot.Release(1)

	tr := stream.New(st.threadID, stream.WithAllowedTools(c.allowedTools...))

	// The start event goes out before any engine notification so the client
	// learns the stream is live immediately.
	if ev, err := tr.Begin(st.input); err == nil {
		if !c.emit(ctx, st.out, ev) {
			c.cancelled(ctx, st)
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			c.cancelled(ctx, st)
			return

		case n, ok := <-st.notifications:
			if !ok {
				// Channel exhaustion without an explicit Done counts as
				// clean completion.
				c.complete(ctx, st, tr)
				return
			}

			switch v := n.(type) {
			case engine.Done:
				c.complete(ctx, st, tr)
				return

			case engine.Failure:
				c.emit(ctx, st.out, tr.Fail(v.Err))
				observability.LogRunError(st.logger, st.threadID, v.Err, c.elapsedMs(st))
				c.metrics.RecordRun(ctx, false, time.Since(st.started))
				c.spans.EndSpanWithError(st.span, v.Err)
				return

			default:
				events, err := tr.Push(n)
				if err != nil {
					observability.LogLateNotification(st.logger, st.threadID)
					continue
				}
				for _, ev := range events {
					if !c.emit(ctx, st.out, ev) {
						c.cancelled(ctx, st)
						return
					}
				}
			}
		}
	}
}

// complete appends the assistant message and emits the end event, in that
// order: the log write is best-effort and must not delay or suppress the
// terminal event, but a consumer that sees end may immediately List the log
// and expect the assistant turn present.
func (c *Coordinator) complete(ctx context.Context, st driveState, tr *stream.Translator) {
	msg := message.New(st.threadID, message.RoleAssistant, tr.FullText())
	if calls := toolCalls(tr.ToolUses()); len(calls) > 0 {
		msg = msg.WithToolCalls(calls)
	}
	if err := c.log.Append(ctx, msg); err != nil {
		observability.LogAppendError(st.logger, st.threadID, err)
		c.metrics.RecordMessageAppend(ctx, false)
	} else {
		c.metrics.RecordMessageAppend(ctx, true)
	}

	if ev, err := tr.Finish(); err == nil {
		c.emit(ctx, st.out, ev)
	}

	observability.LogRunComplete(st.logger, st.threadID, c.elapsedMs(st), len(tr.ToolUses()))
	c.metrics.RecordRun(ctx, true, time.Since(st.started))
	c.spans.EndSpanWithError(st.span, nil)
}

// cancelled records a run cut short by context cancellation. No terminal
// event, no assistant message; checkpoints already written remain the
// thread's recovery point.
func (c *Coordinator) cancelled(ctx context.Context, st driveState) {
	observability.LogRunCancelled(st.logger, st.threadID, c.elapsedMs(st))
	c.metrics.RecordRun(ctx, false, time.Since(st.started))
	c.spans.EndSpanWithError(st.span, ctx.Err())
}

// emit delivers one event, yielding to cancellation when the consumer has
// stopped reading. Returns false if the context ended first.
func (c *Coordinator) emit(ctx context.Context, out chan<- stream.Event, ev stream.Event) bool {
	c.metrics.RecordStreamEvent(ctx, string(ev.Kind))
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Coordinator) elapsedMs(st driveState) float64 {
	return float64(time.Since(st.started).Milliseconds())
}

// toolCalls converts the translator's side-channel tool records into
// message log attachments.
func toolCalls(uses []stream.ToolUse) []message.ToolCall {
	if len(uses) == 0 {
		return nil
	}
	calls := make([]message.ToolCall, len(uses))
	for i, u := range uses {
		calls[i] = message.ToolCall{
			Name:   u.Name,
			Input:  u.Input,
			Output: u.Output,
		}
	}
	return calls
}
