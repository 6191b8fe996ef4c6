package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/strandkit/strand/pkg/strand/checkpoint"
	"github.com/strandkit/strand/pkg/strand/codec"
)

// Scripted replays a fixed notification script through the engine port.
// It exercises the checkpoint backend the way a real engine would: it loads
// the latest checkpoint on start, stages tool results as pending writes
// while running, and commits a new checkpoint (chained to the loaded one)
// on completion or cancellation.
type Scripted struct {
	// Script is the notification sequence to replay, in order. A trailing
	// Done is optional; script exhaustion counts as clean completion.
	Script []Notification

	// Codec resolves checkpoint payload types. Defaults to codec.Default().
	Codec *codec.Registry

	// Logger receives best-effort failure notices (pending-write staging).
	// May be nil.
	Logger *slog.Logger
}

// NewScripted creates a scripted engine that replays the given notifications.
func NewScripted(script ...Notification) *Scripted {
	return &Scripted{Script: script}
}

// Execute implements Engine.
func (s *Scripted) Execute(ctx context.Context, session Session, input string) (<-chan Notification, error) {
	if session.ThreadID == "" {
		return nil, errors.New("engine: thread ID is required")
	}
	if session.Checkpoints == nil {
		return nil, errors.New("engine: checkpoint backend is required")
	}

	reg := s.Codec
	if reg == nil {
		reg = codec.Default()
	}

	// Resume point. A corrupt checkpoint fails the execution up front:
	// resuming from wrong state would be worse than refusing.
	state, parentID, step, err := s.load(ctx, reg, session)
	if err != nil {
		return nil, err
	}

	state.Messages = append(state.Messages, StateMessage{Role: "human", Content: input})

	ch := make(chan Notification)
	go s.replay(ctx, reg, session, state, parentID, step, ch)
	return ch, nil
}

// load fetches and decodes the latest checkpoint for the session.
// A missing checkpoint means a fresh thread, not an error.
func (s *Scripted) load(ctx context.Context, reg *codec.Registry, session Session) (State, string, int, error) {
	prior, err := session.Checkpoints.Get(ctx, session.ThreadID, session.Namespace, "")
	if errors.Is(err, checkpoint.ErrNotFound) {
		return State{}, "", 0, nil
	}
	if err != nil {
		return State{}, "", 0, fmt.Errorf("load resume checkpoint: %w", err)
	}

	decoded, err := checkpoint.DecodePayload(reg, prior)
	if err != nil {
		return State{}, "", 0, err
	}
	state, ok := decoded.(State)
	if !ok {
		return State{}, "", 0, &checkpoint.CorruptError{
			Ref: prior.Ref(),
			Err: fmt.Errorf("payload decoded to %T, want engine.State", decoded),
		}
	}

	step := 0
	if meta, err := checkpoint.DecodeMetadata(reg, prior); err == nil {
		if sm, ok := meta.(StepMetadata); ok {
			step = sm.Step
		}
	}

	return state, prior.ID, step, nil
}

func (s *Scripted) replay(ctx context.Context, reg *codec.Registry, session Session, state State, parentID string, step int, ch chan<- Notification) {
	defer close(ch)

	var assistant string
	taskSeq := 0

	for _, n := range s.Script {
		select {
		case <-ctx.Done():
			// Flush what the execution produced so far so the next turn
			// resumes instead of restarting.
			s.commit(context.WithoutCancel(ctx), reg, session, state, assistant, parentID, step+1)
			return
		case ch <- n:
		}

		switch v := n.(type) {
		case TokenDelta:
			assistant += v.Text
		case ToolEnd:
			taskSeq++
			state.Messages = append(state.Messages, StateMessage{
				Role:    "tool",
				Content: normalize(v.Output),
			})
			s.stage(ctx, reg, session, parentID, fmt.Sprintf("task-%d", taskSeq), v)
		case PlanUpdate:
			state.Plan = v.Steps
		case Failure:
			// The last committed checkpoint remains the recovery point.
			return
		case Done:
			if err := s.commit(ctx, reg, session, state, assistant, parentID, step+1); err != nil {
				select {
				case ch <- Failure{Err: err}:
				case <-ctx.Done():
				}
			}
			return
		}
	}

	// Script exhausted without an explicit Done: still a clean completion.
	if err := s.commit(ctx, reg, session, state, assistant, parentID, step+1); err != nil {
		select {
		case ch <- Failure{Err: err}:
		case <-ctx.Done():
		}
		return
	}
	select {
	case ch <- Done{}:
	case <-ctx.Done():
	}
}

// commit writes the post-turn checkpoint, chained to the resume point.
func (s *Scripted) commit(ctx context.Context, reg *codec.Registry, session Session, state State, assistant, parentID string, step int) error {
	if assistant != "" {
		state.Messages = append(state.Messages, StateMessage{Role: "assistant", Content: assistant})
	}

	payload, err := reg.Encode(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	meta, err := reg.Encode(StepMetadata{Step: step, Writer: "scripted"})
	if err != nil {
		return fmt.Errorf("encode step metadata: %w", err)
	}

	cp := checkpoint.New(session.ThreadID, session.Namespace, payload, meta)
	if parentID != "" {
		cp.WithParent(parentID)
	}
	if _, err := session.Checkpoints.Put(ctx, cp); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

// stage records a tool result as a pending write against the resume
// checkpoint. Best-effort: a staging failure degrades observability, not
// correctness, so it is logged and dropped.
func (s *Scripted) stage(ctx context.Context, reg *codec.Registry, session Session, checkpointID, taskID string, result ToolEnd) {
	if checkpointID == "" {
		return
	}
	blob, err := reg.Encode(ToolResult{Tool: result.Name, Output: normalize(result.Output)})
	if err == nil {
		err = session.Checkpoints.Stage(ctx, session.ThreadID, session.Namespace, checkpointID, taskID, blob)
	}
	if err != nil && s.Logger != nil {
		s.Logger.Warn("pending write dropped",
			slog.String("thread_id", session.ThreadID),
			slog.String("task_id", taskID),
			slog.String("error", err.Error()),
		)
	}
}

// normalize renders an engine-shaped tool output as text, preferring a
// textual content field over a structural dump.
func normalize(output any) string {
	switch v := output.(type) {
	case string:
		return v
	case map[string]any:
		if content, ok := v["content"].(string); ok {
			return content
		}
	}
	return fmt.Sprintf("%v", output)
}
