// Package engine defines the port to the external execution engine.
//
// The engine itself (planning, tool calls, token generation) is an external
// collaborator: the core only consumes its notification stream and supplies
// it a checkpoint load/save backend. Scripted is an in-process engine that
// replays a fixed notification script, used by tests and examples.
package engine

import (
	"context"

	"github.com/strandkit/strand/pkg/strand/checkpoint"
	"github.com/strandkit/strand/pkg/strand/codec"
)

// Saver is the checkpoint backend the coordinator lends to the engine for
// the duration of one execution. checkpoint.Store satisfies it.
type Saver interface {
	Put(ctx context.Context, cp *checkpoint.Checkpoint) (checkpoint.Ref, error)
	Get(ctx context.Context, threadID, namespace, checkpointID string) (*checkpoint.Checkpoint, error)
	Stage(ctx context.Context, threadID, namespace, checkpointID, taskID string, writes codec.Blob) error
}

// Session identifies one execution and carries its checkpoint backend.
type Session struct {
	ThreadID    string
	Namespace   string
	Checkpoints Saver
}

// Engine starts an execution and exposes its internal event stream.
// The returned channel is closed when the execution finishes, fails, or is
// cancelled. Errors returned directly from Execute are infrastructure
// failures that occurred before any event was produced.
type Engine interface {
	Execute(ctx context.Context, session Session, input string) (<-chan Notification, error)
}

// Notification is one internal engine event. The set is heterogeneous and
// partially typed by design: the translator decides what becomes externally
// visible.
type Notification interface {
	notification()
}

// TokenDelta carries one fragment of generated assistant text.
type TokenDelta struct {
	Text string
}

// ToolStart signals a tool invocation beginning.
type ToolStart struct {
	Name  string
	Input map[string]any
}

// ToolEnd signals a tool invocation finishing. Output is engine-shaped and
// untyped; the translator normalizes it.
type ToolEnd struct {
	Name   string
	Output any
}

// PlanUpdate carries an internal plan revision. Never externally visible.
type PlanUpdate struct {
	Steps []string
}

// Done signals clean completion of the execution.
type Done struct{}

// Failure signals the execution raised mid-stream.
type Failure struct {
	Err error
}

func (TokenDelta) notification() {}
func (ToolStart) notification()  {}
func (ToolEnd) notification()    {}
func (PlanUpdate) notification() {}
func (Done) notification()       {}
func (Failure) notification()    {}
