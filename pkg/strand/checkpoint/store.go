// Package checkpoint provides durable, lineage-aware storage for execution
// snapshots. Checkpoints are keyed by (thread, namespace, checkpoint id) and
// chain through parent pointers; "latest" always means most recently created,
// not lexically greatest ID.
package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/strandkit/strand/pkg/strand/codec"
)

// Store persists checkpoints and staged pending writes.
// Implementations must be safe for concurrent use, and each call must run in
// its own transactional boundary. Records are append-only: a committed
// checkpoint is never updated.
type Store interface {
	// Put commits a new checkpoint. The checkpoint ID must be unique within
	// its (thread, namespace); a second Put for the same identity fails with
	// ErrDuplicate. A non-empty ParentID must reference an already-committed
	// checkpoint in the same partition, otherwise ErrParentNotFound.
	Put(ctx context.Context, cp *Checkpoint) (Ref, error)

	// Get retrieves one checkpoint. An empty checkpointID selects the most
	// recently created checkpoint for (threadID, namespace). Returns
	// ErrNotFound when no checkpoint matches and *CorruptError when the
	// stored payload is no longer readable.
	Get(ctx context.Context, threadID, namespace, checkpointID string) (*Checkpoint, error)

	// List returns checkpoints in reverse-chronological creation order.
	// Each call re-queries from scratch; results are a finite snapshot.
	List(ctx context.Context, threadID, namespace string, opts ListOptions) ([]*Checkpoint, error)

	// Stage attaches task-scoped partial writes to an existing checkpoint.
	// If the checkpoint does not exist yet the call is a no-op, not an
	// error: staging races the checkpoint write and must never abort the
	// execution step. Repeated stages for the same task ID overwrite.
	Stage(ctx context.Context, threadID, namespace, checkpointID, taskID string, writes codec.Blob) error

	// Close releases any resources held by the store.
	Close() error
}

// ListOptions restricts a List call.
type ListOptions struct {
	// Before restricts results to checkpoints created strictly earlier than
	// the checkpoint with this ID. Empty means no restriction.
	Before string

	// Limit caps the number of results. Zero means no cap.
	Limit int
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates no checkpoint matches the requested identity.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrDuplicate indicates a Put reused an existing checkpoint ID within
	// its (thread, namespace). Rejecting the write protects lineage.
	ErrDuplicate = errors.New("duplicate checkpoint")

	// ErrParentNotFound indicates a Put referenced a parent that was never
	// committed in the same (thread, namespace).
	ErrParentNotFound = errors.New("parent checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)

// CorruptError indicates a stored checkpoint payload can no longer be read.
// Callers must not substitute a default or empty state; a corrupt recovery
// point fails the resume.
type CorruptError struct {
	Ref Ref
	Err error
}

// Error implements the error interface.
func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt checkpoint %s/%s/%s: %v",
		e.Ref.ThreadID, e.Ref.Namespace, e.Ref.CheckpointID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CorruptError) Unwrap() error {
	return e.Err
}
