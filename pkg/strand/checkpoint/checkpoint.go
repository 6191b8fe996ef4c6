package checkpoint

import (
	"time"

	"github.com/google/uuid"
	"github.com/strandkit/strand/pkg/strand/codec"
)

// Checkpoint is an immutable snapshot of execution state at one step.
// Within a (thread, namespace) partition checkpoints chain through ParentID,
// rooted at a checkpoint with no parent. The store never inspects Payload or
// Metadata; both are codec-encoded blobs.
type Checkpoint struct {
	ThreadID  string     `json:"thread_id"`
	Namespace string     `json:"namespace"`
	ID        string     `json:"checkpoint_id"`
	ParentID  string     `json:"parent_checkpoint_id,omitempty"`
	Payload   codec.Blob `json:"payload"`
	Metadata  codec.Blob `json:"metadata"`
	CreatedAt time.Time  `json:"created_at"`

	// PendingWrites are task-scoped partial results staged against this
	// checkpoint after it was written. Populated on read, never on Put.
	PendingWrites []PendingWrite `json:"pending_writes,omitempty"`
}

// PendingWrite is a task-scoped partial result staged between two
// checkpoints. It attaches to the checkpoint that preceded the task.
type PendingWrite struct {
	TaskID    string     `json:"task_id"`
	Writes    codec.Blob `json:"writes"`
	CreatedAt time.Time  `json:"created_at"`
}

// Ref addresses one committed checkpoint.
type Ref struct {
	ThreadID     string `json:"thread_id"`
	Namespace    string `json:"namespace"`
	CheckpointID string `json:"checkpoint_id"`
}

// Ref returns the address of this checkpoint.
func (c *Checkpoint) Ref() Ref {
	return Ref{ThreadID: c.ThreadID, Namespace: c.Namespace, CheckpointID: c.ID}
}

// New creates a parentless checkpoint with a generated ID.
func New(threadID, namespace string, payload, metadata codec.Blob) *Checkpoint {
	return &Checkpoint{
		ThreadID:  threadID,
		Namespace: namespace,
		ID:        uuid.New().String(),
		Payload:   payload,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}

// WithParent chains this checkpoint to an already-committed predecessor.
func (c *Checkpoint) WithParent(parentID string) *Checkpoint {
	c.ParentID = parentID
	return c
}

// Clone returns a deep copy. Stores hand out clones so callers can never
// mutate committed state.
func (c *Checkpoint) Clone() *Checkpoint {
	cp := *c
	cp.Payload = cloneBlob(c.Payload)
	cp.Metadata = cloneBlob(c.Metadata)
	if len(c.PendingWrites) > 0 {
		cp.PendingWrites = make([]PendingWrite, len(c.PendingWrites))
		for i, w := range c.PendingWrites {
			cp.PendingWrites[i] = PendingWrite{
				TaskID:    w.TaskID,
				Writes:    cloneBlob(w.Writes),
				CreatedAt: w.CreatedAt,
			}
		}
	}
	return &cp
}

func cloneBlob(b codec.Blob) codec.Blob {
	if len(b.Data) == 0 {
		return codec.Blob{TypeTag: b.TypeTag}
	}
	data := make([]byte, len(b.Data))
	copy(data, b.Data)
	return codec.Blob{TypeTag: b.TypeTag, Data: data}
}
