package checkpoint

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/strandkit/strand/pkg/strand/codec"
)

// MemoryStore is an in-memory checkpoint store for testing and development.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	parts  map[partitionKey]*partition
	closed bool
}

type partitionKey struct {
	threadID  string
	namespace string
}

// partition holds one (thread, namespace) chain. order preserves creation
// order so "latest" and List stay correct even when CreatedAt ties.
type partition struct {
	byID   map[string]*Checkpoint
	order  []string
	writes map[string]map[string]PendingWrite // checkpointID -> taskID -> write
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{parts: make(map[partitionKey]*partition)}
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, cp *Checkpoint) (Ref, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Ref{}, ErrStoreClosed
	}

	key := partitionKey{cp.ThreadID, cp.Namespace}
	part := m.parts[key]
	if part == nil {
		part = &partition{
			byID:   make(map[string]*Checkpoint),
			writes: make(map[string]map[string]PendingWrite),
		}
		m.parts[key] = part
	}

	if _, exists := part.byID[cp.ID]; exists {
		return Ref{}, ErrDuplicate
	}
	if cp.ParentID != "" {
		if _, ok := part.byID[cp.ParentID]; !ok {
			return Ref{}, ErrParentNotFound
		}
	}

	stored := cp.Clone()
	stored.PendingWrites = nil
	part.byID[stored.ID] = stored
	part.order = append(part.order, stored.ID)

	return stored.Ref(), nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, threadID, namespace, checkpointID string) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	part := m.parts[partitionKey{threadID, namespace}]
	if part == nil || len(part.order) == 0 {
		return nil, ErrNotFound
	}

	id := checkpointID
	if id == "" {
		id = part.order[len(part.order)-1]
	}

	cp, ok := part.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.withWrites(part, cp), nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, threadID, namespace string, opts ListOptions) ([]*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	part := m.parts[partitionKey{threadID, namespace}]
	if part == nil {
		return nil, nil
	}

	// Walk creation order newest-first. An unknown Before checkpoint
	// applies no restriction.
	end := len(part.order)
	if opts.Before != "" {
		for i, id := range part.order {
			if id == opts.Before {
				end = i
				break
			}
		}
	}

	var result []*Checkpoint
	for i := end - 1; i >= 0; i-- {
		if opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
		result = append(result, m.withWrites(part, part.byID[part.order[i]]))
	}
	return result, nil
}

// Stage implements Store.
func (m *MemoryStore) Stage(_ context.Context, threadID, namespace, checkpointID, taskID string, writes codec.Blob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	part := m.parts[partitionKey{threadID, namespace}]
	if part == nil {
		return nil
	}
	if _, ok := part.byID[checkpointID]; !ok {
		// Nothing to attach to yet; staging races the checkpoint write.
		return nil
	}

	if part.writes[checkpointID] == nil {
		part.writes[checkpointID] = make(map[string]PendingWrite)
	}
	part.writes[checkpointID][taskID] = PendingWrite{
		TaskID:    taskID,
		Writes:    cloneBlob(writes),
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.parts = nil
	return nil
}

// Len returns the total number of checkpoints across all partitions.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, part := range m.parts {
		count += len(part.order)
	}
	return count
}

// withWrites clones cp and attaches its staged writes ordered by staging time.
func (m *MemoryStore) withWrites(part *partition, cp *Checkpoint) *Checkpoint {
	out := cp.Clone()
	staged := part.writes[cp.ID]
	if len(staged) == 0 {
		return out
	}
	out.PendingWrites = make([]PendingWrite, 0, len(staged))
	for _, w := range staged {
		out.PendingWrites = append(out.PendingWrites, PendingWrite{
			TaskID:    w.TaskID,
			Writes:    cloneBlob(w.Writes),
			CreatedAt: w.CreatedAt,
		})
	}
	sortWrites(out.PendingWrites)
	return out
}

// sortWrites orders pending writes by staging time, then task ID for ties.
func sortWrites(writes []PendingWrite) {
	sort.Slice(writes, func(i, j int) bool {
		if !writes[i].CreatedAt.Equal(writes[j].CreatedAt) {
			return writes[i].CreatedAt.Before(writes[j].CreatedAt)
		}
		return writes[i].TaskID < writes[j].TaskID
	})
}
