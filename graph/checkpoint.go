package graph

import (
	"context"
	"sync"
)

// Checkpoint is a snapshot of a suspended conversation thread: the state
// record plus the cursor, i.e. the node that should run right after the next
// user message arrives.
type Checkpoint struct {
	Cursor string
	State  State
}

// Checkpointer persists one checkpoint per thread identifier. The store owns
// durability; if multiple processes may resume the same thread concurrently
// it must provide atomic read-modify-write per thread.
type Checkpointer interface {
	// Get retrieves the checkpoint for a thread, reporting whether one exists.
	Get(ctx context.Context, threadID string) (*Checkpoint, bool, error)
	// Put creates or overwrites the checkpoint for a thread.
	Put(ctx context.Context, threadID string, checkpoint *Checkpoint) error
	// Delete removes the checkpoint for a thread.
	Delete(ctx context.Context, threadID string) error
}

// MemorySaver is an in-memory Checkpointer. State is cloned on both read and
// write so callers never share the stored map.
type MemorySaver struct {
	mu      sync.RWMutex
	threads map[string]*Checkpoint
}

// NewMemorySaver creates an empty MemorySaver.
func NewMemorySaver() *MemorySaver {
	return &MemorySaver{threads: make(map[string]*Checkpoint)}
}

// Get retrieves the checkpoint for a thread.
func (s *MemorySaver) Get(_ context.Context, threadID string) (*Checkpoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	checkpoint, ok := s.threads[threadID]
	if !ok {
		return nil, false, nil
	}
	return &Checkpoint{Cursor: checkpoint.Cursor, State: checkpoint.State.Clone()}, true, nil
}

// Put creates or overwrites the checkpoint for a thread.
func (s *MemorySaver) Put(_ context.Context, threadID string, checkpoint *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[threadID] = &Checkpoint{Cursor: checkpoint.Cursor, State: checkpoint.State.Clone()}
	return nil
}

// Delete removes the checkpoint for a thread.
func (s *MemorySaver) Delete(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
	return nil
}
