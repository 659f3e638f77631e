package agent

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/domain"
)

// StateStore persists conversation states between turns, keyed by thread ID.
type StateStore interface {
	// Load returns the saved state for threadID. ok is false when none exists.
	Load(ctx context.Context, threadID string) (state domain.ConversationState, ok bool, err error)

	// Save stores state under state.ThreadID, replacing any previous copy.
	Save(ctx context.Context, state domain.ConversationState) error

	// Delete removes a thread. Deleting a missing thread is not an error.
	Delete(ctx context.Context, threadID string) error

	// List returns all thread IDs.
	List(ctx context.Context) ([]string, error)
}

// MemoryStateStore is an in-memory StateStore implementation.
type MemoryStateStore struct {
	mu      sync.RWMutex
	threads map[string]domain.ConversationState
}

// NewMemoryStateStore creates an in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{threads: make(map[string]domain.ConversationState)}
}

func (s *MemoryStateStore) Load(_ context.Context, threadID string) (domain.ConversationState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.threads[threadID]
	if !ok {
		return domain.ConversationState{}, false, nil
	}
	return st.Clone(), true, nil
}

func (s *MemoryStateStore) Save(_ context.Context, state domain.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now()
	}
	s.threads[state.ThreadID] = state.Clone()
	return nil
}

func (s *MemoryStateStore) Delete(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
	return nil
}

func (s *MemoryStateStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.threads))
	for id := range s.threads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
