package memory

import (
	"context"
	"sync"

	"campaign-signal-lab/internal/storage"
)

// CheckpointStore is an in-memory implementation of storage.CheckpointStore.
type CheckpointStore struct {
	mu   sync.RWMutex
	data map[string]storage.RefreshCheckpoint // keyed by account_id
}

// NewCheckpointStore creates a new in-memory checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{data: make(map[string]storage.RefreshCheckpoint)}
}

// Compile-time interface check.
var _ storage.CheckpointStore = (*CheckpointStore)(nil)

// GetLastIngested returns the checkpoint for an account.
func (s *CheckpointStore) GetLastIngested(_ context.Context, accountID string) (*storage.RefreshCheckpoint, error) {
	if accountID == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.data[accountID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := cp
	return &out, nil
}

// SetLastIngested upserts the checkpoint for an account.
func (s *CheckpointStore) SetLastIngested(_ context.Context, cp *storage.RefreshCheckpoint) error {
	if cp == nil || cp.AccountID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[cp.AccountID] = *cp
	return nil
}
