package repository

import (
	"sync/atomic"

	"HyperTrack/internal/domain/models"
)

// SnapshotStore holds the currently published snapshot set behind an
// atomically swapped pointer. The refresher is the single writer; handlers,
// the WebSocket hub and metrics read. Readers always observe a complete
// set, never a half-updated mix of ticks.
type SnapshotStore struct {
	current atomic.Pointer[models.SnapshotSet]
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Publish swaps in a new set. A set must not be mutated after publishing.
func (s *SnapshotStore) Publish(set *models.SnapshotSet) {
	s.current.Store(set)
}

// Current returns the latest published set, nil before the first publish.
func (s *SnapshotStore) Current() *models.SnapshotSet {
	return s.current.Load()
}

// Snapshot looks up one wallet's snapshot by address, case-insensitive.
func (s *SnapshotStore) Snapshot(address string) (*models.WalletSnapshot, bool) {
	set := s.current.Load()
	if set == nil {
		return nil, false
	}
	return set.Find(address)
}
