package repository

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"HyperTrack/internal/domain/models"
)

func testSet(tick uint64, addresses ...string) *models.SnapshotSet {
	set := &models.SnapshotSet{TakenAt: time.Now(), Tick: tick}
	for _, a := range addresses {
		set.Snapshots = append(set.Snapshots, models.WalletSnapshot{
			Wallet: models.WalletConfig{Label: a, Address: a},
		})
	}
	return set
}

func TestSnapshotStoreEmpty(t *testing.T) {
	s := NewSnapshotStore()
	if s.Current() != nil {
		t.Error("expected nil before first publish")
	}
	if _, ok := s.Snapshot("0xabc"); ok {
		t.Error("expected no snapshot before first publish")
	}
}

func TestSnapshotStorePublishAndLookup(t *testing.T) {
	s := NewSnapshotStore()
	s.Publish(testSet(1, "0xAbC123", "0xDEF456"))

	cur := s.Current()
	if cur == nil || cur.Tick != 1 {
		t.Fatalf("expected tick 1 published, got %+v", cur)
	}

	snap, ok := s.Snapshot("0xabc123")
	if !ok {
		t.Fatal("expected case-insensitive lookup to hit")
	}
	if snap.Wallet.Address != "0xAbC123" {
		t.Errorf("wrong snapshot: %+v", snap.Wallet)
	}
	if _, ok := s.Snapshot("0x999"); ok {
		t.Error("expected miss for unknown address")
	}
}

func TestSnapshotStoreSwapIsWholesale(t *testing.T) {
	s := NewSnapshotStore()
	s.Publish(testSet(1, "0xaaa"))
	s.Publish(testSet(2, "0xbbb"))

	if got := s.Current().Tick; got != 2 {
		t.Fatalf("expected tick 2 visible, got %d", got)
	}
	if _, ok := s.Snapshot("0xaaa"); ok {
		t.Error("old set must be fully superseded")
	}
}

func TestSnapshotStoreConcurrentReaders(t *testing.T) {
	s := NewSnapshotStore()
	done := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				set := s.Current()
				if set == nil {
					continue
				}
				// a visible set is always complete
				if len(set.Snapshots) != int(set.Tick) {
					t.Errorf("torn read: tick %d with %d snapshots", set.Tick, len(set.Snapshots))
					return
				}
			}
		}()
	}

	for tick := uint64(1); tick <= 50; tick++ {
		addrs := make([]string, 0, tick)
		for j := uint64(0); j < tick; j++ {
			addrs = append(addrs, fmt.Sprintf("0x%040d", j))
		}
		s.Publish(testSet(tick, addrs...))
	}
	close(done)
	wg.Wait()
}
