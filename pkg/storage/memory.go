package storage

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore keeps the latest snapshot per station in memory.
// It is safe for concurrent use by multiple goroutines.
//
// If a TTL is configured, a background goroutine removes snapshots that have
// not been refreshed within the TTL, so a stalled pipeline does not serve
// arbitrarily old state. Single-process deployments want this store;
// multi-instance dashboards should use RedisStore.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]Snapshot

	ttl           time.Duration
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	cleanupDone   chan struct{}
	stopOnce      sync.Once
}

// NewMemoryStore creates an in-memory snapshot store with no TTL.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]Snapshot),
	}
}

// NewMemoryStoreWithTTL creates an in-memory store that expires snapshots
// older than ttl. The cleanup goroutine runs every cleanupInterval
// (defaulting to one minute) and must be stopped with Stop.
func NewMemoryStoreWithTTL(ttl, cleanupInterval time.Duration) *MemoryStore {
	if ttl <= 0 {
		panic("TTL must be positive")
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	store := &MemoryStore{
		snapshots:     make(map[string]Snapshot),
		ttl:           ttl,
		cleanupTicker: time.NewTicker(cleanupInterval),
		stopCleanup:   make(chan struct{}),
		cleanupDone:   make(chan struct{}),
	}

	go store.runCleanup()

	return store
}

// Stop shuts down the cleanup goroutine, blocking until it exits.
// Safe to call multiple times and on stores created without TTL.
func (s *MemoryStore) Stop() {
	if s.cleanupTicker == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopCleanup)
		<-s.cleanupDone
		s.cleanupTicker.Stop()
	})
}

func (s *MemoryStore) runCleanup() {
	defer close(s.cleanupDone)

	for {
		select {
		case <-s.cleanupTicker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for station, snapshot := range s.snapshots {
		if now.Sub(snapshot.GeneratedAt) > s.ttl {
			delete(s.snapshots, station)
		}
	}
}

// Put stores a snapshot, replacing any previous snapshot for its station.
func (s *MemoryStore) Put(ctx context.Context, snapshot Snapshot) error {
	if snapshot.Station == "" {
		return errors.New("snapshot station cannot be empty")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snapshot.Station] = snapshot
	return nil
}

// GetLatest retrieves the most recent snapshot for a station.
// found is false when no snapshot exists for the station.
func (s *MemoryStore) GetLatest(ctx context.Context, station string) (Snapshot, bool, error) {
	select {
	case <-ctx.Done():
		return Snapshot{}, false, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, found := s.snapshots[station]
	return snapshot, found, nil
}

// Len returns the number of stations with a stored snapshot.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

// Delete removes a station's snapshot, reporting whether one existed.
func (s *MemoryStore) Delete(station string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.snapshots[station]
	delete(s.snapshots, station)
	return existed
}
