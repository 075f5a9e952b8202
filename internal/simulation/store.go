package simulation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StateStore holds ephemeral per-user simulation state between requests.
type StateStore interface {
	Get(userID string) (*State, bool)
	Put(userID string, st *State)
	Delete(userID string)
}

type storeEntry struct {
	state   *State
	touched time.Time
}

// MemoryStateStore is the default in-process StateStore. Entries expire
// after the configured TTL so abandoned sessions do not accumulate.
type MemoryStateStore struct {
	mu       sync.Mutex
	entries  map[string]*storeEntry
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// NewMemoryStateStore creates a store whose entries expire after ttl.
// cleanupInterval controls how often the janitor sweeps.
func NewMemoryStateStore(ttl, cleanupInterval time.Duration, logger *zap.Logger) *MemoryStateStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	return &MemoryStateStore{
		entries:  make(map[string]*storeEntry),
		ttl:      ttl,
		interval: cleanupInterval,
		logger:   logger,
	}
}

// Get returns the state for a user, refreshing its expiry.
func (s *MemoryStateStore) Get(userID string) (*State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		return nil, false
	}
	e.touched = time.Now()
	return e.state, true
}

// Put stores or replaces the state for a user.
func (s *MemoryStateStore) Put(userID string, st *State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = &storeEntry{state: st, touched: time.Now()}
}

// Delete removes the state for a user.
func (s *MemoryStateStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
}

// Len returns the number of live entries.
func (s *MemoryStateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// CleanupExpired sweeps expired entries until the context is cancelled.
// Run it in its own goroutine.
func (s *MemoryStateStore) CleanupExpired(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := s.sweep(time.Now())
			if removed > 0 && s.logger != nil {
				s.logger.Info("swept expired simulation state",
					zap.Int("removed", removed),
					zap.Duration("ttl", s.ttl),
				)
			}
		}
	}
}

func (s *MemoryStateStore) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for userID, e := range s.entries {
		if now.Sub(e.touched) > s.ttl {
			delete(s.entries, userID)
			removed++
		}
	}
	return removed
}
