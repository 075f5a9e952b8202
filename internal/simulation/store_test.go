package simulation

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestMemoryStateStore_PutGetDelete(t *testing.T) {
	store := NewMemoryStateStore(time.Hour, time.Minute, zap.NewNop())

	if _, ok := store.Get("alice"); ok {
		t.Error("Expected no state for unknown user")
	}

	st := NewState(SessionBudgetSeconds)
	store.Put("alice", st)

	got, ok := store.Get("alice")
	if !ok || got != st {
		t.Error("Expected to read back the stored state")
	}

	store.Delete("alice")
	if _, ok := store.Get("alice"); ok {
		t.Error("Expected state gone after delete")
	}
}

func TestMemoryStateStore_SweepExpired(t *testing.T) {
	store := NewMemoryStateStore(time.Minute, time.Minute, zap.NewNop())

	store.Put("alice", NewState(SessionBudgetSeconds))
	store.Put("bob", NewState(SessionBudgetSeconds))

	if removed := store.sweep(time.Now()); removed != 0 {
		t.Errorf("Expected nothing swept before TTL, removed %d", removed)
	}

	if removed := store.sweep(time.Now().Add(2 * time.Minute)); removed != 2 {
		t.Errorf("Expected both entries swept after TTL, removed %d", removed)
	}
	if store.Len() != 0 {
		t.Errorf("Expected empty store, got %d entries", store.Len())
	}
}

func TestMemoryStateStore_GetRefreshesExpiry(t *testing.T) {
	store := NewMemoryStateStore(time.Minute, time.Minute, zap.NewNop())
	store.Put("alice", NewState(SessionBudgetSeconds))

	// Touch the entry, then sweep as-of just under two minutes later; the
	// refreshed entry survives.
	time.Sleep(10 * time.Millisecond)
	if _, ok := store.Get("alice"); !ok {
		t.Fatal("Expected state present")
	}
	if removed := store.sweep(time.Now().Add(59 * time.Second)); removed != 0 {
		t.Errorf("Expected refreshed entry to survive, removed %d", removed)
	}
}
