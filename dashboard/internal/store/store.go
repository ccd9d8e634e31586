package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fetalalert/fetalalert/dashboard/internal/view"
)

// Entry is a rendered view together with the time it was stored.
type Entry struct {
	View      *view.View
	UpdatedAt time.Time
}

// Store is a thread-safe in-memory holder of the last rendered view.
// The view is considered stale once it is older than the configured TTL;
// a background goroutine (Run) logs when that happens.
type Store struct {
	mu    sync.RWMutex
	entry *Entry
	ttl   time.Duration
	stale bool
	now   func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		ttl: ttl,
		now: time.Now,
	}
}

// Put replaces the stored view.
// Callers must not modify v after calling Put.
func (s *Store) Put(v *view.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry = &Entry{View: v, UpdatedAt: s.now()}
	s.stale = false
}

// Latest returns the stored entry and whether it is stale. With nothing
// stored it returns nil, true.
func (s *Store) Latest() (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil {
		return nil, true
	}
	return s.entry, s.isStale(s.now())
}

// Age returns how long ago the view was stored, or zero when empty.
func (s *Store) Age() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil {
		return 0
	}
	return s.now().Sub(s.entry.UpdatedAt)
}

func (s *Store) isStale(now time.Time) bool {
	return s.ttl > 0 && !s.entry.UpdatedAt.After(now.Add(-s.ttl))
}

// checkStale reports whether the stored view turned stale since the last
// check. It returns true once per transition.
func (s *Store) checkStale(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry == nil || s.stale || !s.isStale(now) {
		return false
	}
	s.stale = true
	return true
}

// Run watches the stored view and logs when it goes stale. It ticks at half
// the TTL interval (minimum 1 second). Run blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if s.checkStale(now) {
				slog.Warn("store: view is stale", "age", s.Age().Round(time.Second), "ttl", s.ttl)
			}
		}
	}
}
