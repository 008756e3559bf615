package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vegasq/tablescope/internal/dataset"
	"github.com/vegasq/tablescope/internal/metrics"
)

// Options configures a MemoryStore.
type Options struct {
	// TTL defaults to DefaultTTL.
	TTL time.Duration

	// MaxEntries bounds the number of sessions. Zero means unbounded.
	MaxEntries int

	// Now defaults to time.Now.
	Now func() time.Time

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// MemoryStore implements Store using an in-memory map with TTL-based
// expiration. Expired entries are swept on Get and Cleanup; no goroutine runs
// in the background.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Record

	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	logger     *slog.Logger
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore(opts Options) *MemoryStore {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &MemoryStore{
		sessions:   make(map[string]*Record),
		ttl:        opts.TTL,
		maxEntries: opts.MaxEntries,
		now:        opts.Now,
		logger:     opts.Logger,
	}
}

// Put stores ds under id with a fresh creation time and owner.
func (s *MemoryStore) Put(_ context.Context, id, owner string, ds *dataset.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if _, exists := s.sessions[id]; !exists && s.maxEntries > 0 {
		s.sweep(now)
		for len(s.sessions) > 0 && len(s.sessions) >= s.maxEntries {
			s.evictOldest()
		}
	}

	s.sessions[id] = &Record{Dataset: ds, Owner: owner, CreatedAt: now}
	metrics.SessionsStored.Inc()
	s.logger.Debug("session: stored",
		"session_id", id,
		"rows", ds.Len(),
		"columns", ds.NumColumns())
	return nil
}

// Get sweeps expired sessions, then returns the dataset stored under id.
// A session stored by a different owner is reported as ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, id, owner string) (*dataset.Dataset, error) {
	s.mu.Lock()
	s.sweep(s.now())
	rec, ok := s.sessions[id]
	s.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	if rec.Owner != owner {
		s.logger.Warn("session: owner mismatch", "session_id", id)
		return nil, ErrNotFound
	}
	return rec.Dataset, nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		metrics.SessionsEvicted.WithLabelValues("deleted").Inc()
	}
	return nil
}

// Cleanup removes expired sessions.
func (s *MemoryStore) Cleanup(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(s.now())
	return nil
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

// sweep must be called with mu held.
func (s *MemoryStore) sweep(now time.Time) {
	for id, rec := range s.sessions {
		if now.Sub(rec.CreatedAt) > s.ttl {
			delete(s.sessions, id)
			metrics.SessionsEvicted.WithLabelValues("ttl").Inc()
			s.logger.Info("session: expired", "session_id", id)
		}
	}
}

// evictOldest must be called with mu held.
func (s *MemoryStore) evictOldest() {
	var (
		oldestID string
		oldest   time.Time
		found    bool
	)
	for id, rec := range s.sessions {
		if !found || rec.CreatedAt.Before(oldest) {
			oldestID, oldest, found = id, rec.CreatedAt, true
		}
	}
	if !found {
		return
	}
	delete(s.sessions, oldestID)
	metrics.SessionsEvicted.WithLabelValues("capacity").Inc()
	s.logger.Info("session: evicted for capacity", "session_id", oldestID)
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
