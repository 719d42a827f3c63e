package session

import (
	"context"
	"log/slog"
	"sync"
)

// Persister stores the session durably between runs.
// Implementations: file on disk (prod), in-memory (test).
type Persister interface {
	// Load reads the persisted session. A nil session with a nil error
	// means no session is persisted.
	Load() (*Session, error)

	// Save writes the session durably.
	Save(*Session) error

	// Clear removes the persisted session.
	Clear() error
}

// Store is the single source of truth for the current session.
//
// Reads and writes are goroutine-safe; concurrent writers (the request
// pipeline's refresh flow versus an explicit logout) are linearized by
// the store's lock, last write wins.
//
// Persisted state loads asynchronously via Hydrate. Until hydration
// completes, consumers cannot tell "no session yet known" apart from
// "confirmed no session"; Hydrated and HydrationDone expose that.
type Store struct {
	mu        sync.RWMutex
	current   Session
	hydrated  bool
	persister Persister
	logger    *slog.Logger

	hydratedCh chan struct{}
	once       sync.Once
}

// NewStore creates a Store backed by the given persister.
// The store starts empty and un-hydrated; call Hydrate to load
// persisted state.
func NewStore(p Persister, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		persister:  p,
		logger:     logger,
		hydratedCh: make(chan struct{}),
	}
}

// Get returns the current in-memory session.
func (s *Store) Get() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set replaces the full session atomically and writes it through to the
// persister. A persistence failure is logged but does not affect the
// in-memory update.
func (s *Store) Set(sess Session) {
	sess = sess.normalized()

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	if s.persister == nil {
		return
	}
	if err := s.persister.Save(&sess); err != nil {
		s.logger.Warn("failed to persist session", "error", err)
	}
}

// Clear resets to the unauthenticated state and removes the persisted
// copy. Like Set, a persistence failure is non-fatal.
func (s *Store) Clear() {
	s.mu.Lock()
	s.current = Session{}
	s.mu.Unlock()

	if s.persister == nil {
		return
	}
	if err := s.persister.Clear(); err != nil {
		s.logger.Warn("failed to clear persisted session", "error", err)
	}
}

// Hydrate loads the persisted session into memory. It is intended to run
// once, in the background, at startup. A load failure leaves the store
// empty but still marks hydration complete: a corrupt or unreadable file
// is a confirmed "no session", not an unknown state.
func (s *Store) Hydrate(ctx context.Context) {
	defer s.finishHydration()

	if s.persister == nil {
		return
	}
	if err := ctx.Err(); err != nil {
		s.logger.Warn("session hydration aborted", "error", err)
		return
	}

	sess, err := s.persister.Load()
	if err != nil {
		s.logger.Warn("failed to load persisted session", "error", err)
		return
	}
	if sess == nil {
		return
	}

	s.mu.Lock()
	// A login that raced hydration wins over stale disk state.
	if !s.current.Authenticated() {
		s.current = sess.normalized()
	}
	s.mu.Unlock()
}

// Hydrated reports whether the initial load has completed.
func (s *Store) Hydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

// HydrationDone returns a channel that is closed once hydration
// completes. It never closes if Hydrate is never called.
func (s *Store) HydrationDone() <-chan struct{} {
	return s.hydratedCh
}

func (s *Store) finishHydration() {
	s.mu.Lock()
	s.hydrated = true
	s.mu.Unlock()
	s.once.Do(func() { close(s.hydratedCh) })
}
