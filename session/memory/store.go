// Package memory provides an in-process session store for tests and
// single-node deployments.
package memory

import (
	"context"
	"sync"
	"time"

	till "github.com/xraph/till"
	"github.com/xraph/till/session"
)

// compile-time interface check
var _ session.Store = (*Store)(nil)

// DefaultTTL applies when Put is called with a zero ttl.
const DefaultTTL = 30 * time.Minute

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Store keeps session entries in a map with lazy expiry: stale entries are
// dropped on read and by a background sweep.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry

	stop     chan struct{}
	stopOnce sync.Once

	// now is swappable in tests.
	now func() time.Time
}

// New creates a session store and starts its expiry sweep.
func New() *Store {
	s := &Store{
		entries: make(map[string]entry),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
	go s.sweep()
	return s
}

func (s *Store) Put(_ context.Context, sessionID, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	buf := make([]byte, len(value))
	copy(buf, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[compositeKey(sessionID, key)] = entry{
		value:     buf,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *Store) Get(_ context.Context, sessionID, key string) ([]byte, error) {
	ck := compositeKey(sessionID, key)

	s.mu.RLock()
	e, ok := s.entries[ck]
	s.mu.RUnlock()

	if !ok {
		return nil, till.ErrSessionMiss
	}
	if s.now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.entries, ck)
		s.mu.Unlock()
		return nil, till.ErrSessionMiss
	}

	buf := make([]byte, len(e.value))
	copy(buf, e.value)
	return buf, nil
}

func (s *Store) Delete(_ context.Context, sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, compositeKey(sessionID, key))
	return nil
}

// Close stops the expiry sweep.
func (s *Store) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *Store) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			now := s.now()
			s.mu.Lock()
			for k, e := range s.entries {
				if now.After(e.expiresAt) {
					delete(s.entries, k)
				}
			}
			s.mu.Unlock()
		}
	}
}

func compositeKey(sessionID, key string) string {
	return sessionID + ":" + key
}
