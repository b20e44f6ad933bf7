package session

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultTTL             = 15 * time.Minute
	defaultJanitorInterval = time.Minute
)

// Jar remembers credentials that were already verified.
type Jar interface {
	// Valid reports whether key was remembered for username and has not expired.
	Valid(username, key string) bool
	// Remember stores a verified key for username until the TTL elapses.
	Remember(username, key string)
	// Forget drops whatever is remembered for username.
	Forget(username string)
}

type entry struct {
	digest  [sha256.Size]byte
	expires time.Time
}

// Store is the in-memory Jar. Only digests of keys are kept. Expired entries are
// ignored on read and evicted by Run.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]entry
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	interval := defaultJanitorInterval
	if ttl < interval {
		interval = ttl
	}
	return &Store{
		entries:  make(map[string]entry),
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

func (s *Store) Valid(username, key string) bool {
	s.mu.RLock()
	e, ok := s.entries[username]
	s.mu.RUnlock()
	if !ok || !s.now().Before(e.expires) {
		return false
	}
	digest := sha256.Sum256([]byte(key))
	return subtle.ConstantTimeCompare(digest[:], e.digest[:]) == 1
}

func (s *Store) Remember(username, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[username] = entry{
		digest:  sha256.Sum256([]byte(key)),
		expires: s.now().Add(s.ttl),
	}
}

func (s *Store) Forget(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, username)
}

// Len returns the number of entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Evict removes expired entries and returns how many were dropped.
func (s *Store) Evict() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for user, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, user)
			evicted++
		}
	}
	return evicted
}

// Run evicts expired entries periodically until ctx is done.
func (s *Store) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Debug("session janitor start", "ttl", s.ttl, "interval", s.interval)
	defer slog.Debug("session janitor stop")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Evict(); n > 0 {
				slog.Debug("session janitor evicted", "count", n)
			}
		}
	}
}

var _ Jar = (*Store)(nil)
