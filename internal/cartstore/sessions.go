package cartstore

import (
	"context"
	"github.com/nikolayk812/bakery-cart/internal/port"
	"golang.org/x/sync/singleflight"
	"sync"
	"time"
)

const (
	DefaultIdleTTL   = 30 * time.Minute
	DefaultMaxStores = 10_000
)

type SessionsConfig struct {
	// IdleTTL is how long a store stays in memory after its last use.
	IdleTTL time.Duration
	// MaxStores caps the number of stores held; the least recently used one goes first.
	MaxStores int
	Now       func() time.Time
}

type session struct {
	store    *Store
	lastSeen time.Time
}

// Sessions hands out one Store per owner, opening it on first use. Stores are
// dropped when idle or when the cap is reached and reopened from the repository
// on the next request. Stores with a Subscribe listener are never dropped.
type Sessions struct {
	repo      port.CartRepository
	opts      []Option
	idleTTL   time.Duration
	maxStores int
	now       func() time.Time

	loads singleflight.Group

	mu        sync.Mutex
	sessions  map[string]*session
	lastSweep time.Time
}

func NewSessions(repo port.CartRepository, cfg SessionsConfig, opts ...Option) *Sessions {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.MaxStores <= 0 {
		cfg.MaxStores = DefaultMaxStores
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Sessions{
		repo:      repo,
		opts:      opts,
		idleTTL:   cfg.IdleTTL,
		maxStores: cfg.MaxStores,
		now:       cfg.Now,
		sessions:  make(map[string]*session),
		lastSweep: cfg.Now(),
	}
}

// Get returns the owner's store. The repository read happens outside the
// sessions lock and concurrent first requests for one owner share it.
func (s *Sessions) Get(ctx context.Context, ownerID string) (*Store, error) {
	if store, ok := s.lookup(ownerID); ok {
		return store, nil
	}

	v, err, _ := s.loads.Do(ownerID, func() (interface{}, error) {
		if store, ok := s.lookup(ownerID); ok {
			return store, nil
		}

		store, err := Open(ctx, s.repo, ownerID, s.opts...)
		if err != nil {
			return nil, err
		}

		s.insert(ownerID, store)
		return store, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Store), nil
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

func (s *Sessions) lookup(ownerID string) (*Store, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	sess, ok := s.sessions[ownerID]
	if !ok {
		return nil, false
	}
	sess.lastSeen = now
	return sess.store, true
}

func (s *Sessions) insert(ownerID string, store *Store) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[ownerID] = &session{store: store, lastSeen: s.now()}

	for len(s.sessions) > s.maxStores {
		if !s.evictOldestLocked(ownerID) {
			return
		}
	}
}

// sweepLocked drops idle stores, at most twice per idle period.
func (s *Sessions) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < s.idleTTL/2 {
		return
	}
	s.lastSweep = now

	for ownerID, sess := range s.sessions {
		if now.Sub(sess.lastSeen) >= s.idleTTL && !sess.store.Watched() {
			delete(s.sessions, ownerID)
		}
	}
}

func (s *Sessions) evictOldestLocked(keep string) bool {
	var (
		oldestID string
		oldest   *session
	)
	for ownerID, sess := range s.sessions {
		if ownerID == keep || sess.store.Watched() {
			continue
		}
		if oldest == nil || sess.lastSeen.Before(oldest.lastSeen) {
			oldestID, oldest = ownerID, sess
		}
	}
	if oldest == nil {
		return false
	}

	delete(s.sessions, oldestID)
	return true
}
