package session

import (
	"sync"
	"time"

	"github.com/appcourier/appcourier/internal/domain"
)

// DefaultTTL is how long a presented candidate list stays answerable.
const DefaultTTL = 300 * time.Second

// Session is one pending disambiguation: the ordered candidate list shown to
// the user, waiting for a numbered reply or a poll vote.
type Session struct {
	Key        string
	Candidates []domain.CatalogCandidate
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Store holds pending selections keyed by conversation id or poll message
// id. One live session per key; a newer Put supersedes the old one and the
// superseded expiry timer becomes a no-op through the CreatedAt identity
// check.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration

	now      func() time.Time
	schedule func(d time.Duration, f func())
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		schedule: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// Put stores a fresh session for key, replacing any previous one, and
// schedules its expiry.
func (s *Store) Put(key string, candidates []domain.CatalogCandidate) *Session {
	now := s.now()
	sess := &Session{
		Key:        key,
		Candidates: candidates,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[key] = sess
	s.mu.Unlock()

	createdAt := sess.CreatedAt
	s.schedule(s.ttl, func() {
		s.ExpireIfStale(key, createdAt)
	})

	return sess
}

// Resolve consumes the session for key and returns the 1-based selection.
// The session is deleted on success (single consumption) and on expiry; an
// out-of-range index leaves it in place so the user can retry.
func (s *Store) Resolve(key string, index int) (domain.CatalogCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		return domain.CatalogCandidate{}, domain.ErrSessionNotFound
	}

	if !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, key)
		return domain.CatalogCandidate{}, domain.ErrSessionExpired
	}

	if index < 1 || index > len(sess.Candidates) {
		return domain.CatalogCandidate{}, domain.ErrIndexOutOfRange
	}

	delete(s.sessions, key)
	return sess.Candidates[index-1], nil
}

// ExpireIfStale removes the session for key only if it is still the exact
// session the expiry was scheduled for. A fresher Put wins the race.
func (s *Store) ExpireIfStale(key string, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if ok && sess.CreatedAt.Equal(createdAt) {
		delete(s.sessions, key)
	}
}

// Has reports whether a live (possibly expired but not yet swept) session
// exists for key.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[key]
	return ok
}
