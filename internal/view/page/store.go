package page

import (
	"sync"
	"time"

	"fraud-viewer/internal/usecase/submission"
)

type sessionFactory interface {
	NewSession(id string) *submission.Session
}

type clock interface {
	Now() time.Time
}

// Entry is one browser session: its page and the submission session writing to it.
type Entry struct {
	Page    *Page
	Session *submission.Session

	lastSeen time.Time
}

// Store keeps a page per browser session. Sessions idle longer than ttl are dropped
// on the next lookup.
type Store struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	sessions sessionFactory
	clock    clock
	ttl      time.Duration
}

func NewStore(sessions sessionFactory, clock clock, ttl time.Duration) *Store {
	return &Store{
		entries:  make(map[string]*Entry),
		sessions: sessions,
		clock:    clock,
		ttl:      ttl,
	}
}

func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evict()

	e, ok := s.entries[id]
	if ok {
		e.lastSeen = s.clock.Now()
	}
	return e, ok
}

func (s *Store) GetOrCreate(id string) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evict()

	e, ok := s.entries[id]
	if !ok {
		e = &Entry{
			Page:    New(),
			Session: s.sessions.NewSession(id),
		}
		s.entries[id] = e
	}
	e.lastSeen = s.clock.Now()

	return e
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) evict() {
	if s.ttl <= 0 {
		return
	}

	cutoff := s.clock.Now().Add(-s.ttl)
	for id, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, id)
		}
	}
}
