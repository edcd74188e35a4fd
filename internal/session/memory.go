package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
	nowFunc  func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttlOrDefault(ttl),
		sessions: make(map[string]*Session),
		nowFunc:  time.Now,
	}
}

func (s *MemoryStore) Migrate(_ context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Create(_ context.Context) (*Session, error) {
	now := s.nowFunc().UTC()
	sess := &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return clone(sess), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.live(id)
	if !ok {
		return nil, ErrNotFound
	}
	return clone(sess), nil
}

func (s *MemoryStore) Append(_ context.Context, id string, r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.live(id)
	if !ok {
		return ErrNotFound
	}
	now := s.nowFunc().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.Codes != nil {
		c := *r.Codes
		r.Codes = &c
	}
	sess.Results = append(sess.Results, r)
	sess.ExpiresAt = now.Add(s.ttl)
	return nil
}

func (s *MemoryStore) DeleteExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	n := 0
	for id, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// live returns the session if it exists and has not expired. Caller holds mu.
func (s *MemoryStore) live(id string) (*Session, bool) {
	sess, ok := s.sessions[id]
	if !ok || !s.nowFunc().Before(sess.ExpiresAt) {
		return nil, false
	}
	return sess, true
}

func clone(sess *Session) *Session {
	out := *sess
	out.Results = make([]Result, len(sess.Results))
	for i, r := range sess.Results {
		if r.Codes != nil {
			c := *r.Codes
			r.Codes = &c
		}
		out.Results[i] = r
	}
	return &out
}
