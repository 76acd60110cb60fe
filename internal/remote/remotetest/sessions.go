package remotetest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/remote"
)

// Sessions is an in-memory remote.SessionStore.
type Sessions struct {
	mu       sync.Mutex
	users    map[string]domain.User // by email
	sessions map[string]domain.Session
	revoked  remote.Listeners[string]
}

var _ remote.SessionStore = (*Sessions)(nil)

func NewSessions() *Sessions {
	return &Sessions{
		users:    make(map[string]domain.User),
		sessions: make(map[string]domain.Session),
	}
}

func (s *Sessions) UpsertUser(ctx context.Context, email string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[email]; ok {
		return u, nil
	}
	u := domain.User{ID: uuid.NewString(), Email: email}
	s.users[email] = u
	return u, nil
}

func (s *Sessions) SaveSession(ctx context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.AccessToken = ""
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Sessions) LoadSession(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (s *Sessions) RevokeSession(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	s.revoked.Emit(id)
	return nil
}

func (s *Sessions) OnRevoke(fn func(sessionID string)) (remote.Subscription, error) {
	return s.revoked.Add(fn), nil
}

// Forget deletes a session without notifying, as an expiry would.
func (s *Sessions) Forget(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}
