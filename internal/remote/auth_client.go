package remote

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

// SessionStore persists users and sessions for a backend.
type SessionStore interface {
	// UpsertUser returns the user for email, creating it on first sign-in.
	UpsertUser(ctx context.Context, email string) (domain.User, error)
	SaveSession(ctx context.Context, s domain.Session) error
	// LoadSession returns nil, nil when the session does not exist.
	LoadSession(ctx context.Context, id string) (*domain.Session, error)
	// RevokeSession deletes the session and notifies every OnRevoke listener,
	// including those of other processes sharing the store.
	RevokeSession(ctx context.Context, id string) error
	OnRevoke(fn func(sessionID string)) (Subscription, error)
}

// TokenCodec issues and verifies access tokens.
type TokenCodec interface {
	Issue(s domain.Session) (string, error)
	// Verify returns the session skeleton (id, user, expiry) carried by token.
	Verify(token string) (domain.Session, error)
}

// AuthClient holds the current session of a client and fans out session
// transitions. Both store backends embed it.
type AuthClient struct {
	store  SessionStore
	tokens TokenCodec
	ttl    time.Duration
	log    logger.Logger
	now    func() time.Time

	mu        sync.Mutex
	current   *domain.Session
	listeners Listeners[AuthEvent]
	revokeSub Subscription
}

func NewAuthClient(store SessionStore, tokens TokenCodec, ttl time.Duration, log logger.Logger) *AuthClient {
	return &AuthClient{
		store:  store,
		tokens: tokens,
		ttl:    ttl,
		log:    log,
		now:    time.Now,
	}
}

// Start subscribes to session revocations.
func (a *AuthClient) Start() error {
	sub, err := a.store.OnRevoke(a.revoked)
	if err != nil {
		return fmt.Errorf("subscribe to revocations: %w", err)
	}
	a.mu.Lock()
	a.revokeSub = sub
	a.mu.Unlock()
	return nil
}

// Stop releases the revocation subscription.
func (a *AuthClient) Stop() {
	a.mu.Lock()
	sub := a.revokeSub
	a.revokeSub = nil
	a.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// GetSession returns the current session, or nil when nobody is signed in.
// A session that expired or was deleted from the store is dropped and a
// signed_out event is emitted.
func (a *AuthClient) GetSession(ctx context.Context) (*domain.Session, error) {
	a.mu.Lock()
	cur := a.current
	a.mu.Unlock()
	if cur == nil {
		return nil, nil
	}

	if cur.Expired(a.now()) {
		a.drop(cur.ID, "expired")
		return nil, nil
	}

	stored, err := a.store.LoadSession(ctx, cur.ID)
	if err != nil {
		return nil, &domain.SessionError{Op: "get", Err: err}
	}
	if stored == nil {
		a.drop(cur.ID, "missing from store")
		return nil, nil
	}

	s := *cur
	return &s, nil
}

// OnSessionChange registers fn and immediately delivers an initial_session
// event carrying the current session (possibly nil).
func (a *AuthClient) OnSessionChange(fn func(AuthEvent)) (Subscription, error) {
	if fn == nil {
		return nil, &domain.SessionError{Op: "subscribe", Err: errors.New("nil listener")}
	}
	sub := a.listeners.Add(fn)

	a.mu.Lock()
	cur := a.copyCurrent()
	a.mu.Unlock()

	fn(AuthEvent{Kind: InitialSession, Session: cur})
	return sub, nil
}

// SignIn establishes a session for email, creating the user on first use.
func (a *AuthClient) SignIn(ctx context.Context, email string) (*domain.Session, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, &domain.SessionError{Op: "sign in", Err: err}
	}

	user, err := a.store.UpsertUser(ctx, email)
	if err != nil {
		return nil, &domain.SessionError{Op: "sign in", Err: err}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, &domain.SessionError{Op: "sign in", Err: err}
	}

	now := a.now().UTC()
	s := domain.Session{
		ID:        id.String(),
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(a.ttl),
	}
	if err := a.store.SaveSession(ctx, s); err != nil {
		return nil, &domain.SessionError{Op: "sign in", Err: err}
	}

	token, err := a.tokens.Issue(s)
	if err != nil {
		return nil, &domain.SessionError{Op: "sign in", Err: err}
	}
	s.AccessToken = token

	a.establish(s)
	a.log.Info("signed in", logger.String("user_id", user.ID), logger.String("session_id", s.ID))
	return &s, nil
}

// Restore adopts the session carried by an access token.
func (a *AuthClient) Restore(ctx context.Context, token string) (*domain.Session, error) {
	claimed, err := a.tokens.Verify(token)
	if err != nil {
		return nil, &domain.SessionError{Op: "restore", Err: err}
	}

	stored, err := a.store.LoadSession(ctx, claimed.ID)
	if err != nil {
		return nil, &domain.SessionError{Op: "restore", Err: err}
	}
	if stored == nil || stored.User.ID != claimed.User.ID || stored.Expired(a.now()) {
		return nil, &domain.SessionError{Op: "restore", Err: domain.ErrNoSession}
	}

	s := *stored
	s.AccessToken = token
	a.establish(s)
	a.log.Info("session restored", logger.String("user_id", s.User.ID), logger.String("session_id", s.ID))
	return &s, nil
}

// SignOut revokes the current session. It is a no-op without one.
func (a *AuthClient) SignOut(ctx context.Context) error {
	a.mu.Lock()
	cur := a.current
	a.mu.Unlock()
	if cur == nil {
		return nil
	}

	if err := a.store.RevokeSession(ctx, cur.ID); err != nil {
		return &domain.SessionError{Op: "sign out", Err: err}
	}
	a.drop(cur.ID, "signed out")
	return nil
}

// CurrentUser returns the session user or ErrNoSession.
func (a *AuthClient) CurrentUser() (domain.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil || a.current.Expired(a.now()) {
		return domain.User{}, domain.ErrNoSession
	}
	return a.current.User, nil
}

func (a *AuthClient) establish(s domain.Session) {
	a.mu.Lock()
	a.current = &s
	ev := AuthEvent{Kind: SignedIn, Session: a.copyCurrent()}
	a.mu.Unlock()

	a.listeners.Emit(ev)
}

// drop clears the current session if it is still id and emits signed_out.
func (a *AuthClient) drop(id, reason string) {
	a.mu.Lock()
	if a.current == nil || a.current.ID != id {
		a.mu.Unlock()
		return
	}
	a.current = nil
	a.mu.Unlock()

	a.log.Info("session ended", logger.String("session_id", id), logger.String("reason", reason))
	a.listeners.Emit(AuthEvent{Kind: SignedOut})
}

func (a *AuthClient) revoked(sessionID string) {
	a.drop(sessionID, "revoked")
}

func (a *AuthClient) copyCurrent() *domain.Session {
	if a.current == nil {
		return nil
	}
	s := *a.current
	return &s
}

// NormalizeEmail lowercases and validates a bare email address.
func NormalizeEmail(raw string) (string, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", fmt.Errorf("invalid email %q", raw)
	}
	return raw, nil
}
