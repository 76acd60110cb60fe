// Package remote defines the contract between the bookmark view and the
// remote store that holds rows and sessions and pushes change notifications.
package remote

import (
	"context"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
)

// AuthEventKind names a session transition.
type AuthEventKind string

const (
	SignedIn       AuthEventKind = "signed_in"
	SignedOut      AuthEventKind = "signed_out"
	InitialSession AuthEventKind = "initial_session"
)

// AuthEvent is delivered to session listeners. Session is nil for SignedOut
// and for an InitialSession with nobody signed in.
type AuthEvent struct {
	Kind    AuthEventKind
	Session *domain.Session
}

// ChangeKind names a row mutation observed by the store.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeDelete ChangeKind = "DELETE"
)

// Change is a realtime notification for a row owned by the session user.
// Consumers treat it as an invalidation signal; the payload is informative.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	ID     string     `json:"id"`
	UserID string     `json:"user_id"`
}

// Subscription is a handle on a listener registration.
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Unsubscribe() { f() }

// Auth is the session half of the client.
type Auth interface {
	GetSession(ctx context.Context) (*domain.Session, error)
	OnSessionChange(fn func(AuthEvent)) (Subscription, error)
	SignIn(ctx context.Context, email string) (*domain.Session, error)
	Restore(ctx context.Context, token string) (*domain.Session, error)
	SignOut(ctx context.Context) error
}

// Bookmarks is the row half of the client. Every call is scoped to the
// current session user.
type Bookmarks interface {
	// List returns the session rows ordered by created_at descending.
	List(ctx context.Context) ([]domain.Bookmark, error)
	Insert(ctx context.Context, b domain.NewBookmark) (domain.Bookmark, error)
	Delete(ctx context.Context, id string) error
	SubscribeToChanges(fn func(Change)) (Subscription, error)
}

// Client is a remote store backend.
type Client interface {
	Auth
	Bookmarks

	Ping(ctx context.Context) error
	Close() error
}
