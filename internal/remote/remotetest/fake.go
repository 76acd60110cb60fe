// Package remotetest provides in-memory remote clients for tests.
package remotetest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/remote"
)

// Fake is an in-memory remote.Client. Writes notify change listeners like a
// real store. Gates and the Fail setters let tests observe and steer the order
// in which remote calls resolve.
type Fake struct {
	mu      sync.Mutex
	session *domain.Session
	rows    map[string]domain.Bookmark
	last    time.Time

	// InsertGate and DeleteGate, when set before use, block the call until
	// a value is received or the context ends.
	InsertGate chan struct{}
	DeleteGate chan struct{}

	// Tokens, when set, issues the access token returned by SignIn.
	Tokens remote.TokenCodec

	listErr       error
	insertErr     error
	deleteErr     error
	getSessionErr error

	authListeners   remote.Listeners[remote.AuthEvent]
	changeListeners remote.Listeners[remote.Change]

	lists            atomic.Int64
	inserts          atomic.Int64
	deletes          atomic.Int64
	authUnsubscribed atomic.Int64
	chgUnsubscribed  atomic.Int64
}

var _ remote.Client = (*Fake)(nil)

func New() *Fake {
	return &Fake{rows: make(map[string]domain.Bookmark)}
}

// User is the session user used by SignedInSession.
var User = domain.User{ID: "user-1", Email: "me@example.com"}

// SignedInSession returns a valid session for User.
func SignedInSession() *domain.Session {
	now := time.Now()
	return &domain.Session{
		ID:        "session-1",
		User:      User,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

// SetSession sets the current session without emitting events.
func (f *Fake) SetSession(s *domain.Session) {
	f.mu.Lock()
	f.session = s
	f.mu.Unlock()
}

// EmitAuth updates the session from ev and delivers ev to listeners.
func (f *Fake) EmitAuth(ev remote.AuthEvent) {
	f.mu.Lock()
	switch ev.Kind {
	case remote.SignedOut:
		f.session = nil
	default:
		if ev.Session != nil {
			f.session = ev.Session
		}
	}
	f.mu.Unlock()
	f.authListeners.Emit(ev)
}

// FailList makes List return err until cleared with nil.
func (f *Fake) FailList(err error) {
	f.mu.Lock()
	f.listErr = err
	f.mu.Unlock()
}

// FailInsert makes Insert return err until cleared with nil.
func (f *Fake) FailInsert(err error) {
	f.mu.Lock()
	f.insertErr = err
	f.mu.Unlock()
}

// FailDelete makes Delete return err until cleared with nil.
func (f *Fake) FailDelete(err error) {
	f.mu.Lock()
	f.deleteErr = err
	f.mu.Unlock()
}

// FailGetSession makes GetSession return err until cleared with nil.
func (f *Fake) FailGetSession(err error) {
	f.mu.Lock()
	f.getSessionErr = err
	f.mu.Unlock()
}

// EmitChange delivers c to change listeners.
func (f *Fake) EmitChange(c remote.Change) {
	f.changeListeners.Emit(c)
}

// Seed stores rows as if inserted earlier.
func (f *Fake) Seed(rows ...domain.Bookmark) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		f.rows[r.ID] = r
		if r.CreatedAt.After(f.last) {
			f.last = r.CreatedAt
		}
	}
}

// Rows returns the stored rows of the session user, newest first.
func (f *Fake) Rows() []domain.Bookmark {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rowsOf(User.ID)
}

func (f *Fake) Lists() int64               { return f.lists.Load() }
func (f *Fake) Inserts() int64             { return f.inserts.Load() }
func (f *Fake) Deletes() int64             { return f.deletes.Load() }
func (f *Fake) AuthUnsubscribed() int64    { return f.authUnsubscribed.Load() }
func (f *Fake) ChangesUnsubscribed() int64 { return f.chgUnsubscribed.Load() }
func (f *Fake) AuthListeners() int         { return f.authListeners.Len() }
func (f *Fake) ChangeListeners() int       { return f.changeListeners.Len() }

func (f *Fake) GetSession(ctx context.Context) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getSessionErr != nil {
		return nil, f.getSessionErr
	}
	if f.session == nil {
		return nil, nil
	}
	s := *f.session
	return &s, nil
}

func (f *Fake) OnSessionChange(fn func(remote.AuthEvent)) (remote.Subscription, error) {
	sub := f.authListeners.Add(fn)

	f.mu.Lock()
	var cur *domain.Session
	if f.session != nil {
		s := *f.session
		cur = &s
	}
	f.mu.Unlock()

	fn(remote.AuthEvent{Kind: remote.InitialSession, Session: cur})
	return f.spy(sub, &f.authUnsubscribed), nil
}

func (f *Fake) SignIn(ctx context.Context, email string) (*domain.Session, error) {
	s := SignedInSession()
	s.User.Email = email
	if f.Tokens != nil {
		token, err := f.Tokens.Issue(*s)
		if err != nil {
			return nil, &domain.SessionError{Op: "sign in", Err: err}
		}
		s.AccessToken = token
	}
	f.EmitAuth(remote.AuthEvent{Kind: remote.SignedIn, Session: s})
	return s, nil
}

func (f *Fake) Restore(ctx context.Context, token string) (*domain.Session, error) {
	return nil, &domain.SessionError{Op: "restore", Err: domain.ErrNoSession}
}

func (f *Fake) SignOut(ctx context.Context) error {
	f.EmitAuth(remote.AuthEvent{Kind: remote.SignedOut})
	return nil
}

func (f *Fake) List(ctx context.Context) ([]domain.Bookmark, error) {
	f.lists.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.session == nil {
		return nil, domain.ErrNoSession
	}
	return f.rowsOf(f.session.User.ID), nil
}

func (f *Fake) Insert(ctx context.Context, nb domain.NewBookmark) (domain.Bookmark, error) {
	f.inserts.Add(1)
	if err := wait(ctx, f.InsertGate); err != nil {
		return domain.Bookmark{}, err
	}

	f.mu.Lock()
	if f.insertErr != nil {
		err := f.insertErr
		f.mu.Unlock()
		return domain.Bookmark{}, err
	}
	if f.session == nil {
		f.mu.Unlock()
		return domain.Bookmark{}, domain.ErrNoSession
	}
	if nb.UserID != f.session.User.ID {
		f.mu.Unlock()
		return domain.Bookmark{}, domain.ErrForbidden
	}
	now := time.Now()
	if !now.After(f.last) {
		now = f.last.Add(time.Millisecond)
	}
	f.last = now
	b := domain.Bookmark{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Title:     nb.Title,
		URL:       nb.URL,
		CreatedAt: now,
		UserID:    nb.UserID,
	}
	f.rows[b.ID] = b
	f.mu.Unlock()

	f.EmitChange(remote.Change{Kind: remote.ChangeInsert, ID: b.ID, UserID: b.UserID})
	return b, nil
}

func (f *Fake) Delete(ctx context.Context, id string) error {
	f.deletes.Add(1)
	if err := wait(ctx, f.DeleteGate); err != nil {
		return err
	}

	f.mu.Lock()
	if f.deleteErr != nil {
		err := f.deleteErr
		f.mu.Unlock()
		return err
	}
	row, ok := f.rows[id]
	if !ok {
		f.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(f.rows, id)
	f.mu.Unlock()

	f.EmitChange(remote.Change{Kind: remote.ChangeDelete, ID: id, UserID: row.UserID})
	return nil
}

func (f *Fake) SubscribeToChanges(fn func(remote.Change)) (remote.Subscription, error) {
	return f.spy(f.changeListeners.Add(fn), &f.chgUnsubscribed), nil
}

func (f *Fake) Ping(ctx context.Context) error { return nil }
func (f *Fake) Close() error                   { return nil }

func (f *Fake) spy(sub remote.Subscription, counter *atomic.Int64) remote.Subscription {
	var once sync.Once
	return remote.SubscriptionFunc(func() {
		once.Do(func() {
			counter.Add(1)
			sub.Unsubscribe()
		})
	})
}

func (f *Fake) rowsOf(userID string) []domain.Bookmark {
	out := make([]domain.Bookmark, 0, len(f.rows))
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ErrBoom is a generic injected failure.
var ErrBoom = errors.New("boom")
