// Package view is the single top-level bookmark view. It owns the
// collection for its whole lifetime and composes the session gate, the
// syncer, the add form and the realtime subscription.
package view

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/collection"
	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/gate"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
	"github.com/MrSnakeDoc/smartmark/internal/remote"
)

// Empty reasons reported by Listing.
const (
	EmptyNoMatches       = "no_matches"
	EmptyEmptyCollection = "empty_collection"
)

type Options struct {
	SessionTimeout time.Duration
	WriteTimeout   time.Duration
	FetchTimeout   time.Duration
	// Redirect is called when the user must go to the login surface.
	Redirect func(reason string)
}

// Listing is what the list surface renders for a query.
type Listing struct {
	State       gate.State     `json:"state"`
	Loading     bool           `json:"loading"`
	Query       string         `json:"query"`
	Entries     []domain.Entry `json:"entries"`
	EmptyReason string         `json:"empty_reason,omitempty"`
}

type View struct {
	client remote.Client
	coll   *collection.Collection
	syncer *collection.Syncer
	gate   *gate.Gate
	form   Form
	logger logger.Logger
	onExit func(reason string)

	mu        sync.Mutex
	mounted   bool
	unmounted bool
	changeSub remote.Subscription
	cancel    context.CancelFunc
}

func New(client remote.Client, log logger.Logger, opts Options) *View {
	v := &View{
		client: client,
		coll:   collection.New(),
		logger: log,
		onExit: opts.Redirect,
	}
	v.syncer = collection.NewSyncer(v.coll, client, log.Named("syncer"), collection.Options{
		WriteTimeout: opts.WriteTimeout,
		FetchTimeout: opts.FetchTimeout,
	})
	v.gate = gate.New(client, gate.Hooks{
		Authenticated: v.sessionEstablished,
		SignedOut:     v.coll.Clear,
		Redirect:      v.redirect,
	}, opts.SessionTimeout, log.Named("gate"))
	return v
}

// Mount starts the reconciler, subscribes to row changes and starts the
// session gate. A view mounts once.
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	if v.mounted || v.unmounted {
		v.mu.Unlock()
		return nil
	}
	v.mounted = true
	ctx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.mu.Unlock()

	v.syncer.Start(ctx)

	sub, err := v.client.SubscribeToChanges(v.changed)
	if err != nil {
		// Without realtime the view still works; it refreshes on session
		// establishment and on demand.
		v.logger.Warn("realtime subscription failed", logger.Error(err))
	} else {
		v.mu.Lock()
		v.changeSub = sub
		v.mu.Unlock()
	}

	if err := v.gate.Start(ctx); err != nil {
		v.logger.Warn("session gate started without a listener", logger.Error(err))
	}
	v.logger.Info("view mounted", logger.String("state", string(v.gate.State())))
	return nil
}

// Unmount releases the realtime subscription, the session listener and the
// gate timer, stops the reconciler and waits for in-flight writes. The
// collection rejects every mutation afterwards.
func (v *View) Unmount() {
	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return
	}
	v.unmounted = true
	sub := v.changeSub
	v.changeSub = nil
	cancel := v.cancel
	v.mu.Unlock()

	v.gate.Close()
	if sub != nil {
		sub.Unsubscribe()
	}
	v.coll.Close()
	v.syncer.Stop()
	if cancel != nil {
		cancel()
	}
	v.logger.Info("view unmounted")
}

func (v *View) State() gate.State { return v.gate.State() }

// Session returns the established session, or nil.
func (v *View) Session() *domain.Session { return v.gate.Session() }

// Form exposes the add form.
func (v *View) Form() *Form { return &v.form }

// Bookmarks returns the filtered collection for query.
func (v *View) Bookmarks(query string) Listing {
	state := v.gate.State()
	l := Listing{
		State:   state,
		Loading: state == gate.Pending,
		Query:   query,
		Entries: []domain.Entry{},
	}
	if state != gate.Authenticated {
		return l
	}

	all := v.coll.Snapshot()
	l.Entries = domain.Filter(all, query)
	if len(l.Entries) == 0 {
		if len(all) > 0 {
			l.EmptyReason = EmptyNoMatches
		} else {
			l.EmptyReason = EmptyEmptyCollection
		}
	}
	return l
}

// Submit adds the draft currently held by the form and clears the form.
func (v *View) Submit() (domain.Entry, error) {
	s, err := v.requireSession()
	if err != nil {
		return domain.Entry{}, err
	}
	entry, err := v.syncer.Add(s.User, v.form.Draft())
	if err != nil {
		return domain.Entry{}, err
	}
	v.form.Clear()
	return entry, nil
}

// Add fills the form with d and submits it.
func (v *View) Add(d domain.Draft) (domain.Entry, error) {
	v.form.Set(d)
	return v.Submit()
}

// Delete removes the entry with id.
func (v *View) Delete(id string) error {
	if _, err := v.requireSession(); err != nil {
		return err
	}
	return v.syncer.Delete(id)
}

// Refresh queues a refresh and reports false when one is already queued.
func (v *View) Refresh() (bool, error) {
	if _, err := v.requireSession(); err != nil {
		return false, err
	}
	return v.syncer.Invalidate(), nil
}

// Jump returns the best quick-jump match for query.
func (v *View) Jump(query string) (domain.Entry, bool) {
	if v.gate.State() != gate.Authenticated {
		return domain.Entry{}, false
	}
	return domain.BestEntry(query, v.coll.Snapshot())
}

func (v *View) SignIn(ctx context.Context, email string) (*domain.Session, error) {
	return v.client.SignIn(ctx, email)
}

func (v *View) SignOut(ctx context.Context) error {
	return v.client.SignOut(ctx)
}

// Watch registers fn to receive the collection after every change.
func (v *View) Watch(fn func([]domain.Entry)) remote.Subscription {
	return v.coll.Watch(fn)
}

// WatchState registers fn to receive every gate transition.
func (v *View) WatchState(fn func(gate.State)) remote.Subscription {
	return v.gate.Watch(fn)
}

func (v *View) Ping(ctx context.Context) error {
	return v.client.Ping(ctx)
}

func (v *View) requireSession() (*domain.Session, error) {
	v.mu.Lock()
	unmounted := v.unmounted
	v.mu.Unlock()
	if unmounted {
		return nil, domain.ErrUnmounted
	}
	s := v.gate.Session()
	if s == nil {
		return nil, domain.ErrNoSession
	}
	return s, nil
}

func (v *View) sessionEstablished(s *domain.Session) {
	v.syncer.Invalidate()
}

func (v *View) changed(c remote.Change) {
	if v.gate.State() != gate.Authenticated {
		return
	}
	v.logger.Debug("change notification",
		logger.String("kind", string(c.Kind)),
		logger.String("id", c.ID))
	v.syncer.Invalidate()
}

func (v *View) redirect(reason string) {
	v.logger.Info("redirecting to login", logger.String("reason", reason))
	if v.onExit != nil {
		v.onExit(reason)
	}
}
