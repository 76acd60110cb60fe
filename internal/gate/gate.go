// Package gate decides whether the bookmark view may load data. It starts
// pending and settles on authenticated or unauthenticated from the session
// lookup, session change events and a bounded timeout.
package gate

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
	"github.com/MrSnakeDoc/smartmark/internal/remote"
)

// DefaultTimeout bounds how long the gate stays pending.
const DefaultTimeout = 3 * time.Second

type State string

const (
	Pending         State = "pending"
	Authenticated   State = "authenticated"
	Unauthenticated State = "unauthenticated"
)

// Redirect reasons passed to Hooks.Redirect.
const (
	ReasonSignedOut    = "signed_out"
	ReasonTimeout      = "timeout"
	ReasonSessionError = "session_error"
)

// Hooks are called outside the gate lock.
type Hooks struct {
	// Authenticated runs for every session establishment: the initial
	// lookup and each signed_in or initial_session event with a session.
	Authenticated func(s *domain.Session)
	// SignedOut runs when the session ends, before Redirect.
	SignedOut func()
	// Redirect sends the user to the login surface.
	Redirect func(reason string)
}

// Gate is the session state machine of one view.
type Gate struct {
	auth    remote.Auth
	hooks   Hooks
	timeout time.Duration
	logger  logger.Logger

	mu       sync.Mutex
	ctx      context.Context
	state    State
	session  *domain.Session
	sub      remote.Subscription
	timer    *time.Timer
	closed   bool
	watchers remote.Listeners[State]
}

func New(auth remote.Auth, hooks Hooks, timeout time.Duration, log logger.Logger) *Gate {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gate{
		auth:    auth,
		hooks:   hooks,
		timeout: timeout,
		logger:  log,
		state:   Pending,
		ctx:     context.Background(),
	}
}

// Start looks up the session, subscribes to session changes and arms the
// pending timeout when no session is known yet.
func (g *Gate) Start(ctx context.Context) error {
	g.mu.Lock()
	g.ctx = ctx
	g.mu.Unlock()

	s, err := g.auth.GetSession(ctx)
	if err != nil {
		g.logger.Warn("session lookup failed", logger.Error(&domain.SessionError{Op: "lookup", Err: err}))
		g.settleUnauthenticated(ReasonSessionError)
	} else if s != nil {
		g.authenticate(s, false)
	}

	sub, err := g.auth.OnSessionChange(g.handle)
	if err != nil {
		g.logger.Warn("session listener failed", logger.Error(&domain.SessionError{Op: "subscribe", Err: err}))
		g.settleUnauthenticated(ReasonSessionError)
		return err
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	g.sub = sub
	if g.state == Pending {
		g.timer = time.AfterFunc(g.timeout, g.expire)
	}
	g.mu.Unlock()
	return nil
}

// Close releases the session listener and the timer. No transition happens
// afterwards.
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	sub := g.sub
	g.sub = nil
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Session returns the established session, or nil.
func (g *Gate) Session() *domain.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return nil
	}
	s := *g.session
	return &s
}

// Watch registers fn to receive every state transition.
func (g *Gate) Watch(fn func(State)) remote.Subscription {
	return g.watchers.Add(fn)
}

func (g *Gate) handle(ev remote.AuthEvent) {
	switch ev.Kind {
	case remote.SignedOut:
		g.signOut()
	case remote.SignedIn:
		if ev.Session != nil {
			g.authenticate(ev.Session, false)
		}
	case remote.InitialSession:
		if ev.Session != nil {
			g.authenticate(ev.Session, true)
		}
	}
}

// authenticate establishes s. An initial_session repeating the session the
// gate already holds does not count as a new establishment. A session for
// another user first runs the SignedOut hook so the previous user's rows
// are dropped before the new ones load.
func (g *Gate) authenticate(s *domain.Session, initial bool) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	if initial && g.state == Authenticated && g.session != nil && g.session.ID == s.ID {
		g.mu.Unlock()
		return
	}
	var previousUser string
	if g.session != nil && g.session.User.ID != s.User.ID {
		previousUser = g.session.User.ID
	}
	g.mu.Unlock()

	if previousUser != "" {
		g.logger.Info("session user changed",
			logger.String("from_user_id", previousUser),
			logger.String("to_user_id", s.User.ID))
		if g.hooks.SignedOut != nil {
			g.hooks.SignedOut()
		}
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	prev := g.state
	cp := *s
	g.session = &cp
	g.state = Authenticated
	g.stopTimerLocked()
	g.mu.Unlock()

	g.logger.Info("session established",
		logger.String("user_id", s.User.ID),
		logger.String("from", string(prev)))
	if prev != Authenticated {
		g.watchers.Emit(Authenticated)
	}
	if g.hooks.Authenticated != nil {
		g.hooks.Authenticated(&cp)
	}
}

func (g *Gate) signOut() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	prev := g.state
	g.session = nil
	g.state = Unauthenticated
	g.stopTimerLocked()
	g.mu.Unlock()

	g.logger.Info("session ended", logger.String("from", string(prev)))
	if prev != Unauthenticated {
		g.watchers.Emit(Unauthenticated)
	}
	if g.hooks.SignedOut != nil {
		g.hooks.SignedOut()
	}
	if g.hooks.Redirect != nil {
		g.hooks.Redirect(ReasonSignedOut)
	}
}

func (g *Gate) settleUnauthenticated(reason string) {
	g.mu.Lock()
	if g.closed || g.state == Authenticated {
		g.mu.Unlock()
		return
	}
	prev := g.state
	g.state = Unauthenticated
	g.stopTimerLocked()
	g.mu.Unlock()

	if prev != Unauthenticated {
		g.watchers.Emit(Unauthenticated)
	}
	if g.hooks.Redirect != nil {
		g.hooks.Redirect(reason)
	}
}

// expire re-checks the session once the pending timeout elapses.
func (g *Gate) expire() {
	g.mu.Lock()
	if g.closed || g.state != Pending {
		g.mu.Unlock()
		return
	}
	g.timer = nil
	ctx := g.ctx
	g.mu.Unlock()

	g.logger.Debug("session timeout elapsed, checking session again")
	s, err := g.auth.GetSession(ctx)
	switch {
	case err != nil:
		g.logger.Warn("session lookup failed", logger.Error(&domain.SessionError{Op: "lookup", Err: err}))
		g.settleUnauthenticated(ReasonSessionError)
	case s == nil:
		g.settleUnauthenticated(ReasonTimeout)
	default:
		g.authenticate(s, false)
	}
}

func (g *Gate) stopTimerLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}
