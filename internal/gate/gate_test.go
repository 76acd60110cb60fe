package gate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
	"github.com/MrSnakeDoc/smartmark/internal/remote"
	"github.com/MrSnakeDoc/smartmark/internal/remote/remotetest"
)

const shortTimeout = 30 * time.Millisecond

type hookSpy struct {
	mu            sync.Mutex
	authenticated int
	signedOut     int
	redirects     []string
}

func (h *hookSpy) hooks() Hooks {
	return Hooks{
		Authenticated: func(*domain.Session) {
			h.mu.Lock()
			h.authenticated++
			h.mu.Unlock()
		},
		SignedOut: func() {
			h.mu.Lock()
			h.signedOut++
			h.mu.Unlock()
		},
		Redirect: func(reason string) {
			h.mu.Lock()
			h.redirects = append(h.redirects, reason)
			h.mu.Unlock()
		},
	}
}

func (h *hookSpy) counts() (int, int, []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.authenticated, h.signedOut, append([]string(nil), h.redirects...)
}

func start(t *testing.T, fake *remotetest.Fake, timeout time.Duration) (*Gate, *hookSpy) {
	t.Helper()
	spy := &hookSpy{}
	g := New(fake, spy.hooks(), timeout, logger.NewNop())
	require.NoError(t, g.Start(context.Background()))
	t.Cleanup(g.Close)
	return g, spy
}

func TestGateWithSessionAuthenticatesOnce(t *testing.T) {
	fake := remotetest.New()
	fake.SetSession(remotetest.SignedInSession())

	g, spy := start(t, fake, shortTimeout)

	assert.Equal(t, Authenticated, g.State())
	require.NotNil(t, g.Session())
	assert.Equal(t, remotetest.User.ID, g.Session().User.ID)

	auth, _, redirects := spy.counts()
	assert.Equal(t, 1, auth)
	assert.Empty(t, redirects)
}

func TestGateWithoutSessionTimesOut(t *testing.T) {
	fake := remotetest.New()

	g, spy := start(t, fake, shortTimeout)
	assert.Equal(t, Pending, g.State())

	assert.Eventually(t, func() bool { return g.State() == Unauthenticated }, time.Second, 5*time.Millisecond)
	_, _, redirects := spy.counts()
	assert.Equal(t, []string{ReasonTimeout}, redirects)
}

func TestGateTimeoutRechecksSession(t *testing.T) {
	fake := remotetest.New()

	g, spy := start(t, fake, shortTimeout)
	// The session shows up without an event, as after a slow restore.
	fake.SetSession(remotetest.SignedInSession())

	assert.Eventually(t, func() bool { return g.State() == Authenticated }, time.Second, 5*time.Millisecond)
	auth, _, redirects := spy.counts()
	assert.Equal(t, 1, auth)
	assert.Empty(t, redirects)
}

func TestGateSignedInBeforeTimeout(t *testing.T) {
	fake := remotetest.New()

	g, spy := start(t, fake, shortTimeout)
	fake.EmitAuth(remote.AuthEvent{Kind: remote.SignedIn, Session: remotetest.SignedInSession()})
	assert.Equal(t, Authenticated, g.State())

	time.Sleep(3 * shortTimeout)
	assert.Equal(t, Authenticated, g.State())
	auth, _, redirects := spy.counts()
	assert.Equal(t, 1, auth)
	assert.Empty(t, redirects, "timer must be stopped once authenticated")
}

func TestGateSignedOutThenSignedIn(t *testing.T) {
	fake := remotetest.New()
	fake.SetSession(remotetest.SignedInSession())
	g, spy := start(t, fake, shortTimeout)

	fake.EmitAuth(remote.AuthEvent{Kind: remote.SignedOut})

	assert.Equal(t, Unauthenticated, g.State())
	assert.Nil(t, g.Session())
	auth, signedOut, redirects := spy.counts()
	assert.Equal(t, 1, auth)
	assert.Equal(t, 1, signedOut)
	assert.Equal(t, []string{ReasonSignedOut}, redirects)

	fake.EmitAuth(remote.AuthEvent{Kind: remote.SignedIn, Session: remotetest.SignedInSession()})

	assert.Equal(t, Authenticated, g.State())
	auth, _, _ = spy.counts()
	assert.Equal(t, 2, auth, "each sign-in establishes the session exactly once")
}

func TestGateUserSwitchDropsPreviousUser(t *testing.T) {
	fake := remotetest.New()
	fake.SetSession(remotetest.SignedInSession())
	g, spy := start(t, fake, shortTimeout)

	other := remotetest.SignedInSession()
	other.ID = "session-2"
	other.User = domain.User{ID: "user-2", Email: "other@example.com"}
	fake.EmitAuth(remote.AuthEvent{Kind: remote.SignedIn, Session: other})

	assert.Equal(t, Authenticated, g.State())
	require.NotNil(t, g.Session())
	assert.Equal(t, "user-2", g.Session().User.ID)
	auth, signedOut, redirects := spy.counts()
	assert.Equal(t, 2, auth)
	assert.Equal(t, 1, signedOut, "switching user must drop the previous user's state")
	assert.Empty(t, redirects)

	// A new session for the same user keeps the state.
	again := *other
	again.ID = "session-3"
	fake.EmitAuth(remote.AuthEvent{Kind: remote.SignedIn, Session: &again})
	_, signedOut, _ = spy.counts()
	assert.Equal(t, 1, signedOut)
}

func TestGateSessionLookupError(t *testing.T) {
	fake := remotetest.New()
	fake.FailGetSession(remotetest.ErrBoom)

	g, spy := start(t, fake, shortTimeout)

	assert.Equal(t, Unauthenticated, g.State())
	_, _, redirects := spy.counts()
	assert.Equal(t, []string{ReasonSessionError}, redirects)
}

func TestGateCloseReleasesListenerAndTimer(t *testing.T) {
	fake := remotetest.New()
	g, spy := start(t, fake, shortTimeout)
	require.Equal(t, 1, fake.AuthListeners())

	g.Close()
	g.Close()

	assert.Equal(t, int64(1), fake.AuthUnsubscribed())
	assert.Zero(t, fake.AuthListeners())

	fake.EmitAuth(remote.AuthEvent{Kind: remote.SignedIn, Session: remotetest.SignedInSession()})
	time.Sleep(3 * shortTimeout)

	assert.Equal(t, Pending, g.State())
	auth, signedOut, redirects := spy.counts()
	assert.Zero(t, auth)
	assert.Zero(t, signedOut)
	assert.Empty(t, redirects)
}

func TestGateWatch(t *testing.T) {
	fake := remotetest.New()
	g, _ := start(t, fake, time.Second)

	var mu sync.Mutex
	var states []State
	sub := g.Watch(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})
	defer sub.Unsubscribe()

	fake.EmitAuth(remote.AuthEvent{Kind: remote.SignedIn, Session: remotetest.SignedInSession()})
	fake.EmitAuth(remote.AuthEvent{Kind: remote.SignedOut})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{Authenticated, Unauthenticated}, states)
}
