package collection

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

const waitFor = 2 * time.Second

func newFake() *remotetest.Fake {
	f := remotetest.New()
	f.SetSession(remotetest.SignedInSession())
	return f
}

func newSyncer(t *testing.T, bookmarks remote.Bookmarks) (*Collection, *Syncer) {
	t.Helper()
	coll := New()
	s := NewSyncer(coll, bookmarks, logger.NewNop(), Options{WriteTimeout: time.Second})
	t.Cleanup(s.Stop)
	return coll, s
}

func rowIDs(rows []domain.Bookmark) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func TestAddIsVisibleBeforeInsertResolves(t *testing.T) {
	fake := newFake()
	fake.InsertGate = make(chan struct{})
	coll, s := newSyncer(t, fake)

	entry, err := s.Add(remotetest.User, domain.Draft{Title: "GitHub", URL: "https://github.com"})
	require.NoError(t, err)

	snap := coll.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, entry.ID, snap[0].ID)
	assert.Equal(t, "GitHub", snap[0].Title)
	assert.True(t, snap[0].Provisional)
	assert.Equal(t, remotetest.User.ID, snap[0].UserID)
	assert.Empty(t, fake.Rows(), "insert must still be pending")

	close(fake.InsertGate)
	assert.Eventually(t, func() bool { return len(fake.Rows()) == 1 }, waitFor, 5*time.Millisecond)
}

func TestAddPrependsNewestFirst(t *testing.T) {
	fake := newFake()
	coll, s := newSyncer(t, fake)

	_, err := s.Add(remotetest.User, domain.Draft{Title: "first", URL: "https://first.example.com"})
	require.NoError(t, err)
	_, err = s.Add(remotetest.User, domain.Draft{Title: "second", URL: "https://second.example.com"})
	require.NoError(t, err)

	snap := coll.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "second", snap[0].Title)
	assert.Equal(t, "first", snap[1].Title)
}

func TestAddRejectsInvalidInputWithoutStateChange(t *testing.T) {
	fake := newFake()
	coll, s := newSyncer(t, fake)

	_, err := s.Add(remotetest.User, domain.Draft{Title: "", URL: "https://github.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidTitle)
	_, err = s.Add(remotetest.User, domain.Draft{Title: "GitHub", URL: "github"})
	assert.ErrorIs(t, err, domain.ErrInvalidURL)

	assert.Zero(t, coll.Len())
	assert.Zero(t, fake.Inserts())
}

func TestDeleteRemovesBeforeRemoteResolves(t *testing.T) {
	fake := newFake()
	fake.Seed(row("a", 0), row("b", time.Hour))
	fake.DeleteGate = make(chan struct{})
	coll, s := newSyncer(t, fake)
	require.True(t, s.Refresh(context.Background()))

	require.NoError(t, s.Delete("a"))

	assert.Equal(t, []string{"b"}, ids(coll.Snapshot()))
	assert.Len(t, fake.Rows(), 2, "remote delete must still be pending")

	close(fake.DeleteGate)
	assert.Eventually(t, func() bool { return len(fake.Rows()) == 1 }, waitFor, 5*time.Millisecond)
}

func TestDeleteUnknownID(t *testing.T) {
	fake := newFake()
	_, s := newSyncer(t, fake)

	assert.ErrorIs(t, s.Delete("missing"), domain.ErrNotFound)
	assert.Zero(t, fake.Deletes())
}

func TestDeleteProvisionalStaysLocal(t *testing.T) {
	fake := newFake()
	fake.InsertGate = make(chan struct{})
	coll, s := newSyncer(t, fake)

	entry, err := s.Add(remotetest.User, domain.Draft{Title: "GitHub", URL: "https://github.com"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(entry.ID))

	assert.Zero(t, coll.Len())
	assert.Zero(t, fake.Deletes())
	close(fake.InsertGate)
}

func TestMutationsThenRefreshMatchRemote(t *testing.T) {
	fake := newFake()
	fake.Seed(row("seed-1", 2*time.Hour), row("seed-2", time.Hour))
	coll, s := newSyncer(t, fake)
	ctx := context.Background()
	require.True(t, s.Refresh(ctx))

	_, err := s.Add(remotetest.User, domain.Draft{Title: "GitHub", URL: "https://github.com"})
	require.NoError(t, err)
	require.NoError(t, s.Delete("seed-1"))
	_, err = s.Add(remotetest.User, domain.Draft{Title: "Go", URL: "https://go.dev"})
	require.NoError(t, err)

	// Let the background writes land before the authoritative fetch.
	assert.Eventually(t, func() bool { return len(fake.Rows()) == 3 }, waitFor, 5*time.Millisecond)
	require.True(t, s.Refresh(ctx))

	assert.Equal(t, rowIDs(fake.Rows()), ids(coll.Snapshot()))
	for _, e := range coll.Snapshot() {
		assert.False(t, e.Provisional)
	}
}

func TestSuccessiveRefreshesAreIdentical(t *testing.T) {
	fake := newFake()
	fake.Seed(row("a", 0), row("b", time.Hour))
	coll, s := newSyncer(t, fake)
	ctx := context.Background()

	require.True(t, s.Refresh(ctx))
	first := coll.Snapshot()
	require.True(t, s.Refresh(ctx))

	assert.Equal(t, first, coll.Snapshot())
}

func TestRefreshFailureKeepsState(t *testing.T) {
	fake := newFake()
	fake.Seed(row("a", 0))
	coll, s := newSyncer(t, fake)
	ctx := context.Background()
	require.True(t, s.Refresh(ctx))

	fake.FailList(remotetest.ErrBoom)
	assert.False(t, s.Refresh(ctx))
	assert.Equal(t, []string{"a"}, ids(coll.Snapshot()))
}

func TestFailedInsertIsReconciledByNextRefresh(t *testing.T) {
	fake := newFake()
	fake.FailInsert(remotetest.ErrBoom)
	coll, s := newSyncer(t, fake)
	s.Start(context.Background())

	_, err := s.Add(remotetest.User, domain.Draft{Title: "GitHub", URL: "https://github.com"})
	require.NoError(t, err)

	// The phantom entry is not rolled back by the failure itself; the
	// refresh queued after it is what drops it.
	assert.Eventually(t, func() bool { return fake.Lists() >= 1 && coll.Len() == 0 }, waitFor, 5*time.Millisecond)
}

func TestFailedDeleteIsRestoredByNextRefresh(t *testing.T) {
	fake := newFake()
	fake.Seed(row("a", 0))
	coll, s := newSyncer(t, fake)
	ctx := context.Background()
	require.True(t, s.Refresh(ctx))
	fake.FailDelete(remotetest.ErrBoom)
	s.Start(ctx)

	require.NoError(t, s.Delete("a"))

	assert.Eventually(t, func() bool { return coll.Len() == 1 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []string{"a"}, ids(coll.Snapshot()))
}

func TestInvalidateCoalesces(t *testing.T) {
	_, s := newSyncer(t, newFake())

	assert.True(t, s.Invalidate())
	assert.False(t, s.Invalidate())
	assert.False(t, s.Invalidate())
}

func TestInvalidationTriggersRefresh(t *testing.T) {
	fake := newFake()
	fake.Seed(row("a", 0))
	coll, s := newSyncer(t, fake)
	s.Start(context.Background())

	s.Invalidate()

	assert.Eventually(t, func() bool { return coll.Len() == 1 }, waitFor, 5*time.Millisecond)
}

// blockingList holds List until released so tests can interleave a Clear.
type blockingList struct {
	*remotetest.Fake
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingList) List(ctx context.Context) ([]domain.Bookmark, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.Fake.List(ctx)
}

func TestStaleRefreshAfterClearIsDiscarded(t *testing.T) {
	fake := newFake()
	fake.Seed(row("a", 0))
	stub := &blockingList{Fake: fake, entered: make(chan struct{}), release: make(chan struct{})}
	coll, s := newSyncer(t, stub)

	done := make(chan bool)
	go func() { done <- s.Refresh(context.Background()) }()

	<-stub.entered
	coll.Clear()
	close(stub.release)

	assert.False(t, <-done)
	assert.Zero(t, coll.Len())
}

func TestClosedCollectionRejectsMutation(t *testing.T) {
	fake := newFake()
	fake.Seed(row("a", 0))
	coll, s := newSyncer(t, fake)
	require.True(t, s.Refresh(context.Background()))

	coll.Close()

	_, err := s.Add(remotetest.User, domain.Draft{Title: "GitHub", URL: "https://github.com"})
	assert.ErrorIs(t, err, domain.ErrUnmounted)
	assert.ErrorIs(t, s.Delete("a"), domain.ErrUnmounted)
	assert.False(t, s.Refresh(context.Background()))
	assert.Equal(t, []string{"a"}, ids(coll.Snapshot()))
	assert.Zero(t, fake.Inserts())
	assert.Zero(t, fake.Deletes())
}

func TestWritesAfterStopAreNotIssued(t *testing.T) {
	fake := newFake()
	fake.Seed(domain.Bookmark{ID: "gh", Title: "GitHub", URL: "https://github.com", CreatedAt: time.Now(), UserID: remotetest.User.ID})
	_, s := newSyncer(t, fake)
	require.True(t, s.Refresh(context.Background()))

	s.Stop()

	_, err := s.Add(remotetest.User, domain.Draft{Title: "Go", URL: "https://go.dev"})
	assert.ErrorIs(t, err, domain.ErrUnmounted)
	assert.ErrorIs(t, s.Delete("gh"), domain.ErrUnmounted)
	assert.Zero(t, fake.Inserts())
	assert.Zero(t, fake.Deletes())
}

func TestStopDuringAddDoesNotLeakTheInsert(t *testing.T) {
	fake := newFake()
	coll, s := newSyncer(t, fake)

	var once sync.Once
	sub := coll.Watch(func(entries []domain.Entry) {
		if len(entries) == 1 && entries[0].Provisional {
			once.Do(func() {
				coll.Close()
				s.Stop()
			})
		}
	})
	defer sub.Unsubscribe()

	_, err := s.Add(remotetest.User, domain.Draft{Title: "Go", URL: "https://go.dev"})
	assert.ErrorIs(t, err, domain.ErrUnmounted)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, fake.Inserts(), "no remote insert may start after Stop returned")
}
