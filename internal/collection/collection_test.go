package collection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
)

func TestCollectionPrependAndRemove(t *testing.T) {
	c := New()
	require.NoError(t, c.Prepend(domain.Confirmed(row("a", time.Hour))))
	require.NoError(t, c.Prepend(domain.Confirmed(row("b", 0))))
	assert.Equal(t, []string{"b", "a"}, ids(c.Snapshot()))

	removed, err := c.Remove("b")
	require.NoError(t, err)
	assert.Equal(t, "b", removed.ID)
	assert.Equal(t, []string{"a"}, ids(c.Snapshot()))

	_, err = c.Remove("b")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCollectionSnapshotIsACopy(t *testing.T) {
	c := New()
	require.NoError(t, c.Prepend(domain.Confirmed(row("a", 0))))

	snap := c.Snapshot()
	snap[0].Title = "changed"

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.Title)
}

func TestCollectionClearBumpsEpoch(t *testing.T) {
	c := New()
	epoch := c.Epoch()
	require.NoError(t, c.Prepend(domain.Confirmed(row("a", 0))))

	c.Clear()

	assert.Zero(t, c.Len())
	assert.NotEqual(t, epoch, c.Epoch())
	assert.False(t, c.ReplaceIf(epoch, []domain.Entry{domain.Confirmed(row("a", 0))}))
	assert.True(t, c.ReplaceIf(c.Epoch(), []domain.Entry{domain.Confirmed(row("a", 0))}))
}

func TestCollectionWatch(t *testing.T) {
	c := New()
	var seen [][]string
	sub := c.Watch(func(entries []domain.Entry) { seen = append(seen, ids(entries)) })

	require.NoError(t, c.Prepend(domain.Confirmed(row("a", 0))))
	_, err := c.Remove("a")
	require.NoError(t, err)
	c.Clear()

	sub.Unsubscribe()
	require.NoError(t, c.Prepend(domain.Confirmed(row("b", 0))))

	assert.Equal(t, [][]string{{"a"}, {}, {}}, seen)
}

func TestCollectionCloseFreezes(t *testing.T) {
	c := New()
	require.NoError(t, c.Prepend(domain.Confirmed(row("a", 0))))
	epoch := c.Epoch()

	c.Close()
	c.Close()

	assert.True(t, c.Closed())
	assert.ErrorIs(t, c.Prepend(domain.Confirmed(row("b", 0))), domain.ErrUnmounted)
	_, err := c.Remove("a")
	assert.ErrorIs(t, err, domain.ErrUnmounted)
	assert.False(t, c.ReplaceIf(c.Epoch(), nil))
	assert.NotEqual(t, epoch, c.Epoch())
	c.Clear()
	assert.Equal(t, 1, c.Len())
}
