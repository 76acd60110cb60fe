// Package collection holds the client-side bookmark list and keeps it in
// sync with the remote store: optimistic edits first, wholesale refresh from
// the store afterwards, never a rollback.
package collection

import (
	"sync"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/remote"
)

// Collection is the ordered, newest-first list of entries shown to the user.
// All mutation goes through its methods.
//
// The epoch is bumped by Clear and Close. A refresh captures the epoch before
// it fetches and applies its result only if the epoch is unchanged, so rows
// fetched for a session that has since ended never reappear.
type Collection struct {
	mu      sync.RWMutex
	entries []domain.Entry
	epoch   uint64
	closed  bool

	watchers remote.Listeners[[]domain.Entry]
}

func New() *Collection {
	return &Collection{}
}

// Snapshot returns a copy of the entries in display order.
func (c *Collection) Snapshot() []domain.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return clone(c.entries)
}

// Len returns the number of entries.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Get returns the entry with id.
func (c *Collection) Get(id string) (domain.Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		if e.ID == id {
			return e, true
		}
	}
	return domain.Entry{}, false
}

// Epoch returns the current epoch.
func (c *Collection) Epoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}

// Closed reports whether Close was called.
func (c *Collection) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// ReplaceIf swaps in entries when epoch is still current and the collection
// is open. It reports whether the swap happened.
func (c *Collection) ReplaceIf(epoch uint64, entries []domain.Entry) bool {
	c.mu.Lock()
	if c.closed || c.epoch != epoch {
		c.mu.Unlock()
		return false
	}
	c.entries = clone(entries)
	snap := clone(c.entries)
	c.mu.Unlock()

	c.watchers.Emit(snap)
	return true
}

// Prepend puts e at the head of the collection.
func (c *Collection) Prepend(e domain.Entry) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrUnmounted
	}
	next := make([]domain.Entry, 0, len(c.entries)+1)
	next = append(next, e)
	next = append(next, c.entries...)
	c.entries = next
	snap := clone(c.entries)
	c.mu.Unlock()

	c.watchers.Emit(snap)
	return nil
}

// Remove drops the entry with id and returns it. Removing an absent id
// returns ErrNotFound and leaves the collection unchanged.
func (c *Collection) Remove(id string) (domain.Entry, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.Entry{}, domain.ErrUnmounted
	}
	idx := -1
	for i, e := range c.entries {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return domain.Entry{}, domain.ErrNotFound
	}
	removed := c.entries[idx]
	next := make([]domain.Entry, 0, len(c.entries)-1)
	next = append(next, c.entries[:idx]...)
	next = append(next, c.entries[idx+1:]...)
	c.entries = next
	snap := clone(c.entries)
	c.mu.Unlock()

	c.watchers.Emit(snap)
	return removed, nil
}

// Clear empties the collection and invalidates in-flight refreshes.
func (c *Collection) Clear() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.epoch++
	c.entries = nil
	c.mu.Unlock()

	c.watchers.Emit([]domain.Entry{})
}

// Close freezes the collection. Every later mutation is rejected and
// in-flight refreshes are discarded.
func (c *Collection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.epoch++
}

// Watch registers fn to receive a snapshot after every change.
func (c *Collection) Watch(fn func([]domain.Entry)) remote.Subscription {
	return c.watchers.Add(fn)
}

func clone(entries []domain.Entry) []domain.Entry {
	out := make([]domain.Entry, len(entries))
	copy(out, entries)
	return out
}
