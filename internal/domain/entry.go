package domain

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ProvisionalPrefix marks ids minted locally before the store confirms a row.
// It is only used for display; code must check Entry.Provisional.
const ProvisionalPrefix = "tmp_"

// Entry is one element of the client-held collection: either a provisional
// record created by an optimistic add, or a row confirmed by the store.
type Entry struct {
	Bookmark

	// Provisional is true until the entry is replaced by a refresh.
	Provisional bool `json:"provisional"`
}

// Confirmed wraps a store row.
func Confirmed(b Bookmark) Entry {
	return Entry{Bookmark: b}
}

// Provisional builds the optimistic record shown before the insert resolves.
func Provisional(tempID string, d Draft, userID string, now time.Time) Entry {
	d = d.Normalize()
	return Entry{
		Bookmark: Bookmark{
			ID:        tempID,
			Title:     d.Title,
			URL:       d.URL,
			CreatedAt: now,
			UserID:    userID,
		},
		Provisional: true,
	}
}

// TempID returns the provisional id and true for provisional entries.
func (e Entry) TempID() (string, bool) {
	if !e.Provisional {
		return "", false
	}
	return e.ID, true
}

// Row returns the confirmed store row and true for confirmed entries.
func (e Entry) Row() (Bookmark, bool) {
	if e.Provisional {
		return Bookmark{}, false
	}
	return e.Bookmark, true
}

// IDGenerator mints provisional ids. ULIDs from a monotonic source are
// strictly increasing within the process, so they never collide with each
// other and sort in creation order.
type IDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewIDGenerator returns a generator backed by crypto/rand.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Next returns a new provisional id.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
	return ProvisionalPrefix + id.String()
}
