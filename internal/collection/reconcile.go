package collection

import (
	"sort"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
)

// Stats summarizes what a refresh changed.
type Stats struct {
	Rows               int // authoritative rows
	Added              int // rows not present before
	Removed            int // confirmed entries no longer in the store
	DroppedProvisional int // provisional entries superseded by the store
}

// Changed reports whether the refresh altered the collection.
func (s Stats) Changed() bool {
	return s.Added > 0 || s.Removed > 0 || s.DroppedProvisional > 0
}

// Reconcile computes the collection that follows a refresh. The store is the
// only authority: the result is exactly the authoritative rows, newest
// first, and every provisional entry in old is dropped. Provisional entries
// whose insert succeeded come back as their confirmed row.
func Reconcile(old []domain.Entry, authoritative []domain.Bookmark) ([]domain.Entry, Stats) {
	rows := make([]domain.Bookmark, len(authoritative))
	copy(rows, authoritative)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	stats := Stats{Rows: len(rows)}
	previous := make(map[string]bool, len(old))
	for _, e := range old {
		if e.Provisional {
			stats.DroppedProvisional++
			continue
		}
		previous[e.ID] = true
	}

	next := make([]domain.Entry, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		if !previous[r.ID] {
			stats.Added++
		}
		next = append(next, domain.Confirmed(r))
	}
	for id := range previous {
		if !seen[id] {
			stats.Removed++
		}
	}
	return next, stats
}
