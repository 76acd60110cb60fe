package domain

import "strings"

// Filter returns the entries whose title or URL contains query,
// case-insensitively, preserving collection order. An empty query returns
// the entries unchanged. The input is never modified.
func Filter(entries []Entry, query string) []Entry {
	q := strings.ToLower(query)
	if q == "" {
		out := make([]Entry, len(entries))
		copy(out, entries)
		return out
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Title), q) ||
			strings.Contains(strings.ToLower(e.URL), q) {
			out = append(out, e)
		}
	}
	return out
}
