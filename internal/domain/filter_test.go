package domain

import (
	"testing"
	"time"
)

func sampleEntries() []Entry {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []Entry{
		Confirmed(Bookmark{ID: "1", Title: "GitHub", URL: "https://github.com", CreatedAt: now}),
		Confirmed(Bookmark{ID: "2", Title: "Example", URL: "https://example.com", CreatedAt: now.Add(-time.Hour)}),
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{name: "lowercase query matches title", query: "git", expected: []string{"1"}},
		{name: "uppercase query", query: "GIT", expected: []string{"1"}},
		{name: "matches url text", query: "example.com", expected: []string{"2"}},
		{name: "scheme matches both", query: "https://", expected: []string{"1", "2"}},
		{name: "empty query keeps order", query: "", expected: []string{"1", "2"}},
		{name: "no match", query: "gitlab", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(sampleEntries(), tt.query)
			if len(got) != len(tt.expected) {
				t.Fatalf("Filter(%q) returned %d entries, want %d", tt.query, len(got), len(tt.expected))
			}
			for i := range got {
				if got[i].ID != tt.expected[i] {
					t.Errorf("Filter(%q)[%d] = %s, want %s", tt.query, i, got[i].ID, tt.expected[i])
				}
			}
		})
	}
}

func TestFilterDoesNotAliasInput(t *testing.T) {
	entries := sampleEntries()
	got := Filter(entries, "")
	got[0].Title = "changed"
	if entries[0].Title != "GitHub" {
		t.Error("Filter() must not share the backing array with its input")
	}
}

func TestFilterIsIdempotent(t *testing.T) {
	entries := sampleEntries()
	first := Filter(entries, "git")
	second := Filter(entries, "git")
	if len(first) != len(second) || first[0].ID != second[0].ID {
		t.Errorf("Filter() not idempotent: %v vs %v", first, second)
	}
}
