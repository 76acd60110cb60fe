package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDraftValidate(t *testing.T) {
	tests := []struct {
		name    string
		draft   Draft
		wantErr error
	}{
		{name: "valid", draft: Draft{Title: "GitHub", URL: "https://github.com"}},
		{name: "valid with path", draft: Draft{Title: "Go", URL: "http://go.dev/doc/"}},
		{name: "surrounding spaces", draft: Draft{Title: "  GitHub ", URL: " https://github.com "}},
		{name: "empty title", draft: Draft{Title: "   ", URL: "https://github.com"}, wantErr: ErrInvalidTitle},
		{name: "empty url", draft: Draft{Title: "GitHub"}, wantErr: ErrInvalidURL},
		{name: "relative url", draft: Draft{Title: "GitHub", URL: "github.com"}, wantErr: ErrInvalidURL},
		{name: "unsupported scheme", draft: Draft{Title: "GitHub", URL: "ftp://github.com"}, wantErr: ErrInvalidURL},
		{name: "missing host", draft: Draft{Title: "GitHub", URL: "https://"}, wantErr: ErrInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBookmarkFaviconURL(t *testing.T) {
	b := Bookmark{URL: "https://github.com/MrSnakeDoc"}
	if got := b.Hostname(); got != "github.com" {
		t.Errorf("Hostname() = %q, want github.com", got)
	}
	if got := b.FaviconURL(); got != FaviconService+"github.com" {
		t.Errorf("FaviconURL() = %q", got)
	}

	broken := Bookmark{URL: "://nope"}
	if got := broken.FaviconURL(); got != "" {
		t.Errorf("FaviconURL() for unparsable url = %q, want empty", got)
	}
}

func TestEntryVariants(t *testing.T) {
	now := time.Now()
	p := Provisional("tmp_1", Draft{Title: " GitHub ", URL: "https://github.com"}, "user-1", now)
	if id, ok := p.TempID(); !ok || id != "tmp_1" {
		t.Errorf("TempID() = %q, %v", id, ok)
	}
	if _, ok := p.Row(); ok {
		t.Error("Row() should be false for a provisional entry")
	}
	if p.Title != "GitHub" || p.UserID != "user-1" || !p.CreatedAt.Equal(now) {
		t.Errorf("Provisional() built %+v", p)
	}

	c := Confirmed(Bookmark{ID: "row-1"})
	if _, ok := c.TempID(); ok {
		t.Error("TempID() should be false for a confirmed entry")
	}
	if row, ok := c.Row(); !ok || row.ID != "row-1" {
		t.Errorf("Row() = %+v, %v", row, ok)
	}
}

func TestIDGeneratorIsMonotonic(t *testing.T) {
	gen := NewIDGenerator()
	seen := make(map[string]bool)
	prev := ""
	for i := 0; i < 1000; i++ {
		id := gen.Next()
		if !strings.HasPrefix(id, ProvisionalPrefix) {
			t.Fatalf("Next() = %q, missing prefix", id)
		}
		if seen[id] {
			t.Fatalf("Next() returned duplicate %q", id)
		}
		if id <= prev {
			t.Fatalf("Next() = %q not greater than %q", id, prev)
		}
		seen[id] = true
		prev = id
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	var nilSession *Session
	if !nilSession.Expired(now) {
		t.Error("nil session should be expired")
	}
	s := &Session{ExpiresAt: now.Add(time.Minute)}
	if s.Expired(now) {
		t.Error("session should not be expired yet")
	}
	if !s.Expired(now.Add(time.Minute)) {
		t.Error("session should be expired at ExpiresAt")
	}
}
