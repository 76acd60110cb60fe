package domain

import (
	"net/url"
	"strings"
	"time"
)

// FaviconService is the public favicon resolver used as a presentational
// fallback. Nothing is fetched server-side.
const FaviconService = "https://www.google.com/s2/favicons?sz=128&domain="

// Bookmark is a row of the remote bookmarks table.
type Bookmark struct {
	// ─────────────────────────────
	// Identity (server-assigned)
	// ─────────────────────────────

	// ID is the opaque identifier assigned by the remote store.
	ID string `json:"id"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	// Title is the user-facing name. Never empty.
	// Example: "GitHub"
	Title string `json:"title"`

	// URL is the absolute http(s) URL.
	// Example: https://github.com
	URL string `json:"url"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// CreatedAt is assigned once by the store and never changes.
	CreatedAt time.Time `json:"created_at"`

	// UserID is the owner. Always the session user; the store enforces it.
	UserID string `json:"user_id"`
}

// Hostname returns the host part of the bookmark URL, or "" when the URL
// does not parse.
func (b Bookmark) Hostname() string {
	return hostnameOf(b.URL)
}

// FaviconURL returns the favicon fallback URL for the bookmark host.
func (b Bookmark) FaviconURL() string {
	host := b.Hostname()
	if host == "" {
		return ""
	}
	return FaviconService + url.QueryEscape(host)
}

// NewBookmark is the insert payload: id and created_at are server-assigned.
type NewBookmark struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	UserID string `json:"user_id"`
}

// Draft is the raw add-form input.
type Draft struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Normalize trims surrounding whitespace from both fields.
func (d Draft) Normalize() Draft {
	return Draft{
		Title: strings.TrimSpace(d.Title),
		URL:   strings.TrimSpace(d.URL),
	}
}

// Validate checks that the title is non-empty and the URL is an absolute
// http or https URL with a host.
func (d Draft) Validate() error {
	d = d.Normalize()
	if d.Title == "" {
		return ErrInvalidTitle
	}
	return ValidateURL(d.URL)
}

// ValidateURL reports whether raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) error {
	if raw == "" {
		return ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}
	if u.Hostname() == "" {
		return ErrInvalidURL
	}
	return nil
}

func hostnameOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
