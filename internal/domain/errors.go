package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTitle = errors.New("title is required")
	ErrInvalidURL   = errors.New("url must be an absolute http(s) url")
	ErrNoSession    = errors.New("no active session")
	ErrNotFound     = errors.New("bookmark not found")
	ErrForbidden    = errors.New("bookmark belongs to another user")
	ErrUnmounted    = errors.New("view is unmounted")
)

// SessionError is a session lookup or listener failure. The gate answers it
// by redirecting to the login surface.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string { return fmt.Sprintf("session %s: %v", e.Op, e.Err) }
func (e *SessionError) Unwrap() error { return e.Err }

// FetchError is a collection read failure. The stale collection is kept.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch bookmarks: %v", e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// WriteError is an insert or delete failure. Optimistic state is not rolled
// back; the next refresh reconciles it.
type WriteError struct {
	Op  string // "insert" or "delete"
	ID  string // provisional id for inserts, row id for deletes
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s bookmark %s: %v", e.Op, e.ID, e.Err)
}
func (e *WriteError) Unwrap() error { return e.Err }
