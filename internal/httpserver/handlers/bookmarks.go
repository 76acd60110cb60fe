package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/gate"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

// LoginPath is where unauthenticated clients are sent.
const LoginPath = "/login"

// ListBookmarks returns the collection filtered by ?q=. While the session is
// pending it answers 503 with Retry-After; without a session it answers 401
// pointing at the login surface.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listing := d.View.Bookmarks(r.URL.Query().Get("q"))

		switch listing.State {
		case gate.Unauthenticated:
			w.Header().Set("Location", LoginPath)
			writeJSON(w, http.StatusUnauthorized, toListing(listing))
		case gate.Pending:
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusServiceUnavailable, toListing(listing))
		default:
			writeJSON(w, http.StatusOK, toListing(listing))
		}
	}
}

// CreateBookmark adds {title, url} optimistically and answers 202 with the
// provisional entry.
func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var draft domain.Draft
		err := decodeInput(w, r, &draft, func(get func(string) string) {
			draft = domain.Draft{Title: get("title"), URL: get("url")}
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}

		entry, err := d.View.Add(draft)
		if err != nil {
			writeError(w, statusOf(err), err.Error())
			return
		}

		d.Logger.Info("bookmark added",
			logger.String("temp_id", entry.ID),
			logger.String("title", entry.Title))
		writeJSON(w, http.StatusAccepted, toEntry(entry))
	}
}

type deleteResponse struct {
	ID string `json:"id"`
}

// DeleteBookmark removes the entry from the collection and queues the remote
// delete.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "id"))
		if err := d.View.Delete(id); err != nil {
			writeError(w, statusOf(err), err.Error())
			return
		}

		d.Logger.Info("bookmark deleted", logger.String("id", id))
		writeJSON(w, http.StatusAccepted, deleteResponse{ID: id})
	}
}
