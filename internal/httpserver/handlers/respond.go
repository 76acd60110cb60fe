package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/gate"
	"github.com/MrSnakeDoc/smartmark/internal/view"
)

// maxBody bounds JSON and form request bodies.
const maxBody = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

type entryResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Host        string    `json:"host"`
	Favicon     string    `json:"favicon,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Provisional bool      `json:"provisional,omitempty"`
}

type listingResponse struct {
	State       gate.State      `json:"state"`
	Loading     bool            `json:"loading"`
	Query       string          `json:"query"`
	Count       int             `json:"count"`
	Entries     []entryResponse `json:"entries"`
	EmptyReason string          `json:"empty_reason,omitempty"`
}

func toEntry(e domain.Entry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		Title:       e.Title,
		URL:         e.URL,
		Host:        e.Hostname(),
		Favicon:     e.FaviconURL(),
		CreatedAt:   e.CreatedAt,
		Provisional: e.Provisional,
	}
}

func toListing(l view.Listing) listingResponse {
	out := listingResponse{
		State:       l.State,
		Loading:     l.Loading,
		Query:       l.Query,
		Count:       len(l.Entries),
		Entries:     make([]entryResponse, 0, len(l.Entries)),
		EmptyReason: l.EmptyReason,
	}
	for _, e := range l.Entries {
		out.Entries = append(out.Entries, toEntry(e))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusOf maps view and domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidTitle), errors.Is(err, domain.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnmounted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// decodeInput fills dst from a JSON body or, for other content types, from
// form values via fromForm.
func decodeInput(w http.ResponseWriter, r *http.Request, dst any, fromForm func(get func(string) string)) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if isJSON(r) {
		return json.NewDecoder(r.Body).Decode(dst)
	}
	if err := r.ParseForm(); err != nil {
		return err
	}
	fromForm(r.PostForm.Get)
	return nil
}
