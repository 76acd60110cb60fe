package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/mw"
)

func init() {
	Register(registerBookmarks)
	RegisterStream(registerLive)
}

func requireSession(d deps.Deps) func(http.Handler) http.Handler {
	return mw.RequireSession(d.Tokens.Verify, d.View.Session, d.Logger)
}

func registerBookmarks(r chi.Router, d deps.Deps) {
	r = r.With(mw.EnforceHost(d.AllowedHosts, d.Logger))

	r.With(requireSession(d)).Get("/", handlers.ListBookmarks(d))
	r.With(requireSession(d)).Get("/go", handlers.Jump(d))

	r.Route("/api", func(r chi.Router) {
		// CORS first so preflights, which carry no credentials, are answered.
		r.Use(mw.CORS(d.AllowedOrigins))
		r.Use(requireSession(d))
		r.Get("/bookmarks", handlers.ListBookmarks(d))
		r.Post("/bookmarks", handlers.CreateBookmark(d))
		r.Delete("/bookmarks/{id}", handlers.DeleteBookmark(d))
		r.Post("/refresh", handlers.Refresh(d))
	})
}

func registerLive(r chi.Router, d deps.Deps) {
	r.With(mw.EnforceHost(d.AllowedHosts, d.Logger), requireSession(d)).Get("/api/live", handlers.Live(d))
}
