package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/smartmark/internal/gate"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

// Jump redirects ?q= to the best matching bookmark. An empty query goes
// home, a query without a match goes to the filtered list.
func Jump(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(r.URL.Query().Get("q")), "@"))

		if d.View.State() != gate.Authenticated {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}
		if query == "" {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}

		best, ok := d.View.Jump(query)
		if !ok {
			d.Logger.Info("no matching bookmark", logger.String("query", query))
			http.Redirect(w, r, "/?q="+url.QueryEscape(query), http.StatusFound)
			return
		}

		d.Logger.Info("resolved bookmark",
			logger.String("query", query),
			logger.String("title", best.Title),
			logger.String("url", best.URL),
			logger.String("id", best.ID))
		http.Redirect(w, r, best.URL, http.StatusFound)
	}
}
