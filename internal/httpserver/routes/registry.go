package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	reg Registrar
	mws []Middleware
}

var (
	registry []entry
	streams  []entry
)

// Register adds request/response routes. They run under the server's
// per-request timeout.
func Register(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{reg: reg, mws: mws})
}

// RegisterStream adds long-lived routes (websockets) that must not be cut by
// the per-request timeout.
func RegisterStream(reg Registrar, mws ...Middleware) {
	streams = append(streams, entry{reg: reg, mws: mws})
}

// RegisterAll mounts the request/response routes. Called once from server.New.
func RegisterAll(r chi.Router, d deps.Deps) { mount(r, d, registry) }

// RegisterStreams mounts the long-lived routes. Called once from server.New.
func RegisterStreams(r chi.Router, d deps.Deps) { mount(r, d, streams) }

func mount(r chi.Router, d deps.Deps, entries []entry) {
	for _, e := range entries {
		if len(e.mws) == 0 {
			e.reg(r, d)
			continue
		}
		e.reg(r.With(e.mws...), d)
	}
}
