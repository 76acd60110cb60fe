package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/mw"
)

func init() { Register(registerSession) }

func registerSession(r chi.Router, d deps.Deps) {
	r = r.With(mw.EnforceHost(d.AllowedHosts, d.Logger))

	r.Get(handlers.LoginPath, handlers.LoginPage(d))
	r.With(mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.LoginRateLimit,
		RefillPerIPPerMin: d.LoginRateLimit,
		MaxEntries:        10_000,
		TrustProxy:        d.TrustProxy,
	})).Post(handlers.LoginPath, handlers.Login(d))
	r.With(requireSession(d)).Post("/logout", handlers.Logout(d))
}
