package mw

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS answers cross-origin requests from the allowed origins. "*" allows
// any origin. An empty list disables CORS headers entirely.
func CORS(allowed []string) func(http.Handler) http.Handler {
	if len(allowed) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return AllowOrigin(allowed, origin)
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Location", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           600,
	})
}

// AllowOrigin reports whether origin is in allowed (case-insensitive). The
// websocket upgrader shares it so /api and /api/live accept the same origins.
func AllowOrigin(allowed []string, origin string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
