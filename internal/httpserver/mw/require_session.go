package mw

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

// SessionCookie carries the access token for browser clients, which cannot
// set an Authorization header on navigations or websocket upgrades.
const SessionCookie = "smartmark_token"

const loginPath = "/login"

// RequireSession lets a request through only when it carries the access
// token of the established session, as a bearer token or the session
// cookie. While no session is established the request passes and the
// handler answers pending or signed out without exposing any row.
func RequireSession(verify func(token string) (domain.Session, error), current func() *domain.Session, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := current()
			if s == nil {
				next.ServeHTTP(w, r)
				return
			}

			token := AccessToken(r)
			if token == "" {
				deny(w, r, log, "missing access token")
				return
			}
			claimed, err := verify(token)
			if err != nil {
				deny(w, r, log, "invalid access token")
				return
			}
			if claimed.ID != s.ID {
				deny(w, r, log, "access token for another session")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AccessToken returns the bearer token of r, falling back to the session
// cookie.
func AccessToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > len("Bearer ") && strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func deny(w http.ResponseWriter, r *http.Request, log logger.Logger, reason string) {
	log.Warn("request rejected",
		logger.String("reason", reason),
		logger.String("path", r.URL.Path),
		logger.String("remote_ip", r.RemoteAddr))
	w.Header().Set("Location", loginPath)
	w.Header().Set("WWW-Authenticate", `Bearer realm="smartmark"`)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}
