package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/gate"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/mw"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
	"github.com/MrSnakeDoc/smartmark/internal/remote"
)

const loginHint = "Sign in: POST /login with email=you@example.com (form or JSON).\n" +
	"Then send the returned access_token as \"Authorization: Bearer <token>\" or keep the session cookie.\n"

type loginRequest struct {
	Email string `json:"email"`
}

type loginResponse struct {
	User        domain.User `json:"user"`
	AccessToken string      `json:"access_token"`
	ExpiresAt   string      `json:"expires_at"`
}

// LoginPage is the login surface. Signed-in clients are sent home.
func LoginPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.View.State() == gate.Authenticated {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write([]byte(loginHint))
	}
}

// Login signs in with an email and redirects home. The access token is set
// as the session cookie for browsers and returned in the body for API
// clients, which send it back as a bearer token.
func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		err := decodeInput(w, r, &req, func(get func(string) string) {
			req.Email = get("email")
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		if _, err := remote.NormalizeEmail(req.Email); err != nil {
			writeError(w, http.StatusBadRequest, "invalid email")
			return
		}

		s, err := d.View.SignIn(r.Context(), req.Email)
		if err != nil {
			d.Logger.Error("sign in failed", logger.Error(err))
			writeError(w, http.StatusBadGateway, "sign in failed")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     mw.SessionCookie,
			Value:    s.AccessToken,
			Path:     "/",
			Expires:  s.ExpiresAt,
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
		w.Header().Set("Location", "/")
		writeJSON(w, http.StatusSeeOther, loginResponse{
			User:        s.User,
			AccessToken: s.AccessToken,
			ExpiresAt:   s.ExpiresAt.Format(time.RFC3339),
		})
	}
}

// Logout signs out and sends the client to the login surface.
func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.View.SignOut(r.Context()); err != nil {
			d.Logger.Error("sign out failed", logger.Error(err))
			writeError(w, http.StatusBadGateway, "sign out failed")
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     mw.SessionCookie,
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
	}
}
