package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/gate"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

const readyPingTimeout = 2 * time.Second

type readyzResponse struct {
	Ready   bool       `json:"ready"`
	Backend string     `json:"backend,omitempty"`
	Session gate.State `json:"session"`
	Error   string     `json:"error,omitempty"`
}

// Readyz pings the backend and reports the session gate state. Only a failed
// ping makes the service unready.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyPingTimeout)
		defer cancel()

		resp := readyzResponse{Ready: true, Backend: d.Backend, Session: d.View.State()}
		status := http.StatusOK
		if err := d.View.Ping(ctx); err != nil {
			d.Logger.Warn("backend ping failed", logger.String("backend", d.Backend), logger.Error(err))
			resp.Ready = false
			resp.Error = "backend unreachable"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}
