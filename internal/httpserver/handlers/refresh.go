package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

type refreshResponse struct {
	Queued bool   `json:"queued"`
	Status string `json:"status"`
}

// Refresh queues a refetch of the collection. A refresh already waiting
// answers 429.
func Refresh(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		queued, err := d.View.Refresh()
		if err != nil {
			writeError(w, statusOf(err), err.Error())
			return
		}

		if !queued {
			d.Logger.Warn("refresh already queued", logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, refreshResponse{Status: "refresh already queued"})
			return
		}

		d.Logger.Info("manual refresh triggered via endpoint", logger.String("remote_ip", r.RemoteAddr))
		writeJSON(w, http.StatusAccepted, refreshResponse{Queued: true, Status: "refresh queued"})
	}
}
