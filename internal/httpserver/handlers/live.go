package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/gate"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/mw"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

const (
	liveWriteTimeout = 5 * time.Second
	livePingInterval = 30 * time.Second
	liveReadTimeout  = 2 * livePingInterval
)

// Live streams the filtered listing for ?q= over a websocket: once on
// connect and again after every collection change or session transition.
// Bursts of changes collapse into one push.
func Live(d deps.Deps) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
	}
	if len(d.AllowedOrigins) > 0 {
		upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || mw.AllowOrigin(d.AllowedOrigins, origin)
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			d.Logger.Debug("websocket upgrade failed", logger.Error(err))
			return
		}
		defer ws.Close()

		dirty := make(chan struct{}, 1)
		mark := func() {
			select {
			case dirty <- struct{}{}:
			default:
			}
		}
		entriesSub := d.View.Watch(func([]domain.Entry) { mark() })
		defer entriesSub.Unsubscribe()
		stateSub := d.View.WatchState(func(gate.State) { mark() })
		defer stateSub.Unsubscribe()
		mark()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// The client sends nothing; reading keeps pongs flowing and notices
		// when the peer goes away.
		go func() {
			defer cancel()
			ws.SetReadLimit(512)
			_ = ws.SetReadDeadline(time.Now().Add(liveReadTimeout))
			ws.SetPongHandler(func(string) error {
				return ws.SetReadDeadline(time.Now().Add(liveReadTimeout))
			})
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(livePingInterval)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-dirty:
				_ = ws.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
				if err := ws.WriteJSON(toListing(d.View.Bookmarks(query))); err != nil {
					d.Logger.Debug("live push failed", logger.Error(err))
					return
				}
			case <-ping.C:
				_ = ws.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}
