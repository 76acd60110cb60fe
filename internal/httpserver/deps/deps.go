package deps

import (
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
	"github.com/MrSnakeDoc/smartmark/internal/view"
)

// TokenVerifier checks access tokens presented by clients.
type TokenVerifier interface {
	Verify(token string) (domain.Session, error)
}

type Deps struct {
	Logger         logger.Logger
	View           *view.View // the bookmark view served by every route
	Tokens         TokenVerifier
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	Backend        string   // "redis" | "sqlite", reported by /readyz
	AllowedHosts   []string // Host headers allowed on the app routes
	AllowedCIDRS   []string // clients allowed on /readyz
	AllowedOrigins []string // CORS and websocket origins
	TrustProxy     bool     // resolve client IPs from proxy headers
	LoginRateLimit int      // POST /login per client per minute
}
