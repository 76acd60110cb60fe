package app

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/auth"
	"github.com/MrSnakeDoc/smartmark/internal/config"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
	"github.com/MrSnakeDoc/smartmark/internal/scheduler"
	"github.com/MrSnakeDoc/smartmark/internal/utils"
	"github.com/MrSnakeDoc/smartmark/internal/version"
	"github.com/MrSnakeDoc/smartmark/internal/view"
)

type App struct {
	cfg     *config.Config
	logger  logger.Logger
	backend Backend
	view    *view.View
	gc      *scheduler.GarbageCollector
	server  *httpserver.Server
}

// New connects the backend and assembles the view, the session sweeper and
// the HTTP server. Nothing runs until Run.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	backend, err := OpenBackend(ctx, cfg, loggerClient)
	if err != nil {
		return nil, err
	}
	loggerClient.Info("backend ready", logger.String("backend", cfg.Backend))

	if cfg.AccessToken != "" {
		if s, err := backend.Restore(ctx, cfg.AccessToken); err != nil {
			loggerClient.Warn("configured access token not restored, sign in required", logger.Error(err))
		} else {
			loggerClient.Info("session restored from access token", logger.String("user_id", s.User.ID))
		}
	}

	v := view.New(backend, loggerClient.Named("view"), view.Options{
		SessionTimeout: cfg.SessionTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		FetchTimeout:   cfg.FetchTimeout,
		Redirect: func(reason string) {
			loggerClient.Info("login required", logger.String("reason", reason))
		},
	})

	gc := scheduler.NewGarbageCollector(backend, loggerClient.Named("gc"), cfg.GCInterval)

	d := deps.Deps{
		Logger:         loggerClient,
		View:           v,
		Tokens:         auth.NewTokens(cfg.JWTSecret),
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		Backend:        cfg.Backend,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		AllowedOrigins: cfg.AllowedOrigins,
		TrustProxy:     cfg.TrustProxy,
		LoginRateLimit: cfg.LoginRateLimit,
	}

	return &App{
		cfg:     cfg,
		logger:  loggerClient,
		backend: backend,
		view:    v,
		gc:      gc,
		server:  httpserver.New(cfg, loggerClient, d),
	}, nil
}

// Run serves until ctx ends or the server fails, then shuts everything down
// in reverse order.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("🚀 starting smartmark",
		logger.String("version", version.Version),
		logger.String("commit", version.Commit),
		logger.String("listen", a.cfg.ListenPort),
		logger.String("backend", a.cfg.Backend))

	if err := a.view.Mount(ctx); err != nil {
		return fmt.Errorf("mount view: %w", err)
	}

	a.gc.Start(ctx)
	a.logger.Info("session sweeper started", logger.Duration("interval", a.cfg.GCInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ shutting down gracefully")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	a.gc.Stop()
	a.view.Unmount()
	utils.MustClose(a.backend, a.logger, a.cfg.Backend)

	if runErr == nil {
		a.logger.Info("✅ smartmark stopped cleanly")
	}
	return runErr
}
