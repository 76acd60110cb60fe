package app

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/smartmark/internal/config"
	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/gate"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
	"github.com/MrSnakeDoc/smartmark/internal/remote"
	"github.com/MrSnakeDoc/smartmark/internal/sources/homepage"
	"github.com/MrSnakeDoc/smartmark/internal/utils"
	"github.com/MrSnakeDoc/smartmark/internal/view"
)

// ImportResult summarizes an import run.
type ImportResult struct {
	Added     int // rows that reached the store
	Failed    int // queued drafts whose insert was rolled back
	Duplicate int
	Skipped   []homepage.Skipped
	Total     int // rows owned by the user once every write settled
}

// Import signs in as email (or restores the configured access token when
// email is empty) and adds every bookmark of a Homepage bookmarks.yaml that
// the user does not have yet.
func Import(ctx context.Context, cfg *config.Config, file, email string) (ImportResult, error) {
	log := logger.New(cfg.LogLevel, cfg.PrettyLog)

	bookmarks, err := homepage.NewLoader(file).Load()
	if err != nil {
		return ImportResult{}, err
	}
	drafts, skipped, err := homepage.NewMapper().MapDrafts(bookmarks)
	if err != nil {
		return ImportResult{Skipped: skipped}, err
	}

	backend, err := OpenBackend(ctx, cfg, log)
	if err != nil {
		return ImportResult{}, err
	}
	defer utils.MustClose(backend, log, cfg.Backend)

	return importDrafts(ctx, backend, log, cfg, drafts, skipped, email)
}

func importDrafts(ctx context.Context, client remote.Client, log logger.Logger, cfg *config.Config, drafts []domain.Draft, skipped []homepage.Skipped, email string) (ImportResult, error) {
	res := ImportResult{Skipped: skipped}

	var err error
	if email != "" {
		_, err = client.SignIn(ctx, email)
	} else if cfg.AccessToken != "" {
		_, err = client.Restore(ctx, cfg.AccessToken)
	} else {
		err = fmt.Errorf("an --email or a configured access token is required")
	}
	if err != nil {
		return res, err
	}

	existing, err := client.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list existing bookmarks: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, b := range existing {
		have[b.URL] = true
	}

	v := view.New(client, log.Named("import"), view.Options{
		SessionTimeout: cfg.SessionTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		FetchTimeout:   cfg.FetchTimeout,
	})
	if err := v.Mount(ctx); err != nil {
		return res, err
	}
	if v.State() != gate.Authenticated {
		v.Unmount()
		return res, domain.ErrNoSession
	}

	queued := 0
	for _, d := range drafts {
		if have[d.URL] {
			res.Duplicate++
			continue
		}
		if _, err := v.Add(d); err != nil {
			v.Unmount()
			return res, fmt.Errorf("add %q: %w", d.Title, err)
		}
		have[d.URL] = true
		queued++
	}
	// Unmount waits for the queued inserts.
	v.Unmount()

	rows, err := client.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list imported bookmarks: %w", err)
	}
	// Add succeeds optimistically, so count what actually landed.
	res.Total = len(rows)
	res.Added = max(res.Total-len(existing), 0)
	res.Failed = max(queued-res.Added, 0)
	log.Info("import finished",
		logger.Int("added", res.Added),
		logger.Int("failed", res.Failed),
		logger.Int("duplicate", res.Duplicate),
		logger.Int("skipped", len(res.Skipped)),
		logger.Int("total", res.Total))
	return res, nil
}
