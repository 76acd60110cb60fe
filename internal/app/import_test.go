package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/smartmark/internal/auth"
	"github.com/MrSnakeDoc/smartmark/internal/config"
	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
	"github.com/MrSnakeDoc/smartmark/internal/remote/remotetest"
	sqlitestore "github.com/MrSnakeDoc/smartmark/internal/store/sqlite"
)

func testConfig() *config.Config {
	return &config.Config{
		SessionTTL:     time.Hour,
		SessionTimeout: time.Second,
		WriteTimeout:   time.Second,
		FetchTimeout:   time.Second,
	}
}

func sqliteClient(t *testing.T) *sqlitestore.Client {
	t.Helper()
	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "smartmark.db"), logger.NewNop())
	require.NoError(t, err)
	c := sqlitestore.NewClient(store, auth.NewTokens("0123456789abcdef"), time.Hour, logger.NewNop())
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestImportDrafts(t *testing.T) {
	c := sqliteClient(t)
	ctx := context.Background()
	drafts := []domain.Draft{
		{Title: "GitHub", URL: "https://github.com"},
		{Title: "Go", URL: "https://go.dev"},
	}

	res, err := importDrafts(ctx, c, logger.NewNop(), testConfig(), drafts, nil, "me@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 2, res.Total)

	// A second run only adds what is missing.
	drafts = append(drafts, domain.Draft{Title: "Example", URL: "https://example.com"})
	res, err = importDrafts(ctx, c, logger.NewNop(), testConfig(), drafts, nil, "me@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, 2, res.Duplicate)
	assert.Equal(t, 3, res.Total)
}

func TestImportDraftsCountsOnlyStoredRows(t *testing.T) {
	fake := remotetest.New()
	fake.Seed(domain.Bookmark{ID: "gh", Title: "GitHub", URL: "https://github.com", CreatedAt: time.Now(), UserID: remotetest.User.ID})
	fake.FailInsert(errors.New("store down"))
	drafts := []domain.Draft{
		{Title: "GitHub", URL: "https://github.com"},
		{Title: "Go", URL: "https://go.dev"},
		{Title: "Example", URL: "https://example.com"},
	}

	res, err := importDrafts(context.Background(), fake, logger.NewNop(), testConfig(), drafts, nil, "me@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 1, res.Duplicate)
	assert.Equal(t, 1, res.Total)
	assert.EqualValues(t, 2, fake.Inserts())
}

func TestImportDraftsNeedsIdentity(t *testing.T) {
	c := sqliteClient(t)

	_, err := importDrafts(context.Background(), c, logger.NewNop(), testConfig(), nil, nil, "")
	assert.Error(t, err)

	_, err = importDrafts(context.Background(), c, logger.NewNop(), testConfig(), nil, nil, "not an email")
	var se *domain.SessionError
	assert.ErrorAs(t, err, &se)
}
