package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
	"github.com/MrSnakeDoc/smartmark/internal/remote"
)

// Client is the SQLite remote.Client.
type Client struct {
	*remote.AuthClient

	store *Store
}

var _ remote.Client = (*Client)(nil)

func NewClient(store *Store, tokens remote.TokenCodec, sessionTTL time.Duration, log logger.Logger) *Client {
	return &Client{
		AuthClient: remote.NewAuthClient(store, tokens, sessionTTL, log.Named("auth")),
		store:      store,
	}
}

func (c *Client) Start(ctx context.Context) error {
	return c.AuthClient.Start()
}

func (c *Client) List(ctx context.Context) ([]domain.Bookmark, error) {
	user, err := c.CurrentUser()
	if err != nil {
		return nil, err
	}
	return c.store.ListBookmarks(ctx, user.ID)
}

func (c *Client) Insert(ctx context.Context, nb domain.NewBookmark) (domain.Bookmark, error) {
	user, err := c.CurrentUser()
	if err != nil {
		return domain.Bookmark{}, err
	}
	if nb.UserID != user.ID {
		return domain.Bookmark{}, domain.ErrForbidden
	}
	if err := (domain.Draft{Title: nb.Title, URL: nb.URL}).Validate(); err != nil {
		return domain.Bookmark{}, err
	}
	return c.store.InsertBookmark(ctx, nb)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	user, err := c.CurrentUser()
	if err != nil {
		return err
	}
	return c.store.DeleteBookmark(ctx, user.ID, id)
}

// SubscribeToChanges delivers changes to rows of the current session user.
func (c *Client) SubscribeToChanges(fn func(remote.Change)) (remote.Subscription, error) {
	if fn == nil {
		return nil, fmt.Errorf("nil change listener")
	}
	return c.store.changes.Add(func(change remote.Change) {
		user, err := c.CurrentUser()
		if err != nil || user.ID != change.UserID {
			return
		}
		fn(change)
	}), nil
}

// Sweep deletes expired sessions.
func (c *Client) Sweep(ctx context.Context) (int, error) {
	return c.store.PurgeExpiredSessions(ctx)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

func (c *Client) Close() error {
	c.AuthClient.Stop()
	return c.store.Close()
}
