package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
	"github.com/MrSnakeDoc/smartmark/internal/remote"
)

// Client is the Redis remote.Client. Rows and sessions live in Redis;
// changes and revocations travel over pub/sub, so several processes
// sharing one Redis see each other's writes.
type Client struct {
	*remote.AuthClient

	rdb   *redis.Client
	store *Store
}

var _ remote.Client = (*Client)(nil)

func NewClient(rdb *redis.Client, tokens remote.TokenCodec, sessionTTL time.Duration, log logger.Logger) *Client {
	store := NewStore(rdb, log)
	return &Client{
		AuthClient: remote.NewAuthClient(store, tokens, sessionTTL, log.Named("auth")),
		rdb:        rdb,
		store:      store,
	}
}

// Start begins listening for notifications.
func (c *Client) Start(ctx context.Context) error {
	if err := c.store.Listen(ctx); err != nil {
		return err
	}
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

// Sweep prunes index entries left behind by interrupted deletes.
func (c *Client) Sweep(ctx context.Context) (int, error) {
	return c.store.PruneDangling(ctx)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	c.AuthClient.Stop()
	if err := c.store.Close(); err != nil {
		return fmt.Errorf("failed to close listener: %w", err)
	}
	return c.rdb.Close()
}
