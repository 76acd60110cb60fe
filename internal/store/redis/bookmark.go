package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
	"github.com/MrSnakeDoc/smartmark/internal/remote"
)

// InsertBookmark stores a new row for nb.UserID and publishes the change
func (s *Store) InsertBookmark(ctx context.Context, nb domain.NewBookmark) (domain.Bookmark, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to generate bookmark id: %w", err)
	}

	bookmark := domain.Bookmark{
		ID:        id.String(),
		Title:     nb.Title,
		URL:       nb.URL,
		CreatedAt: time.Now().UTC(),
		UserID:    nb.UserID,
	}
	data, err := json.Marshal(bookmark)
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to marshal bookmark: %w", err)
	}

	// Row and index are written atomically
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, BookmarkKey(bookmark.ID), data, 0)
		pipe.ZAdd(ctx, UserBookmarksKey(bookmark.UserID), redis.Z{
			Score:  float64(bookmark.CreatedAt.UnixMilli()),
			Member: bookmark.ID,
		})
		return nil
	})
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to save bookmark: %w", err)
	}

	s.notify(ctx, remote.Change{Kind: remote.ChangeInsert, ID: bookmark.ID, UserID: bookmark.UserID})
	return bookmark, nil
}

// GetBookmark retrieves a bookmark row by ID
func (s *Store) GetBookmark(ctx context.Context, id string) (*domain.Bookmark, error) {
	data, err := s.client.Get(ctx, BookmarkKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bookmark: %w", err)
	}

	var bookmark domain.Bookmark
	if err := json.Unmarshal(data, &bookmark); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bookmark: %w", err)
	}

	return &bookmark, nil
}

// ListBookmarks retrieves every row of userID, newest first
func (s *Store) ListBookmarks(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	ids, err := s.client.ZRevRange(ctx, UserBookmarksKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark IDs: %w", err)
	}

	if len(ids) == 0 {
		return []domain.Bookmark{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = BookmarkKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmarks: %w", err)
	}

	bookmarks := make([]domain.Bookmark, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Dangling index entry, pruned by the sweeper
			continue
		}
		var bookmark domain.Bookmark
		if err := json.Unmarshal([]byte(raw), &bookmark); err != nil {
			s.logger.Warn("skipping unreadable bookmark",
				logger.String("id", ids[i]),
				logger.Error(err))
			continue
		}
		bookmarks = append(bookmarks, bookmark)
	}

	return bookmarks, nil
}

// DeleteBookmark removes a row owned by userID and publishes the change
func (s *Store) DeleteBookmark(ctx context.Context, userID, id string) error {
	bookmark, err := s.GetBookmark(ctx, id)
	if err != nil {
		return err
	}
	if bookmark.UserID != userID {
		return domain.ErrForbidden
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, BookmarkKey(id))
		pipe.ZRem(ctx, UserBookmarksKey(userID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}

	s.notify(ctx, remote.Change{Kind: remote.ChangeDelete, ID: id, UserID: userID})
	return nil
}

// PruneDangling removes index entries whose row no longer exists
func (s *Store) PruneDangling(ctx context.Context) (int, error) {
	users, err := s.client.SMembers(ctx, AllUsersKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get user IDs: %w", err)
	}

	pruned := 0
	for _, userID := range users {
		ids, err := s.client.ZRange(ctx, UserBookmarksKey(userID), 0, -1).Result()
		if err != nil {
			return pruned, fmt.Errorf("failed to get bookmark IDs: %w", err)
		}
		for _, id := range ids {
			n, err := s.client.Exists(ctx, BookmarkKey(id)).Result()
			if err != nil {
				return pruned, fmt.Errorf("failed to check bookmark: %w", err)
			}
			if n > 0 {
				continue
			}
			if err := s.client.ZRem(ctx, UserBookmarksKey(userID), id).Err(); err != nil {
				return pruned, fmt.Errorf("failed to prune bookmark: %w", err)
			}
			pruned++
		}
	}
	return pruned, nil
}

// notify publishes a change. The write already succeeded, so a publish
// failure is only logged; listeners catch up on their next refresh.
func (s *Store) notify(ctx context.Context, change remote.Change) {
	if err := s.publishChange(ctx, change); err != nil {
		s.logger.Warn("failed to publish change",
			logger.String("id", change.ID),
			logger.Error(err))
	}
}
