package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/remote"
)

// InsertBookmark stores a new row for nb.UserID and notifies listeners.
func (s *Store) InsertBookmark(ctx context.Context, nb domain.NewBookmark) (domain.Bookmark, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("generate bookmark id: %w", err)
	}

	b := domain.Bookmark{
		ID:        id.String(),
		Title:     nb.Title,
		URL:       nb.URL,
		CreatedAt: fromMillis(toMillis(s.now())),
		UserID:    nb.UserID,
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO bookmarks(id, user_id, title, url, created_at)
VALUES(?, ?, ?, ?, ?)
`, b.ID, b.UserID, b.Title, b.URL, toMillis(b.CreatedAt))
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("insert bookmark: %w", err)
	}

	s.changes.Emit(remote.Change{Kind: remote.ChangeInsert, ID: b.ID, UserID: b.UserID})
	return b, nil
}

// ListBookmarks returns every row of userID, newest first.
func (s *Store) ListBookmarks(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, title, url, created_at
FROM bookmarks
WHERE user_id = ?
ORDER BY created_at DESC, rowid DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Bookmark, 0, 32)
	for rows.Next() {
		var b domain.Bookmark
		var created int64
		if err := rows.Scan(&b.ID, &b.UserID, &b.Title, &b.URL, &created); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		b.CreatedAt = fromMillis(created)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return out, nil
}

// DeleteBookmark removes a row owned by userID and notifies listeners.
func (s *Store) DeleteBookmark(ctx context.Context, userID, id string) error {
	var owner string
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM bookmarks WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get bookmark: %w", err)
	}
	if owner != userID {
		return domain.ErrForbidden
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}

	s.changes.Emit(remote.Change{Kind: remote.ChangeDelete, ID: id, UserID: userID})
	return nil
}
