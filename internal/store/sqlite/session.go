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

var _ remote.SessionStore = (*Store)(nil)

func (s *Store) UpsertUser(ctx context.Context, email string) (domain.User, error) {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users(id, email, created_at) VALUES(?, ?, ?)
ON CONFLICT(email) DO NOTHING
`, uuid.NewString(), email, toMillis(s.now()))
	if err != nil {
		return domain.User{}, fmt.Errorf("register user: %w", err)
	}

	u := domain.User{Email: email}
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&u.ID); err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Store) SaveSession(ctx context.Context, sess domain.Session) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions(id, user_id, created_at, expires_at) VALUES(?, ?, ?, ?)
`, sess.ID, sess.User.ID, toMillis(sess.CreatedAt), toMillis(sess.ExpiresAt))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession returns nil, nil for unknown or expired sessions.
func (s *Store) LoadSession(ctx context.Context, id string) (*domain.Session, error) {
	var sess domain.Session
	var created, expires int64
	err := s.db.QueryRowContext(ctx, `
SELECT s.id, u.id, u.email, s.created_at, s.expires_at
FROM sessions s JOIN users u ON u.id = s.user_id
WHERE s.id = ? AND s.expires_at > ?
`, id, toMillis(s.now())).Scan(&sess.ID, &sess.User.ID, &sess.User.Email, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	sess.CreatedAt = fromMillis(created)
	sess.ExpiresAt = fromMillis(expires)
	return &sess, nil
}

func (s *Store) RevokeSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.revoked.Emit(id)
	return nil
}

func (s *Store) OnRevoke(fn func(sessionID string)) (remote.Subscription, error) {
	return s.revoked.Add(fn), nil
}

// PurgeExpiredSessions deletes sessions past their expiry.
func (s *Store) PurgeExpiredSessions(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, toMillis(s.now()))
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return int(n), nil
}
