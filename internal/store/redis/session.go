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
	"github.com/MrSnakeDoc/smartmark/internal/remote"
)

var _ remote.SessionStore = (*Store)(nil)

// UpsertUser returns the user registered for email, creating it first if
// needed. Concurrent first sign-ins agree on one id.
func (s *Store) UpsertUser(ctx context.Context, email string) (domain.User, error) {
	candidate := uuid.NewString()
	created, err := s.client.SetNX(ctx, UserEmailKey(email), candidate, 0).Result()
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to register user: %w", err)
	}

	id := candidate
	if created {
		if err := s.client.SAdd(ctx, AllUsersKey(), id).Err(); err != nil {
			return domain.User{}, fmt.Errorf("failed to add user to set: %w", err)
		}
	} else {
		id, err = s.client.Get(ctx, UserEmailKey(email)).Result()
		if err != nil {
			return domain.User{}, fmt.Errorf("failed to get user: %w", err)
		}
	}

	return domain.User{ID: id, Email: email}, nil
}

// SaveSession stores a session until it expires. The access token is not
// stored.
func (s *Store) SaveSession(ctx context.Context, session domain.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", session.ID)
	}

	session.AccessToken = ""
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, SessionKey(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadSession retrieves a session, or nil when it expired or was revoked
func (s *Store) LoadSession(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, SessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// RevokeSession deletes a session and announces it to every process
func (s *Store) RevokeSession(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, SessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := s.client.Publish(ctx, ChannelRevoked, id).Err(); err != nil {
		return fmt.Errorf("failed to publish revocation: %w", err)
	}
	return nil
}

// OnRevoke registers fn for revocations received by Listen
func (s *Store) OnRevoke(fn func(sessionID string)) (remote.Subscription, error) {
	return s.revoked.Add(fn), nil
}
