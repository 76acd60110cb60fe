package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmark/internal/logger"
	"github.com/MrSnakeDoc/smartmark/internal/remote"
)

// Store handles Redis operations for bookmark rows, users and sessions,
// and relays pub/sub notifications to in-process listeners
type Store struct {
	client *redis.Client
	logger logger.Logger

	changes remote.Listeners[remote.Change]
	revoked remote.Listeners[string]

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client, log logger.Logger) *Store {
	return &Store{
		client: client,
		logger: log,
	}
}

// Listen subscribes to row changes and session revocations. Messages are
// dispatched until Close.
func (s *Store) Listen(ctx context.Context) error {
	ps := s.client.PSubscribe(ctx, ChangesPattern())
	if err := ps.Subscribe(ctx, ChannelRevoked); err != nil {
		_ = ps.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", ChannelRevoked, err)
	}
	// Both the pattern and the revocation channel must be confirmed before
	// publishing starts. A change can slip in between the two replies.
	for confirmed := 0; confirmed < 2; {
		reply, err := ps.Receive(ctx)
		if err != nil {
			_ = ps.Close()
			return fmt.Errorf("failed to confirm subscriptions: %w", err)
		}
		switch m := reply.(type) {
		case *redis.Subscription:
			s.logger.Debug("redis subscription confirmed",
				logger.String("kind", m.Kind),
				logger.String("channel", m.Channel))
			confirmed++
		case *redis.Message:
			s.dispatch(m)
		}
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.pubsub = ps
	s.done = done
	s.mu.Unlock()

	ch := ps.Channel()
	go func() {
		defer close(done)
		for msg := range ch {
			s.dispatch(msg)
		}
	}()

	s.logger.Info("listening for redis notifications",
		logger.String("pattern", ChangesPattern()),
		logger.String("channel", ChannelRevoked))
	return nil
}

// Close stops the notification listener
func (s *Store) Close() error {
	s.mu.Lock()
	ps, done := s.pubsub, s.done
	s.pubsub, s.done = nil, nil
	s.mu.Unlock()

	if ps == nil {
		return nil
	}
	err := ps.Close()
	<-done
	return err
}

func (s *Store) dispatch(msg *redis.Message) {
	if msg.Channel == ChannelRevoked {
		s.revoked.Emit(msg.Payload)
		return
	}

	userID, err := ExtractUserID(msg.Channel)
	if err != nil {
		s.logger.Warn("ignoring message on unknown channel", logger.String("channel", msg.Channel))
		return
	}

	var change remote.Change
	if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
		s.logger.Warn("ignoring malformed change", logger.String("channel", msg.Channel), logger.Error(err))
		return
	}
	// The channel is authoritative for ownership
	change.UserID = userID
	s.changes.Emit(change)
}

func (s *Store) publishChange(ctx context.Context, change remote.Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	if err := s.client.Publish(ctx, ChangesChannel(change.UserID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}
