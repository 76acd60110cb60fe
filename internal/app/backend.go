package app

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/smartmark/internal/auth"
	"github.com/MrSnakeDoc/smartmark/internal/config"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
	"github.com/MrSnakeDoc/smartmark/internal/redis"
	"github.com/MrSnakeDoc/smartmark/internal/remote"
	"github.com/MrSnakeDoc/smartmark/internal/scheduler"
	sqlitestore "github.com/MrSnakeDoc/smartmark/internal/store/sqlite"
	redisstore "github.com/MrSnakeDoc/smartmark/internal/store/redis"
	"github.com/MrSnakeDoc/smartmark/internal/utils"
)

// Backend is a started remote client owned by the process.
type Backend interface {
	remote.Client
	scheduler.Sweeper
}

type startable interface {
	Backend
	Start(ctx context.Context) error
}

// OpenBackend connects the configured store and starts its notification
// listeners. ctx bounds the connection attempts and the listeners' lifetime.
func OpenBackend(ctx context.Context, cfg *config.Config, log logger.Logger) (Backend, error) {
	tokens := auth.NewTokens(cfg.JWTSecret)

	var c startable
	switch cfg.Backend {
	case config.BackendSQLite:
		log.Info("opening sqlite store", logger.String("path", cfg.SQLitePath))
		store, err := sqlitestore.Open(cfg.SQLitePath, log.Named("sqlite"))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		c = sqlitestore.NewClient(store, tokens, cfg.SessionTTL, log.Named("sqlite"))

	case config.BackendRedis:
		rdb, err := redis.Dial(ctx, redis.Options{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log.Named("redis"))
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		c = redisstore.NewClient(rdb, tokens, cfg.SessionTTL, log.Named("redis"))

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	if err := c.Start(ctx); err != nil {
		utils.MustClose(c, log, cfg.Backend)
		return nil, fmt.Errorf("start %s backend: %w", cfg.Backend, err)
	}
	return c, nil
}
