// Package redis dials the Redis server backing the redis store and keeps
// retrying until it answers or the connect budget runs out.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

// Options configures the client and its connect loop.
type Options struct {
	Addr         string
	User         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	ConnectTimeout time.Duration // whole budget for the connect loop
	RetryInterval  time.Duration // first backoff step, doubled after each failure
	MaxWait        time.Duration // backoff ceiling
	PingTimeout    time.Duration
	WarnThreshold  int // failed attempts logged at warn before switching to error
}

var (
	errConnectTimeout = errors.New("ConnectTimeout must be positive")
	errRetryInterval  = errors.New("RetryInterval must be positive")
	errMaxWait        = errors.New("MaxWait must be positive")
	errPingTimeout    = errors.New("PingTimeout must be positive")
	errWarnThreshold  = errors.New("WarnThreshold must not be negative")
)

// Validate reports every invalid connect-loop setting at once.
func (o Options) Validate() error {
	var errs []error
	if o.ConnectTimeout <= 0 {
		errs = append(errs, errConnectTimeout)
	}
	if o.RetryInterval <= 0 {
		errs = append(errs, errRetryInterval)
	}
	if o.MaxWait <= 0 {
		errs = append(errs, errMaxWait)
	}
	if o.PingTimeout <= 0 {
		errs = append(errs, errPingTimeout)
	}
	if o.WarnThreshold < 0 {
		errs = append(errs, errWarnThreshold)
	}
	return errors.Join(errs...)
}

func (o Options) client() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         o.Addr,
		Username:     o.User,
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  o.DialTimeout,
		ReadTimeout:  o.ReadTimeout,
		WriteTimeout: o.WriteTimeout,
		PoolSize:     o.PoolSize,
	})
}

// backoff doubles its step up to ceiling.
type backoff struct {
	step    time.Duration
	ceiling time.Duration
}

func (b *backoff) next() time.Duration {
	d := b.step
	b.step = min(b.step*2, b.ceiling)
	return d
}

// Dial returns a client once the server answers PING. It gives up when
// ConnectTimeout elapses or ctx ends; the client is closed on failure.
func Dial(ctx context.Context, opts Options, log logger.Logger) (*redis.Client, error) {
	if err := opts.Validate(); err != nil {
		log.Error("invalid redis connect options", logger.Error(err))
		return nil, fmt.Errorf("redis options: %w", err)
	}

	rdb := opts.client()
	if err := waitReady(ctx, rdb, opts, log); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func waitReady(parent context.Context, rdb *redis.Client, opts Options, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(parent, opts.ConnectTimeout)
	defer cancel()

	log = log.With(logger.String("addr", opts.Addr))
	log.Info("connecting to redis", logger.Duration("timeout", opts.ConnectTimeout))

	start := time.Now()
	wait := backoff{step: opts.RetryInterval, ceiling: opts.MaxWait}
	for attempt := 1; ; attempt++ {
		err := ping(ctx, rdb, opts.PingTimeout)
		if err == nil {
			if attempt > 1 {
				log.Warn("redis reachable after retries",
					logger.Int("attempts", attempt),
					logger.Duration("elapsed", time.Since(start)))
			} else {
				log.Info("redis reachable")
			}
			return nil
		}

		delay := wait.next()
		select {
		case <-ctx.Done():
			if perr := parent.Err(); perr != nil {
				return fmt.Errorf("redis connect to %s aborted: %w", opts.Addr, perr)
			}
			log.Error("redis unreachable, giving up",
				logger.Int("attempts", attempt),
				logger.Error(err))
			return fmt.Errorf("redis at %s unreachable after %d attempts in %v: %w",
				opts.Addr, attempt, opts.ConnectTimeout, err)
		case <-time.After(delay):
			logAttempt(log, attempt, opts.WarnThreshold, remaining(ctx), delay, err)
		}
	}
}

func ping(ctx context.Context, rdb *redis.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return rdb.Ping(ctx).Err()
}

// logAttempt escalates to error once the warn threshold is passed or the
// budget is nearly spent.
func logAttempt(log logger.Logger, attempt, warnThreshold int, left, delay time.Duration, err error) {
	fields := []logger.Field{
		logger.Int("attempt", attempt),
		logger.Duration("retry_in", delay),
		logger.Duration("remaining", left),
		logger.Error(err),
	}
	if attempt <= warnThreshold && left >= 10*time.Second {
		log.Warn("redis not ready, retrying", fields...)
		return
	}
	log.Error("redis still not ready", fields...)
}

func remaining(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		return time.Until(deadline)
	}
	return 0
}
