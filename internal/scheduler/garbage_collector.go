package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

// DefaultGCInterval is used when the configured interval is not positive.
const DefaultGCInterval = time.Hour

// Sweeper removes stale backend state (expired sessions, dangling index
// entries) and reports how many items it removed.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// GarbageCollector runs a Sweeper on start and then periodically.
type GarbageCollector struct {
	sweeper  Sweeper
	logger   logger.Logger
	interval time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

func NewGarbageCollector(sweeper Sweeper, log logger.Logger, interval time.Duration) *GarbageCollector {
	if interval <= 0 {
		interval = DefaultGCInterval
	}

	return &GarbageCollector{
		sweeper:  sweeper,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start collects once and then every interval until Stop or ctx ends.
func (gc *GarbageCollector) Start(ctx context.Context) {
	if _, err := gc.Collect(ctx); err != nil {
		gc.logger.Warn("initial garbage collection failed", logger.Error(err))
	}

	ticker := time.NewTicker(gc.interval)
	go func() {
		defer close(gc.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := gc.Collect(ctx); err != nil {
					gc.logger.Error("garbage collection failed", logger.Error(err))
				}
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the loop and waits for a running collection to return. It must
// only be called after Start.
func (gc *GarbageCollector) Stop() {
	gc.stopOnce.Do(func() { close(gc.stopCh) })
	<-gc.done
}

// Collect runs one sweep.
func (gc *GarbageCollector) Collect(ctx context.Context) (int, error) {
	started := time.Now()
	n, err := gc.sweeper.Sweep(ctx)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		gc.logger.Info("garbage collection completed",
			logger.Int("removed", n),
			logger.Duration("took", time.Since(started)))
	} else {
		gc.logger.Debug("no items to garbage collect")
	}
	return n, nil
}
