package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

type countingSweeper struct {
	calls   atomic.Int64
	removed int
	err     error
}

func (s *countingSweeper) Sweep(context.Context) (int, error) {
	s.calls.Add(1)
	return s.removed, s.err
}

func TestGarbageCollector_Collect(t *testing.T) {
	tests := []struct {
		name    string
		sweeper *countingSweeper
		want    int
		wantErr bool
	}{
		{name: "removes items", sweeper: &countingSweeper{removed: 3}, want: 3},
		{name: "nothing to remove", sweeper: &countingSweeper{}, want: 0},
		{name: "sweep fails", sweeper: &countingSweeper{err: errors.New("boom")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gc := NewGarbageCollector(tt.sweeper, logger.NewNop(), time.Hour)

			got, err := gc.Collect(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Collect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Collect() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGarbageCollector_StartRunsImmediatelyAndPeriodically(t *testing.T) {
	sweeper := &countingSweeper{removed: 1}
	gc := NewGarbageCollector(sweeper, logger.NewNop(), 10*time.Millisecond)

	gc.Start(context.Background())
	if got := sweeper.calls.Load(); got != 1 {
		t.Fatalf("expected one sweep on start, got %d", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sweeper.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	gc.Stop()
	gc.Stop()

	after := sweeper.calls.Load()
	if after < 3 {
		t.Fatalf("expected periodic sweeps, got %d", after)
	}
	time.Sleep(30 * time.Millisecond)
	if got := sweeper.calls.Load(); got != after {
		t.Errorf("sweeps continued after Stop: %d -> %d", after, got)
	}
}

func TestGarbageCollector_StopsWithContext(t *testing.T) {
	sweeper := &countingSweeper{}
	gc := NewGarbageCollector(sweeper, logger.NewNop(), 0)
	if gc.interval != DefaultGCInterval {
		t.Fatalf("interval = %v, want %v", gc.interval, DefaultGCInterval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	gc.Start(ctx)
	cancel()

	select {
	case <-gc.done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop when the context ended")
	}
}
