package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

func validOptions() Options {
	return Options{
		Addr:           "127.0.0.1:1",
		DialTimeout:    50 * time.Millisecond,
		ConnectTimeout: time.Second,
		RetryInterval:  10 * time.Millisecond,
		MaxWait:        20 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		want   []error
	}{
		{name: "valid", mutate: func(*Options) {}},
		{name: "zero connect timeout", mutate: func(o *Options) { o.ConnectTimeout = 0 }, want: []error{errConnectTimeout}},
		{name: "zero retry interval", mutate: func(o *Options) { o.RetryInterval = 0 }, want: []error{errRetryInterval}},
		{name: "zero max wait", mutate: func(o *Options) { o.MaxWait = 0 }, want: []error{errMaxWait}},
		{name: "zero ping timeout", mutate: func(o *Options) { o.PingTimeout = 0 }, want: []error{errPingTimeout}},
		{name: "negative warn threshold", mutate: func(o *Options) { o.WarnThreshold = -1 }, want: []error{errWarnThreshold}},
		{
			name:   "several at once",
			mutate: func(o *Options) { o.MaxWait = 0; o.PingTimeout = -time.Second },
			want:   []error{errMaxWait, errPingTimeout},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := validOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			if len(tt.want) == 0 {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			for _, w := range tt.want {
				if !errors.Is(err, w) {
					t.Errorf("Validate() = %v, want it to wrap %v", err, w)
				}
			}
		})
	}
}

func TestBackoffDoublesUpToCeiling(t *testing.T) {
	b := backoff{step: 10 * time.Millisecond, ceiling: 35 * time.Millisecond}
	want := []time.Duration{10, 20, 35, 35}
	for i, w := range want {
		if got := b.next(); got != w*time.Millisecond {
			t.Errorf("step %d = %v, want %v", i, got, w*time.Millisecond)
		}
	}
}

func TestDialRejectsInvalidOptions(t *testing.T) {
	opts := validOptions()
	opts.ConnectTimeout = 0
	if _, err := Dial(context.Background(), opts, logger.NewNop()); !errors.Is(err, errConnectTimeout) {
		t.Errorf("Dial() error = %v, want %v", err, errConnectTimeout)
	}
}

func TestDialAbortsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := Dial(ctx, validOptions(), logger.NewNop())
	if err == nil {
		t.Fatal("Dial() should fail on a canceled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Dial() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("Dial() took %v, should abort promptly", time.Since(start))
	}
}

func TestDialGivesUpAfterConnectTimeout(t *testing.T) {
	opts := validOptions()
	opts.ConnectTimeout = 80 * time.Millisecond

	_, err := Dial(context.Background(), opts, logger.NewNop())
	if err == nil {
		t.Fatal("Dial() should fail against a closed port")
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("Dial() error = %v, should be a timeout, not a cancellation", err)
	}
}
