package collection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
	"github.com/MrSnakeDoc/smartmark/internal/remote"
)

const (
	DefaultWriteTimeout = 5 * time.Second
	DefaultFetchTimeout = 5 * time.Second
)

// Options tunes a Syncer. Zero values select the defaults.
type Options struct {
	WriteTimeout time.Duration
	FetchTimeout time.Duration
	IDs          *domain.IDGenerator
	Now          func() time.Time
}

// Syncer runs the mutation commands and refreshes against the remote store.
//
// Refreshes are serialized: a single reconciler goroutine drains a
// 1-buffered invalidation channel, so any number of change notifications
// arriving during a fetch collapse into one follow-up fetch. Remote writes
// run in tracked goroutines, each bounded by the write timeout.
type Syncer struct {
	coll      *Collection
	bookmarks remote.Bookmarks
	ids       *domain.IDGenerator
	logger    logger.Logger
	now       func() time.Time

	writeTimeout time.Duration
	fetchTimeout time.Duration

	refreshMu  sync.Mutex
	invalidate chan struct{}
	stopCh     chan struct{}
	stopOnce   sync.Once
	runDone    chan struct{}
	started    bool
	writeCtx   context.Context

	// writeMu orders write registration against Stop so that no write is
	// registered once Stop has started waiting.
	writeMu sync.Mutex
	stopped bool
	writes  sync.WaitGroup
}

// NewSyncer creates a syncer for coll backed by bookmarks.
func NewSyncer(coll *Collection, bookmarks remote.Bookmarks, log logger.Logger, opts Options) *Syncer {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.IDs == nil {
		opts.IDs = domain.NewIDGenerator()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Syncer{
		coll:         coll,
		bookmarks:    bookmarks,
		ids:          opts.IDs,
		logger:       log,
		now:          opts.Now,
		writeTimeout: opts.WriteTimeout,
		fetchTimeout: opts.FetchTimeout,
		invalidate:   make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
		runDone:      make(chan struct{}),
		writeCtx:     context.Background(),
	}
}

// Start launches the reconciler loop. It refreshes once per invalidation
// until Stop is called or ctx ends.
func (s *Syncer) Start(ctx context.Context) {
	s.started = true
	s.writeCtx = context.WithoutCancel(ctx)

	go func() {
		defer close(s.runDone)
		for {
			select {
			case <-s.invalidate:
				s.Refresh(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the reconciler loop and waits for in-flight remote writes.
// Writes requested afterwards are refused with ErrUnmounted.
func (s *Syncer) Stop() {
	s.writeMu.Lock()
	s.stopped = true
	s.writeMu.Unlock()

	s.stopOnce.Do(func() { close(s.stopCh) })
	if s.started {
		<-s.runDone
	}
	s.writes.Wait()
}

// Invalidate asks the reconciler for a refresh. It never blocks and reports
// false when a refresh is already queued.
func (s *Syncer) Invalidate() bool {
	select {
	case s.invalidate <- struct{}{}:
		return true
	default:
		return false
	}
}

// Refresh fetches every row of the session and replaces the collection.
// Failures are logged and leave the collection untouched. It reports
// whether the collection was replaced.
func (s *Syncer) Refresh(ctx context.Context) bool {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	epoch := s.coll.Epoch()

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	start := s.now()
	rows, err := s.bookmarks.List(ctx)
	if err != nil {
		s.logger.Warn("refresh failed, keeping current bookmarks",
			logger.Error(&domain.FetchError{Err: err}))
		return false
	}

	next, stats := Reconcile(s.coll.Snapshot(), rows)
	if !s.coll.ReplaceIf(epoch, next) {
		s.logger.Debug("discarding stale refresh", logger.Int("rows", len(rows)))
		return false
	}

	s.logger.Debug("bookmarks refreshed",
		logger.Int("rows", stats.Rows),
		logger.Int("added", stats.Added),
		logger.Int("removed", stats.Removed),
		logger.Int("dropped_provisional", stats.DroppedProvisional),
		logger.Duration("took", s.now().Sub(start)))
	return true
}

// Add validates d, prepends a provisional entry owned by user and issues
// the remote insert in the background. The returned entry is the
// provisional one; it is replaced by the confirmed row on the next refresh.
func (s *Syncer) Add(user domain.User, d domain.Draft) (domain.Entry, error) {
	if err := d.Validate(); err != nil {
		return domain.Entry{}, err
	}
	if user.ID == "" {
		return domain.Entry{}, domain.ErrNoSession
	}

	entry := domain.Provisional(s.ids.Next(), d, user.ID, s.now())
	if err := s.coll.Prepend(entry); err != nil {
		return domain.Entry{}, err
	}

	payload := domain.NewBookmark{Title: entry.Title, URL: entry.URL, UserID: user.ID}
	if err := s.goWrite("insert", entry.ID, func(ctx context.Context) error {
		_, err := s.bookmarks.Insert(ctx, payload)
		return err
	}); err != nil {
		return domain.Entry{}, err
	}
	return entry, nil
}

// Delete removes id from the collection and issues the remote delete in
// the background. Provisional entries have no row yet, so only the local
// removal happens for them.
func (s *Syncer) Delete(id string) error {
	removed, err := s.coll.Remove(id)
	if err != nil {
		return err
	}

	if tempID, ok := removed.TempID(); ok {
		s.logger.Debug("removed provisional bookmark locally", logger.String("id", tempID))
		return nil
	}

	return s.goWrite("delete", id, func(ctx context.Context) error {
		return s.bookmarks.Delete(ctx, id)
	})
}

// goWrite runs a remote write in a tracked goroutine. A failure is logged
// and the optimistic state stays as it is; an invalidation is queued so the
// next refresh reconciles it. Once Stop has run the write is not issued.
func (s *Syncer) goWrite(op, id string, write func(ctx context.Context) error) error {
	s.writeMu.Lock()
	if s.stopped {
		s.writeMu.Unlock()
		s.logger.Debug("syncer stopped, remote write not issued",
			logger.String("op", op), logger.String("id", id))
		return domain.ErrUnmounted
	}
	s.writes.Add(1)
	s.writeMu.Unlock()

	go func() {
		defer s.writes.Done()

		ctx, cancel := context.WithTimeout(s.writeCtx, s.writeTimeout)
		defer cancel()

		if err := write(ctx); err != nil {
			werr := &domain.WriteError{Op: op, ID: id, Err: err}
			if errors.Is(err, context.DeadlineExceeded) {
				s.logger.Warn("remote write timed out", logger.Error(werr))
			} else {
				s.logger.Error("remote write failed", logger.Error(werr))
			}
			s.Invalidate()
			return
		}
		s.logger.Debug("remote write done", logger.String("op", op), logger.String("id", id))
	}()
	return nil
}
