// Package syncer pushes the local documents to the remote account store and
// pulls them back when a session starts. At most one sync runs at a time;
// triggers that arrive during a run collapse into a single re-run.
package syncer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/tally/internal/remote"
	"github.com/mesh-intelligence/tally/internal/session"
	"github.com/mesh-intelligence/tally/pkg/types"
)

// DefaultDebounce is the quiet period before a debounced push.
const DefaultDebounce = 1500 * time.Millisecond

// Options configures a Scheduler.
type Options struct {
	// Debounce is the trailing quiet period for ScheduleDebounced.
	Debounce time.Duration

	// Snapshot writes the in-memory documents to the local store. It runs
	// before every push so the push reads a consistent copy.
	Snapshot func() error

	// Reload refreshes in-memory documents after a pull replaced them.
	Reload func() error

	Logger *zap.Logger
	Clock  func() time.Time
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	UserID       string     `json:"userId"`
	Online       bool       `json:"online"`
	Running      bool       `json:"running"`
	RetryPending bool       `json:"retryPending"`
	PullPending  bool       `json:"pullPending"`
	Pushes       int        `json:"pushes"`
	LastSync     time.Time  `json:"lastSync"`
	LastError    *SyncError `json:"-"`
}

// Scheduler owns the sync state of one local install.
type Scheduler struct {
	store   types.LocalStore
	remote  remote.Store
	session session.Provider
	opts    Options
	logger  *zap.Logger

	mu           sync.Mutex
	userID       string
	online       bool
	running      bool
	dirty        bool
	retryPending bool
	pullPending  bool
	closed       bool
	timer        *time.Timer
	lastErr      *SyncError
	lastSync     time.Time
	pushes       int
	inflight     int
	idle         chan struct{}
	unsubscribe  func()
}

// New returns a scheduler reading documents from store. A nil remote means
// no remote is configured; the scheduler then never does network I/O. The
// session's current user is adopted without a pull; later changes to a
// signed-in user trigger one.
func New(store types.LocalStore, rs remote.Store, provider session.Provider, opts Options) *Scheduler {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	s := &Scheduler{
		store:   store,
		remote:  rs,
		session: provider,
		opts:    opts,
		logger:  opts.Logger.Named("syncer"),
		online:  true,
	}
	if provider != nil {
		s.userID = provider.CurrentUserID()
		s.unsubscribe = provider.OnChange(s.sessionChanged)
	}
	return s
}

// Close stops the debounce timer and unsubscribes from the session. It does
// not wait for a running sync; use Wait for that.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopTimerLocked()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// sessionChanged is the session provider callback.
func (s *Scheduler) sessionChanged(userID string) {
	s.mu.Lock()
	prev := s.userID
	s.userID = userID
	if userID == "" {
		s.stopTimerLocked()
		s.dirty = false
		s.retryPending = false
		s.pullPending = false
		s.mu.Unlock()
		s.logger.Info("session ended, sync disabled")
		return
	}
	if userID == prev {
		s.mu.Unlock()
		return
	}
	s.pullPending = true
	s.mu.Unlock()

	s.logger.Info("session started", zap.String("user_id", userID))
	s.goRun()
}

// ScheduleDebounced arms the single debounce timer, replacing any armed
// one. Without a session it does nothing.
func (s *Scheduler) ScheduleDebounced() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.userID == "" || s.remote == nil {
		return
	}
	s.stopTimerLocked()
	var timer *time.Timer
	timer = time.AfterFunc(s.opts.Debounce, func() {
		s.mu.Lock()
		if s.timer == timer {
			s.timer = nil
		}
		s.mu.Unlock()

		done, ok := s.begin()
		if !ok {
			return
		}
		defer done()
		s.RunSync(context.Background())
	})
	s.timer = timer
}

// PushNow cancels any armed debounce timer and syncs before returning.
func (s *Scheduler) PushNow(ctx context.Context) {
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()

	s.RunSync(ctx)
}

// Pull marks a pull as pending and syncs before returning. The pull runs
// ahead of the push.
func (s *Scheduler) Pull(ctx context.Context) {
	s.mu.Lock()
	if s.userID != "" {
		s.pullPending = true
	}
	s.mu.Unlock()

	s.RunSync(ctx)
}

// SetOnline records network reachability. Coming back online starts a sync
// in the background.
func (s *Scheduler) SetOnline(online bool) {
	s.mu.Lock()
	wasOnline := s.online
	s.online = online
	s.mu.Unlock()

	if online && !wasOnline {
		s.logger.Info("back online")
		s.goRun()
	}
}

// FlushOnExit starts a sync in the background and returns at once. Callers
// that can afford to wait use Wait with a deadline.
func (s *Scheduler) FlushOnExit() {
	s.mu.Lock()
	s.stopTimerLocked()
	s.mu.Unlock()

	s.goRun()
}

// Wait blocks until background syncs finish or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	if s.inflight == 0 {
		s.mu.Unlock()
		return nil
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastError returns the failure of the most recent attempt, or nil if it
// succeeded or none was made.
func (s *Scheduler) LastError() *SyncError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		UserID:       s.userID,
		Online:       s.online,
		Running:      s.running,
		RetryPending: s.retryPending,
		PullPending:  s.pullPending,
		Pushes:       s.pushes,
		LastSync:     s.lastSync,
		LastError:    s.lastErr,
	}
}

// RunSync runs one sync, then repeats while triggers arrived during the
// run. If a sync is already running it only marks it dirty and returns.
// Failures are recorded, never returned.
func (s *Scheduler) RunSync(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.dirty = true
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	for {
		s.runOnce(ctx)

		s.mu.Lock()
		if s.dirty && ctx.Err() == nil {
			s.dirty = false
			s.mu.Unlock()
			continue
		}
		if s.dirty {
			// Cancelled with a trigger still queued; the next trigger
			// picks it up.
			s.retryPending = true
		}
		s.dirty = false
		s.running = false
		s.mu.Unlock()
		return
	}
}

// runOnce performs a pending pull, then pushes.
func (s *Scheduler) runOnce(ctx context.Context) {
	s.mu.Lock()
	userID := s.userID
	online := s.online
	pullPending := s.pullPending
	s.mu.Unlock()

	if userID == "" || s.remote == nil {
		return
	}
	if !online {
		s.fail(&SyncError{Kind: KindOffline, Err: ErrOffline})
		return
	}

	// A remote document that does not decode will not decode on retry
	// either. The pull is dropped and the push goes ahead, replacing the
	// unreadable remote copy with the local one.
	var pullErr *SyncError
	if pullPending {
		if err := s.pull(ctx, userID); err != nil {
			s.fail(err)
			if err.Kind != KindDecode {
				return
			}
			pullErr = err
		}
		s.mu.Lock()
		if s.userID == userID {
			s.pullPending = false
		}
		s.mu.Unlock()
	}

	if err := s.push(ctx, userID); err != nil {
		s.fail(err)
		return
	}

	s.mu.Lock()
	s.retryPending = false
	s.lastErr = pullErr
	s.lastSync = s.opts.Clock()
	s.pushes++
	s.mu.Unlock()
	s.logger.Debug("pushed", zap.String("user_id", userID))
}

func (s *Scheduler) fail(err *SyncError) {
	s.mu.Lock()
	s.lastErr = err
	s.retryPending = true
	s.mu.Unlock()
	s.logger.Warn("sync failed",
		zap.String("kind", string(err.Kind)),
		zap.String("table", string(err.Table)),
		zap.Error(err.Err))
}

// push uploads the three local documents concurrently.
func (s *Scheduler) push(ctx context.Context, userID string) *SyncError {
	if s.opts.Snapshot != nil {
		if err := s.opts.Snapshot(); err != nil {
			return &SyncError{Kind: KindLocal, Err: err}
		}
	}

	docs := s.localDocuments()
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range types.DocKinds {
		payload := docs[kind]
		g.Go(func() error {
			if err := s.remote.Upsert(gctx, kind, userID, payload); err != nil {
				return &SyncError{Kind: KindPush, Table: kind, Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return asSyncError(KindPush, "", err)
	}
	return nil
}

// localDocuments reads the three documents, substituting defaults for
// missing ones: an idle ledger, no wallets, no products.
func (s *Scheduler) localDocuments() map[types.DocKind]json.RawMessage {
	docs := make(map[types.DocKind]json.RawMessage, len(types.DocKinds))
	for _, kind := range types.DocKinds {
		raw := s.store.Load(kind)
		if raw == nil {
			raw = defaultDocument(kind, s.opts.Clock())
		}
		docs[kind] = raw
	}
	return docs
}

func defaultDocument(kind types.DocKind, now time.Time) json.RawMessage {
	if kind == types.DocEventLedger {
		data, err := json.Marshal(types.NewAccount(now))
		if err == nil {
			return data
		}
	}
	return json.RawMessage(`[]`)
}

// goRun starts RunSync in the background.
func (s *Scheduler) goRun() {
	done, ok := s.begin()
	if !ok {
		return
	}
	go func() {
		defer done()
		s.RunSync(context.Background())
	}()
}

// begin counts one background task as in flight for Wait. It refuses once
// the scheduler is closed.
func (s *Scheduler) begin() (done func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.inflight--
		if s.inflight == 0 {
			close(s.idle)
		}
	}, true
}

// stopTimerLocked must be called with s.mu held.
func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
