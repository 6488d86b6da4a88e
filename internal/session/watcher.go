package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is the server's answer to a revalidation.
type Status string

const (
	StatusValid       Status = "valid"
	StatusInvalidated Status = "invalidated"
	StatusUnknown     Status = "unknown"
)

// ErrInconclusive means the server could not be asked or could not answer.
// The watcher keeps the session and tries again on the next tick.
var ErrInconclusive = errors.New("revalidation inconclusive")

// Revalidator compares a local token with the server's register.
type Revalidator interface {
	Revalidate(ctx context.Context, identityID, token string) (Status, error)
}

// DefaultPollInterval bounds how long an evicted device keeps working.
const DefaultPollInterval = 30 * time.Second

// Watcher runs at most one polling loop, for the identity and session token
// currently in the local store. Each loop owns a context and a generation
// number; results that arrive for a stale generation are discarded.
type Watcher struct {
	store    LocalStore
	reval    Revalidator
	bridge   *Bridge
	interval time.Duration
	log      *zap.SugaredLogger
	now      func() time.Time

	mu       sync.Mutex
	gen      uint64
	watching string
	token    string
	cancel   context.CancelFunc
	done     chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithInterval sets how often the watcher asks the server whether the
// local session token is still current. Non-positive values are ignored
// and DefaultPollInterval applies. Shorter intervals end a replaced
// session sooner at the price of more requests.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger routes the watcher's logs to log. A nil logger is ignored.
func WithLogger(log *zap.SugaredLogger) WatcherOption {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// NewWatcher builds a Watcher over the device's local store, the
// revalidator that reaches the server and the bridge that carries forced
// logouts to the UI. It does not start polling: call Sync after every
// sign-in, sign-out or restart, and Stop when the client shuts down.
// All three dependencies are required.
func NewWatcher(store LocalStore, reval Revalidator, bridge *Bridge, opts ...WatcherOption) *Watcher {
	if store == nil || reval == nil || bridge == nil {
		panic("nil dependency passed to NewWatcher")
	}
	w := &Watcher{
		store:    store,
		reval:    reval,
		bridge:   bridge,
		interval: DefaultPollInterval,
		log:      zap.NewNop().Sugar(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Sync reconciles the loop with the local store: it starts polling for a
// newly signed-in driver, restarts when the identity or its session token
// changed (a fresh sign-in on this device), and stops when the store is
// empty or holds a non-driver.
func (w *Watcher) Sync() error {
	snap, ok, err := w.store.Load()
	if err != nil {
		return err
	}
	want := ""
	if ok && snap.Watched() {
		want = snap.IdentityID
	}

	w.mu.Lock()
	if want != "" && want == w.watching && snap.SessionToken == w.token && w.cancel != nil {
		w.mu.Unlock()
		return nil
	}
	cancel, done := w.detach()
	if want == "" {
		w.mu.Unlock()
		wait(cancel, done)
		return nil
	}
	ctx, c := context.WithCancel(context.Background())
	w.cancel = c
	w.watching = want
	w.token = snap.SessionToken
	w.done = make(chan struct{})
	gen, loopDone := w.gen, w.done
	w.mu.Unlock()

	wait(cancel, done)
	go w.loop(ctx, gen, snap, loopDone)
	return nil
}

// Stop cancels the current loop and waits for it to exit. Once Stop returns
// no further invalidation is raised for that loop.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.detach()
	w.mu.Unlock()
	wait(cancel, done)
}

// Watching returns the identity currently polled, if any.
func (w *Watcher) Watching() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel == nil {
		return ""
	}
	return w.watching
}

// detach must be called with mu held. It retires the current generation.
func (w *Watcher) detach() (context.CancelFunc, chan struct{}) {
	cancel, done := w.cancel, w.done
	w.gen++
	w.cancel, w.done, w.watching, w.token = nil, nil, "", ""
	return cancel, done
}

func wait(cancel context.CancelFunc, done chan struct{}) {
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watcher) loop(ctx context.Context, gen uint64, snap Snapshot, done chan struct{}) {
	defer close(done)

	if snap.SessionToken == "" {
		w.invalidate(gen, snap, ReasonNoToken)
		return
	}

	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		if w.check(ctx, gen, snap) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// check runs one revalidation and reports whether the loop should end.
func (w *Watcher) check(ctx context.Context, gen uint64, snap Snapshot) bool {
	status, err := w.reval.Revalidate(ctx, snap.IdentityID, snap.SessionToken)
	if ctx.Err() != nil {
		return true
	}
	if err != nil || status == StatusUnknown {
		w.log.Debugw("revalidation inconclusive", "identity_id", snap.IdentityID, "error", err)
		return false
	}
	if status != StatusInvalidated {
		return false
	}
	return w.invalidate(gen, snap, ReasonReplaced)
}

// invalidate clears the local store and then notifies the bridge, unless
// the generation was retired in the meantime. If the store already holds a
// different session (a sign-in raced the check) that newer session is left
// alone: the loop retires silently and the next Sync watches the new one.
func (w *Watcher) invalidate(gen uint64, snap Snapshot, reason string) bool {
	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		return true
	}
	// the loop is ending on its own; leave done for the deferred close
	w.gen++
	w.cancel, w.done, w.watching, w.token = nil, nil, "", ""

	if cur, ok, err := w.store.Load(); err == nil && ok &&
		(cur.IdentityID != snap.IdentityID || cur.SessionToken != snap.SessionToken) {
		w.mu.Unlock()
		w.log.Infow("stale session check discarded", "identity_id", snap.IdentityID)
		return true
	}
	if err := w.store.Clear(); err != nil {
		w.log.Errorw("clear local session failed", "identity_id", snap.IdentityID, "error", err)
	}
	w.mu.Unlock()

	w.bridge.Notify(Invalidation{IdentityID: snap.IdentityID, Reason: reason, At: w.now().UTC()})
	return true
}
