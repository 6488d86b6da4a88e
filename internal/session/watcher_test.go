package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/carpool-identity/internal/session"
)

// scriptedRevalidator answers every call with the current status and error.
type scriptedRevalidator struct {
	mu     sync.Mutex
	status session.Status
	err    error
	calls  int
	tokens []string
}

func (r *scriptedRevalidator) set(status session.Status, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status, r.err = status, err
}

func (r *scriptedRevalidator) Revalidate(_ context.Context, _, token string) (session.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.tokens = append(r.tokens, token)
	return r.status, r.err
}

func (r *scriptedRevalidator) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

var driver = session.Snapshot{IdentityID: "d1", Phone: "0900000001", Role: "driver", IsDriver: true, SessionToken: "tok-a"}

func newWatcher(t *testing.T, snap *session.Snapshot, reval session.Revalidator) (*session.Watcher, *session.MemoryStore, *session.Bridge) {
	t.Helper()
	store := session.NewMemoryStore()
	if snap != nil {
		require.NoError(t, store.Save(*snap))
	}
	bridge := session.NewBridge()
	w := session.NewWatcher(store, reval, bridge, session.WithInterval(5*time.Millisecond))
	t.Cleanup(w.Stop)
	return w, store, bridge
}

func receive(t *testing.T, b *session.Bridge) session.Invalidation {
	t.Helper()
	select {
	case ev := <-b.Invalidations():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no invalidation raised")
	}
	return session.Invalidation{}
}

func TestWatcher_EvictionClearsStoreBeforeNotifying(t *testing.T) {
	reval := &scriptedRevalidator{status: session.StatusValid}
	w, store, bridge := newWatcher(t, &driver, reval)
	require.NoError(t, w.Sync())
	require.Equal(t, "d1", w.Watching())

	require.Eventually(t, func() bool { return reval.count() >= 2 }, time.Second, time.Millisecond)
	reval.set(session.StatusInvalidated, nil)

	ev := receive(t, bridge)
	require.Equal(t, "d1", ev.IdentityID)
	require.Equal(t, session.ReasonReplaced, ev.Reason)

	_, ok, err := store.Load()
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, w.Watching())
}

func TestWatcher_InconclusiveKeepsSession(t *testing.T) {
	reval := &scriptedRevalidator{status: session.StatusUnknown, err: session.ErrInconclusive}
	w, store, bridge := newWatcher(t, &driver, reval)
	require.NoError(t, w.Sync())

	require.Eventually(t, func() bool { return reval.count() >= 5 }, time.Second, time.Millisecond)
	select {
	case ev := <-bridge.Invalidations():
		t.Fatalf("unexpected invalidation %+v", ev)
	default:
	}
	snap, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok-a", snap.SessionToken)
	require.Equal(t, "d1", w.Watching())
}

func TestWatcher_MissingTokenInvalidatesWithoutAsking(t *testing.T) {
	reval := &scriptedRevalidator{status: session.StatusValid}
	snap := driver
	snap.SessionToken = ""
	w, store, bridge := newWatcher(t, &snap, reval)
	require.NoError(t, w.Sync())

	ev := receive(t, bridge)
	require.Equal(t, session.ReasonNoToken, ev.Reason)
	require.Zero(t, reval.count())
	_, ok, _ := store.Load()
	require.False(t, ok)
}

func TestWatcher_StopSuppressesLaterResults(t *testing.T) {
	reval := &scriptedRevalidator{status: session.StatusValid}
	w, store, bridge := newWatcher(t, &driver, reval)
	require.NoError(t, w.Sync())
	require.Eventually(t, func() bool { return reval.count() >= 1 }, time.Second, time.Millisecond)

	w.Stop()
	require.Empty(t, w.Watching())
	calls := reval.count()
	reval.set(session.StatusInvalidated, nil)
	time.Sleep(30 * time.Millisecond)

	require.Equal(t, calls, reval.count())
	select {
	case ev := <-bridge.Invalidations():
		t.Fatalf("unexpected invalidation %+v", ev)
	default:
	}
	_, ok, _ := store.Load()
	require.True(t, ok)
}

func TestWatcher_SyncFollowsTheStore(t *testing.T) {
	reval := &scriptedRevalidator{status: session.StatusValid}
	w, store, _ := newWatcher(t, nil, reval)

	require.NoError(t, w.Sync())
	require.Empty(t, w.Watching())

	require.NoError(t, store.Save(driver))
	require.NoError(t, w.Sync())
	require.Equal(t, "d1", w.Watching())

	// same identity: the loop is left alone
	require.NoError(t, w.Sync())
	require.Equal(t, "d1", w.Watching())

	other := driver
	other.IdentityID, other.SessionToken = "d2", "tok-b"
	require.NoError(t, store.Save(other))
	require.NoError(t, w.Sync())
	require.Equal(t, "d2", w.Watching())
	require.Eventually(t, func() bool {
		reval.mu.Lock()
		defer reval.mu.Unlock()
		return len(reval.tokens) > 0 && reval.tokens[len(reval.tokens)-1] == "tok-b"
	}, time.Second, time.Millisecond)

	require.NoError(t, store.Save(session.Snapshot{IdentityID: "p1", Role: "passenger", SessionToken: "x"}))
	require.NoError(t, w.Sync())
	require.Empty(t, w.Watching())
}

func TestBridge_HoldsOnePendingInvalidation(t *testing.T) {
	b := session.NewBridge()
	require.True(t, b.Notify(session.Invalidation{IdentityID: "d1", Reason: session.ReasonReplaced}))
	require.False(t, b.Notify(session.Invalidation{IdentityID: "d1", Reason: session.ReasonNoToken}))

	ev := <-b.Invalidations()
	require.Equal(t, session.ReasonReplaced, ev.Reason)
	require.True(t, b.Notify(session.Invalidation{IdentityID: "d2"}))
}

// serverRegister answers like the identity service: valid only for the
// token it currently holds.
type serverRegister struct {
	mu     sync.Mutex
	token  string
	seen   []string
	during func()
}

func (s *serverRegister) set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *serverRegister) sawToken(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.seen {
		if t == token {
			return true
		}
	}
	return false
}

func (s *serverRegister) Revalidate(_ context.Context, _, token string) (session.Status, error) {
	s.mu.Lock()
	s.seen = append(s.seen, token)
	during := s.during
	s.during = nil
	valid := token == s.token
	s.mu.Unlock()
	if during != nil {
		during()
	}
	if valid {
		return session.StatusValid, nil
	}
	return session.StatusInvalidated, nil
}

func TestWatcher_SignInAgainOnSameDeviceFollowsNewToken(t *testing.T) {
	server := &serverRegister{token: "tok-a"}
	w, store, bridge := newWatcher(t, &driver, server)
	require.NoError(t, w.Sync())
	require.Eventually(t, func() bool { return server.sawToken("tok-a") }, time.Second, time.Millisecond)

	// same driver signs in again: the device and the server both move on
	fresh := driver
	fresh.SessionToken = "tok-b"
	require.NoError(t, store.Save(fresh))
	server.set("tok-b")
	require.NoError(t, w.Sync())
	require.Equal(t, "d1", w.Watching())

	require.Eventually(t, func() bool { return server.sawToken("tok-b") }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	select {
	case ev := <-bridge.Invalidations():
		t.Fatalf("valid session was signed out: %+v", ev)
	default:
	}
	snap, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok-b", snap.SessionToken)
}

func TestWatcher_StaleCheckLeavesNewerSessionAlone(t *testing.T) {
	server := &serverRegister{token: "tok-b"}
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(driver))
	fresh := driver
	fresh.SessionToken = "tok-b"
	// the new sign-in lands while the old token is being checked
	server.during = func() { _ = store.Save(fresh) }

	bridge := session.NewBridge()
	w := session.NewWatcher(store, server, bridge, session.WithInterval(5*time.Millisecond))
	t.Cleanup(w.Stop)
	require.NoError(t, w.Sync())

	require.Eventually(t, func() bool { return w.Watching() == "" }, time.Second, time.Millisecond)
	select {
	case ev := <-bridge.Invalidations():
		t.Fatalf("newer session was signed out: %+v", ev)
	default:
	}
	snap, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok-b", snap.SessionToken)

	require.NoError(t, w.Sync())
	require.Equal(t, "d1", w.Watching())
	require.Eventually(t, func() bool { return server.sawToken("tok-b") }, time.Second, time.Millisecond)
}
