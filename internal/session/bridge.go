package session

import "time"

// ForcedLogoutMessage is shown, blocking, when another device takes over
// the session. It is never presented as a generic error.
const ForcedLogoutMessage = "Your account was signed in on another device, so you have been signed out here. Sign in again to continue."

// Invalidation describes one forced logout.
type Invalidation struct {
	IdentityID string
	Reason     string
	At         time.Time
}

// Invalidation reasons.
const (
	ReasonReplaced = "session_replaced"
	ReasonNoToken  = "missing_session_token"
)

// Bridge is a single-consumer signal from the watcher to whatever renders
// the forced-logout notice. It holds at most one pending invalidation; a
// second one raised before the first is consumed is dropped.
type Bridge struct {
	ch chan Invalidation
}

// NewBridge returns an empty Bridge. Share one Bridge between the Watcher
// that raises invalidations and the single reader that shows the notice;
// a second reader would steal events from the first.
func NewBridge() *Bridge {
	return &Bridge{ch: make(chan Invalidation, 1)}
}

// Notify never blocks. It reports whether ev was queued.
func (b *Bridge) Notify(ev Invalidation) bool {
	select {
	case b.ch <- ev:
		return true
	default:
		return false
	}
}

// Invalidations is the receive side for the single consumer.
func (b *Bridge) Invalidations() <-chan Invalidation {
	return b.ch
}
