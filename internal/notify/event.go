// Package notify carries auth-state changes from the session manager to
// whoever is listening: open pages (over a websocket) and the server log.
//
// THE FLOW:
//
//	SessionService ──Publish──▶ Mirror.Apply ──changed?──▶ listeners
//	                                │
//	                                └─ no change: dropped
//
// The Mirror remembers, per visitor, whether a session is active and which
// one. A sign-in made by form post and the signed_in event it produces are
// the same fact, so the second arrival changes nothing and is dropped. That
// is what keeps the page from rendering the same transition twice.
package notify

import "time"

// Kind is the type of auth-state change.
type Kind string

const (
	SignedIn       Kind = "signed_in"
	SignedOut      Kind = "signed_out"
	TokenRefreshed Kind = "token_refreshed"
)

// Event is one auth-state change for one visitor.
type Event struct {
	Kind      Kind
	VisitorID string
	SessionID string
	Email     string
	At        time.Time
}

// Listener receives events. It is called synchronously from Publish and must
// not block or call back into the Notifier.
type Listener func(Event)
