package service

import (
	"sync"

	"github.com/rs/xid"
)

// Tracker remembers the latest search each visitor started, so an older
// response that arrives late can be recognised and dropped.
//
//	Begin(v) → t1        Begin(v) → t2
//	Finish(v, t2) = true   (render)
//	Finish(v, t1) = false  (stale, drop)
type Tracker struct {
	mu     sync.Mutex
	latest map[string]string
}

func NewTracker() *Tracker {
	return &Tracker{latest: make(map[string]string)}
}

// Begin starts a search for visitor and returns its token.
func (t *Tracker) Begin(visitorID string) string {
	token := xid.New().String()

	t.mu.Lock()
	t.latest[visitorID] = token
	t.mu.Unlock()

	return token
}

// Finish reports whether token is still the visitor's latest search. The
// latest search clears its entry, so the map only holds searches in flight.
func (t *Tracker) Finish(visitorID, token string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.latest[visitorID] != token {
		return false
	}
	delete(t.latest, visitorID)
	return true
}

// Pending returns the number of visitors with a search in flight.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.latest)
}
