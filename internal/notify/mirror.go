package notify

import "sync"

type mirrored struct {
	signedIn  bool
	sessionID string
}

// Mirror is the server's copy of each visitor's auth state.
type Mirror struct {
	mu     sync.Mutex
	states map[string]mirrored
}

func NewMirror() *Mirror {
	return &Mirror{states: make(map[string]mirrored)}
}

// Apply records ev and reports whether it changed the visitor's state.
// Unknown visitors start signed out.
func (m *Mirror) Apply(ev Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.states[ev.VisitorID]

	switch ev.Kind {
	case SignedIn, TokenRefreshed:
		next := mirrored{signedIn: true, sessionID: ev.SessionID}
		if cur == next {
			return false
		}
		m.states[ev.VisitorID] = next
		return true

	case SignedOut:
		delete(m.states, ev.VisitorID)
		return cur.signedIn
	}
	return false
}

// SignedIn reports the mirrored state for a visitor.
func (m *Mirror) SignedIn(visitorID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[visitorID].signedIn
}
