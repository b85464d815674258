package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Notifier fans events out to subscribed listeners.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
	closed    bool
	mirror    *Mirror
	logger    *slog.Logger
}

func New(logger *slog.Logger) *Notifier {
	return &Notifier{
		listeners: make(map[int]Listener),
		mirror:    NewMirror(),
		logger:    logger,
	}
}

// Subscribe registers fn and returns the function that removes it. Calling
// the returned function more than once is safe. Subscribing to a closed
// Notifier returns a no-op unsubscribe and fn is never called.
func (n *Notifier) Subscribe(fn Listener) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return func() {}
	}

	id := n.nextID
	n.nextID++
	n.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners, id)
			n.mu.Unlock()
		})
	}
}

// Publish applies ev to the mirror and, if it changed anything, delivers it
// to every listener. It reports whether the event was delivered.
func (n *Notifier) Publish(ev Event) bool {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return false
	}
	if !n.mirror.Apply(ev) {
		n.logger.Debug("auth event unchanged, dropped",
			slog.String("kind", string(ev.Kind)),
			slog.String("visitor_id", ev.VisitorID),
		)
		return false
	}

	for _, fn := range n.listeners {
		fn(ev)
	}
	return true
}

// Mirror exposes the mirrored state.
func (n *Notifier) Mirror() *Mirror {
	return n.mirror
}

// Len returns the number of active listeners.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// Close drops every listener. Later Publish calls deliver nothing.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	clear(n.listeners)
}
