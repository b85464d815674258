package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Message is the JSON pushed to the page.
type Message struct {
	Type  Kind      `json:"type"`
	Email string    `json:"email,omitempty"`
	At    time.Time `json:"at"`
}

// client is one open page listening for its visitor's events.
type client struct {
	conn *ws.Conn
	send chan []byte
}

// Serve upgrades the request to a websocket and streams visitorID's events
// until the page goes away. It blocks for the life of the connection.
func Serve(w http.ResponseWriter, r *http.Request, n *Notifier, visitorID string, logger *slog.Logger) {
	// The server's read/write timeouts are for requests, not for a
	// connection that stays open as long as the page does.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := ws.Accept(w, r, nil)
	if err != nil {
		logger.Warn("websocket accept", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()

	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}

	unsubscribe := n.Subscribe(func(ev Event) {
		if ev.VisitorID != visitorID {
			return
		}
		data, err := json.Marshal(Message{Type: ev.Kind, Email: ev.Email, At: ev.At})
		if err != nil {
			return
		}
		select {
		case c.send <- data:
		default:
			// Buffer full: the page will resync on its next load.
		}
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)

	conn.Close(ws.StatusNormalClosure, "")
}

// readPump discards incoming messages and returns when the connection
// closes.
func (c *client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
