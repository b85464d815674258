package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/movie-watchlist/internal/auth"
	"github.com/sakif/movie-watchlist/internal/notify"
)

// EventsHandler pushes the visitor's auth-state changes to open pages.
type EventsHandler struct {
	notifier *notify.Notifier
	logger   *slog.Logger
}

func NewEventsHandler(notifier *notify.Notifier, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{notifier: notifier, logger: logger}
}

// HandleEvents upgrades to a websocket for the life of the page.
//
// HTTP: GET /events
func (h *EventsHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	st := auth.StateFromContext(r.Context())
	notify.Serve(w, r, h.notifier, st.VisitorID, h.logger)
}
