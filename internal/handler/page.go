// Package handler contains the HTTP handlers of the watchlist page.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the request (form fields, query, path params, JSON body)
//  2. Read the visitor's auth.State from the context (built by auth.LoadState)
//  3. Call one service operation
//  4. Answer with a page, a fragment, JSON, or a redirect
//
// Handlers hold no state between requests and contain no business logic.
// Each depends on a small interface, so tests swap in fakes without a
// network.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/movie-watchlist/internal/auth"
	"github.com/sakif/movie-watchlist/internal/model"
	"github.com/sakif/movie-watchlist/internal/render"
)

// WatchlistLoader reads the signed-in user's list.
type WatchlistLoader interface {
	Load(ctx context.Context, sess *model.Session) ([]model.WatchlistEntry, error)
}

// PageHandler serves the full page.
type PageHandler struct {
	renderer  *render.Renderer
	watchlist WatchlistLoader
	logger    *slog.Logger
}

func NewPageHandler(renderer *render.Renderer, watchlist WatchlistLoader, logger *slog.Logger) *PageHandler {
	return &PageHandler{renderer: renderer, watchlist: watchlist, logger: logger}
}

// HandleIndex renders the page for the visitor's current state.
//
// HTTP: GET /
//
// Signed in, the watchlist is loaded here so it arrives with the page. A
// load failure still renders the page, with the error marker in the list.
func (h *PageHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	st := auth.StateFromContext(r.Context())
	data := render.PageDataFor(st)

	if st.SignedIn() {
		entries, err := h.watchlist.Load(r.Context(), st.Session)
		if err != nil {
			h.logger.WarnContext(r.Context(), "loading watchlist for page",
				slog.String("user_id", st.Session.User.ID),
				slog.String("error", err.Error()),
			)
			data.WatchlistFailed = true
		}
		data.Watchlist = entries
	}

	writeHTML(w, h.logger, func(out io.Writer) error {
		return h.renderer.Page(out, data)
	})
}

// HandleHealth reports liveness.
//
// HTTP: GET /healthz
func HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
