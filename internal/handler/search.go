package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/movie-watchlist/internal/auth"
	"github.com/sakif/movie-watchlist/internal/render"
	"github.com/sakif/movie-watchlist/internal/service"
)

// Searcher runs a visitor's free-text search.
type Searcher interface {
	Search(ctx context.Context, visitorID, query string) service.SearchResult
}

var _ Searcher = (*service.SearchService)(nil)

type SearchHandler struct {
	search   Searcher
	renderer *render.Renderer
	logger   *slog.Logger
}

func NewSearchHandler(search Searcher, renderer *render.Renderer, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{search: search, renderer: renderer, logger: logger}
}

// HandleSearch renders the result list for ?q=.
//
// HTTP: GET /search?q=inception
//
// 204 No Content means "leave the list alone": the query was blank, or a
// newer search from the same visitor overtook this one.
func (h *SearchHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	st := auth.StateFromContext(r.Context())

	res := h.search.Search(r.Context(), st.VisitorID, r.URL.Query().Get("q"))
	if res.Skipped || res.Stale {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeHTML(w, h.logger, func(out io.Writer) error {
		return h.renderer.Results(out, res.Movies)
	})
}
