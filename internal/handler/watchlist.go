package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/movie-watchlist/internal/auth"
	"github.com/sakif/movie-watchlist/internal/model"
	"github.com/sakif/movie-watchlist/internal/render"
	"github.com/sakif/movie-watchlist/internal/service"
)

// WatchlistManager is what the watchlist endpoints need from the service.
type WatchlistManager interface {
	WatchlistLoader
	Add(ctx context.Context, sess *model.Session, movie model.Movie) ([]model.WatchlistEntry, error)
	Remove(ctx context.Context, sess *model.Session, id string) ([]model.WatchlistEntry, error)
}

var _ WatchlistManager = (*service.WatchlistService)(nil)

// WatchlistHandler serves the watchlist fragment. Every route sits behind
// auth.RequireSession, so a session is always present.
//
//	GET    /watchlist       → list
//	POST   /watchlist       → add, then list   (form: imdb_id, title, year, poster)
//	DELETE /watchlist/{id}  → remove, then list
//
// Add and remove answer with the reloaded list, never a patch. Failures are
// JSON errors for app.js to show.
type WatchlistHandler struct {
	watchlist WatchlistManager
	renderer  *render.Renderer
	logger    *slog.Logger
}

func NewWatchlistHandler(watchlist WatchlistManager, renderer *render.Renderer, logger *slog.Logger) *WatchlistHandler {
	return &WatchlistHandler{watchlist: watchlist, renderer: renderer, logger: logger}
}

// HandleList renders the list. A load failure renders the error marker
// instead, so the swap in app.js still has something to show.
func (h *WatchlistHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	st := auth.StateFromContext(r.Context())

	entries, err := h.watchlist.Load(r.Context(), st.Session)
	if err != nil {
		h.logger.WarnContext(r.Context(), "loading watchlist", slog.String("error", err.Error()))
		writeHTML(w, h.logger, h.renderer.WatchlistError)
		return
	}
	h.writeList(w, entries)
}

func (h *WatchlistHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	st := auth.StateFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBodySize)
	_ = r.ParseForm()
	movie := model.Movie{
		IMDbID: r.PostFormValue("imdb_id"),
		Title:  r.PostFormValue("title"),
		Year:   r.PostFormValue("year"),
		Poster: r.PostFormValue("poster"),
	}

	entries, err := h.watchlist.Add(r.Context(), st.Session, movie)
	if err != nil {
		h.logger.InfoContext(r.Context(), "add to watchlist failed",
			slog.String("imdb_id", movie.IMDbID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	h.writeList(w, entries)
}

func (h *WatchlistHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	st := auth.StateFromContext(r.Context())
	id := chi.URLParam(r, "id")

	entries, err := h.watchlist.Remove(r.Context(), st.Session, id)
	if err != nil {
		h.logger.WarnContext(r.Context(), "remove from watchlist failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	h.writeList(w, entries)
}

func (h *WatchlistHandler) writeList(w http.ResponseWriter, entries []model.WatchlistEntry) {
	writeHTML(w, h.logger, func(out io.Writer) error {
		return h.renderer.Watchlist(out, entries)
	})
}
