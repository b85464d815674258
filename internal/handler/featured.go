package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/movie-watchlist/internal/auth"
	"github.com/sakif/movie-watchlist/internal/model"
	"github.com/sakif/movie-watchlist/internal/render"
	"github.com/sakif/movie-watchlist/internal/service"
)

// FeaturedLoader samples and fetches the featured movies.
type FeaturedLoader interface {
	Load(ctx context.Context) ([]model.MovieDetail, error)
}

var _ FeaturedLoader = (*service.FeaturedService)(nil)

type FeaturedHandler struct {
	featured FeaturedLoader
	renderer *render.Renderer
	logger   *slog.Logger
}

func NewFeaturedHandler(featured FeaturedLoader, renderer *render.Renderer, logger *slog.Logger) *FeaturedHandler {
	return &FeaturedHandler{featured: featured, renderer: renderer, logger: logger}
}

// HandleFeatured renders the featured cards for signed-out visitors.
//
// HTTP: GET /featured
//
// A signed-in visitor gets 204: the section is not on their page.
func (h *FeaturedHandler) HandleFeatured(w http.ResponseWriter, r *http.Request) {
	if auth.StateFromContext(r.Context()).SignedIn() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	movies, err := h.featured.Load(r.Context())
	if err != nil {
		if !errors.Is(err, service.ErrNoFeatured) {
			h.logger.WarnContext(r.Context(), "loading featured movies", slog.String("error", err.Error()))
		}
		writeHTML(w, h.logger, h.renderer.FeaturedError)
		return
	}

	writeHTML(w, h.logger, func(out io.Writer) error {
		return h.renderer.Featured(out, movies)
	})
}
