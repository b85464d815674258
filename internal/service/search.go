package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/movie-watchlist/internal/model"
)

// MovieSearcher runs free-text searches. *omdb.Client implements it.
type MovieSearcher interface {
	Search(ctx context.Context, query string) ([]model.Movie, error)
}

// SearchResult is what a search produced for the page.
type SearchResult struct {
	Movies []model.Movie
	// Skipped is set for a blank query: nothing was requested.
	Skipped bool
	// Stale is set when a newer search from the same visitor started while
	// this one was in flight. The page must not render it.
	Stale bool
}

type SearchService struct {
	movies  MovieSearcher
	tracker *Tracker
	logger  *slog.Logger
}

func NewSearchService(movies MovieSearcher, tracker *Tracker, logger *slog.Logger) *SearchService {
	return &SearchService{movies: movies, tracker: tracker, logger: logger}
}

// Search never fails. A lookup error is logged and reads as no results.
func (s *SearchService) Search(ctx context.Context, visitorID, query string) SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResult{Skipped: true}
	}

	token := s.tracker.Begin(visitorID)

	movies, err := s.movies.Search(ctx, query)
	if err != nil {
		s.logger.WarnContext(ctx, "movie search failed",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		movies = nil
	}

	if !s.tracker.Finish(visitorID, token) {
		s.logger.DebugContext(ctx, "dropping stale search", slog.String("query", query))
		return SearchResult{Stale: true}
	}

	if movies == nil {
		movies = []model.Movie{}
	}
	return SearchResult{Movies: movies}
}
