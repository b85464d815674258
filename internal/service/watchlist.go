package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/movie-watchlist/internal/apperror"
	"github.com/sakif/movie-watchlist/internal/model"
	"github.com/sakif/movie-watchlist/internal/repository"
)

// WatchlistService manages the signed-in user's list.
//
// THE LIST IS NEVER PATCHED LOCALLY:
// After every add or remove the whole list is read back from the remote
// store and returned. What the page shows is always what the store holds.
type WatchlistService struct {
	repo   repository.WatchlistRepository
	logger *slog.Logger
}

func NewWatchlistService(repo repository.WatchlistRepository, logger *slog.Logger) *WatchlistService {
	return &WatchlistService{repo: repo, logger: logger}
}

// Load returns the user's entries, newest first.
func (s *WatchlistService) Load(ctx context.Context, sess *model.Session) ([]model.WatchlistEntry, error) {
	if sess == nil {
		return nil, apperror.Unauthorized("Please log in first")
	}

	entries, err := s.repo.ListByUser(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("service: loading watchlist: %w", err)
	}
	return entries, nil
}

// Add inserts a movie for the user and returns the reloaded list. A movie
// already on the list fails with apperror.ErrDuplicate and the list is
// unchanged.
func (s *WatchlistService) Add(ctx context.Context, sess *model.Session, movie model.Movie) ([]model.WatchlistEntry, error) {
	if sess == nil {
		return nil, apperror.Unauthorized("Please log in first")
	}

	movie.IMDbID = strings.TrimSpace(movie.IMDbID)
	if movie.IMDbID == "" {
		return nil, apperror.ValidationFailed("imdb_id", "Movie id is required")
	}

	entry := &model.WatchlistEntry{
		IMDbID: movie.IMDbID,
		Title:  movie.Title,
		Year:   movie.Year,
		Poster: movie.Poster,
	}
	if err := s.repo.Create(ctx, sess, entry); err != nil {
		return nil, fmt.Errorf("service: adding %s: %w", movie.IMDbID, err)
	}

	s.logger.InfoContext(ctx, "watchlist entry added",
		slog.String("user_id", sess.User.ID),
		slog.String("imdb_id", entry.IMDbID),
	)
	return s.Load(ctx, sess)
}

// Remove deletes one of the user's entries and returns the reloaded list.
// An id the user does not own changes nothing; the reloaded list is still
// returned.
func (s *WatchlistService) Remove(ctx context.Context, sess *model.Session, id string) ([]model.WatchlistEntry, error) {
	if sess == nil {
		return nil, apperror.Unauthorized("Please log in first")
	}

	err := s.repo.Delete(ctx, sess, id)
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "watchlist entry removed",
			slog.String("user_id", sess.User.ID),
			slog.String("id", id),
		)
	case errors.Is(err, apperror.ErrNotFound):
		s.logger.WarnContext(ctx, "remove matched no entry",
			slog.String("user_id", sess.User.ID),
			slog.String("id", id),
		)
	default:
		return nil, fmt.Errorf("service: removing %s: %w", id, err)
	}

	return s.Load(ctx, sess)
}
