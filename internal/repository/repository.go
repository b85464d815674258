// Package repository declares the storage interfaces the services depend on.
//
// Two very different stores live behind them:
//   - WatchlistRepository is REMOTE. The hosted table store is the only
//     source of truth for watchlist rows; nothing is cached locally.
//   - SessionRepository is LOCAL. It mirrors the provider session so a
//     browser cookie can be turned back into tokens.
package repository

import (
	"context"
	"time"

	"github.com/sakif/movie-watchlist/internal/model"
)

// WatchlistRepository stores watchlist entries scoped to the session's user.
//
// Every method takes the session so a backend can act with the user's own
// credentials (PostgREST) or filter by the user's id (Postgres). A backend
// never reads or deletes another user's rows.
type WatchlistRepository interface {
	// Create inserts entry for sess.User. A second entry with the same
	// imdb id for the same user fails with apperror.ErrDuplicate.
	Create(ctx context.Context, sess *model.Session, entry *model.WatchlistEntry) error

	// ListByUser returns the user's entries, newest first.
	ListByUser(ctx context.Context, sess *model.Session) ([]model.WatchlistEntry, error)

	// Delete removes the entry with id if, and only if, sess.User owns it.
	// Otherwise it returns apperror.ErrNotFound and nothing changes.
	Delete(ctx context.Context, sess *model.Session, id string) error
}

// SessionRepository is the local session cache.
type SessionRepository interface {
	// Save inserts or replaces the session. An empty ID is assigned.
	Save(ctx context.Context, sess *model.Session) error
	GetByID(ctx context.Context, id string) (*model.Session, error)
	Delete(ctx context.Context, id string) error
	// PurgeIdle removes sessions not updated since cutoff.
	PurgeIdle(ctx context.Context, cutoff time.Time) (int64, error)
}
