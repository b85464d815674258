// Package postgres implements repository.WatchlistRepository with a direct
// database connection, for deployments that set DATABASE_URL instead of going
// through the REST interface.
//
// The (user_id, imdb_id) UNIQUE constraint does the duplicate detection: a
// second insert fails with SQLSTATE 23505, which we report as
// apperror.ErrDuplicate. There is no read-before-write.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/sakif/movie-watchlist/internal/apperror"
	"github.com/sakif/movie-watchlist/internal/model"
	"github.com/sakif/movie-watchlist/internal/repository"
)

//go:embed migrations/*.sql
var migrations embed.FS

// compile-time check that *Store implements repository.WatchlistRepository
var _ repository.WatchlistRepository = (*Store)(nil)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

// Open connects to databaseURL and applies migrations.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: goose up: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Create(ctx context.Context, sess *model.Session, entry *model.WatchlistEntry) error {
	entry.UserID = sess.User.ID

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO watchlist (user_id, imdb_id, title, year, poster)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		entry.UserID, entry.IMDbID, entry.Title, entry.Year, entry.Poster,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Duplicate("Movie is already in your watchlist")
		}
		return fmt.Errorf("postgres: inserting %s: %w", entry.IMDbID, err)
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, sess *model.Session) ([]model.WatchlistEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, imdb_id, title, year, poster, created_at
		FROM watchlist
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		sess.User.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing watchlist: %w", err)
	}
	defer rows.Close()

	entries := []model.WatchlistEntry{}
	for rows.Next() {
		var e model.WatchlistEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.IMDbID, &e.Title, &e.Year, &e.Poster, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scanning watchlist row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: listing watchlist: %w", err)
	}
	return entries, nil
}

// Delete filters on both id and user_id. An id that is not a uuid cannot
// match any row, so it is reported as not found without a round trip.
func (s *Store) Delete(ctx context.Context, sess *model.Session, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.NotFound("watchlist entry", id)
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM watchlist WHERE id = $1 AND user_id = $2`,
		id, sess.User.ID,
	)
	if err != nil {
		return fmt.Errorf("postgres: deleting %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: deleting %s: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("watchlist entry", id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
