package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"golang.org/x/oauth2"

	"github.com/sakif/movie-watchlist/internal/apperror"
	"github.com/sakif/movie-watchlist/internal/model"
	"github.com/sakif/movie-watchlist/internal/repository"
)

// compile-time check that *DB implements repository.SessionRepository
var _ repository.SessionRepository = (*DB)(nil)

// Save inserts a new session or replaces the tokens of an existing one.
//
// A session without an ID is new: it gets an xid and a created_at. An
// existing row keeps its created_at; everything else is overwritten, which
// is exactly what a token refresh needs.
func (db *DB) Save(ctx context.Context, sess *model.Session) error {
	if sess.Token == nil || sess.Token.AccessToken == "" {
		return fmt.Errorf("sqlite: session for user %s has no access token", sess.User.ID)
	}

	access, err := db.sealer.Seal(sess.Token.AccessToken)
	if err != nil {
		return fmt.Errorf("sqlite: sealing access token: %w", err)
	}
	refresh, err := db.sealer.Seal(sess.Token.RefreshToken)
	if err != nil {
		return fmt.Errorf("sqlite: sealing refresh token: %w", err)
	}

	now := time.Now().UTC()
	if sess.ID == "" {
		sess.ID = xid.New().String()
		sess.CreatedAt = now
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now

	tokenType := sess.Token.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}

	var expiresAt sql.NullTime
	if !sess.Token.Expiry.IsZero() {
		expiresAt = sql.NullTime{Time: sess.Token.Expiry.UTC(), Valid: true}
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, email, access_token, refresh_token, token_type, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     user_id       = excluded.user_id,
		     email         = excluded.email,
		     access_token  = excluded.access_token,
		     refresh_token = excluded.refresh_token,
		     token_type    = excluded.token_type,
		     expires_at    = excluded.expires_at,
		     updated_at    = excluded.updated_at`,
		sess.ID,
		sess.User.ID,
		sess.User.Email,
		access,
		refresh,
		tokenType,
		expiresAt,
		sess.CreatedAt,
		sess.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving session %s: %w", sess.ID, err)
	}
	return nil
}

// GetByID returns apperror.ErrNotFound for an unknown id. A row whose tokens
// can no longer be unsealed (the secret changed) is also reported as not
// found: the browser has to sign in again either way.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Session, error) {
	var (
		s                       model.Session
		access, refresh, tokTyp string
		expiresAt               sql.NullTime
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, email, access_token, refresh_token, token_type, expires_at, created_at, updated_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(
		&s.ID,
		&s.User.ID,
		&s.User.Email,
		&access,
		&refresh,
		&tokTyp,
		&expiresAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("session", id)
		}
		return nil, fmt.Errorf("sqlite: getting session %s: %w", id, err)
	}

	accessPlain, err := db.sealer.Open(access)
	if err != nil {
		return nil, apperror.NotFound("session", id)
	}
	refreshPlain, err := db.sealer.Open(refresh)
	if err != nil {
		return nil, apperror.NotFound("session", id)
	}

	s.Token = &oauth2.Token{
		AccessToken:  accessPlain,
		RefreshToken: refreshPlain,
		TokenType:    tokTyp,
	}
	if expiresAt.Valid {
		s.Token.Expiry = expiresAt.Time
	}

	return &s, nil
}

// Delete removes the session. Deleting an unknown id is not an error.
func (db *DB) Delete(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting session %s: %w", id, err)
	}
	return nil
}

func (db *DB) PurgeIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("sqlite: purging sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: purging sessions: %w", err)
	}
	return n, nil
}
