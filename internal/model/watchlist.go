package model

import "time"

// WatchlistEntry is a user-owned saved reference to a movie, stored remotely.
//
// The json tags are the remote table's column names, so the PostgREST client
// can send and decode rows without an extra mapping type.
//
// UNIQUENESS:
// (UserID, IMDbID) is unique. The remote store enforces it; we only surface
// the violation as apperror.ErrDuplicate.
type WatchlistEntry struct {
	ID        string    `json:"id,omitempty"         db:"id"`
	UserID    string    `json:"user_id"              db:"user_id"`
	IMDbID    string    `json:"imdb_id"              db:"imdb_id"`
	Title     string    `json:"title"                db:"title"`
	Year      string    `json:"year"                 db:"year"`
	Poster    string    `json:"poster"               db:"poster"`
	CreatedAt time.Time `json:"created_at,omitzero"  db:"created_at"`
}
