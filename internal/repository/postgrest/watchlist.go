// Package postgrest implements repository.WatchlistRepository against the
// hosted table store's REST interface (Supabase PostgREST).
//
// AUTHORIZATION:
// Each request is made AS THE USER: the user's access token is the bearer,
// and the project's anon key goes in the "apikey" header. The table's
// row-level security then applies on top of our own user_id filters.
//
//	POST   /rest/v1/watchlist                                  insert
//	GET    /rest/v1/watchlist?select=*&user_id=eq.U&order=created_at.desc
//	DELETE /rest/v1/watchlist?id=eq.I&user_id=eq.U              delete
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/movie-watchlist/internal/apperror"
	"github.com/sakif/movie-watchlist/internal/model"
	"github.com/sakif/movie-watchlist/internal/repository"
)

// compile-time check that *Store implements repository.WatchlistRepository
var _ repository.WatchlistRepository = (*Store)(nil)

const (
	table           = "watchlist"
	uniqueViolation = "23505"
	duplicateText   = "Movie is already in your watchlist"
)

type Store struct {
	baseURL string
	anonKey string
	client  *http.Client
}

// New creates a store for the project at supabaseURL. A nil client gets a
// 10 second timeout.
func New(supabaseURL, anonKey string, client *http.Client) *Store {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Store{
		baseURL: strings.TrimRight(supabaseURL, "/") + "/rest/v1/" + table,
		anonKey: anonKey,
		client:  client,
	}
}

// row is the wire shape. The id column may be a uuid or a bigint depending
// on how the table was created, so it is read raw.
type row struct {
	ID        json.RawMessage `json:"id,omitempty"`
	UserID    string          `json:"user_id"`
	IMDbID    string          `json:"imdb_id"`
	Title     string          `json:"title"`
	Year      string          `json:"year"`
	Poster    string          `json:"poster"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
}

func (r row) entry() model.WatchlistEntry {
	e := model.WatchlistEntry{
		ID:     strings.Trim(string(r.ID), `"`),
		UserID: r.UserID,
		IMDbID: r.IMDbID,
		Title:  r.Title,
		Year:   r.Year,
		Poster: r.Poster,
	}
	if r.CreatedAt != nil {
		e.CreatedAt = *r.CreatedAt
	}
	return e
}

// apiError is PostgREST's error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (s *Store) Create(ctx context.Context, sess *model.Session, entry *model.WatchlistEntry) error {
	entry.UserID = sess.User.ID
	in := row{
		UserID: entry.UserID,
		IMDbID: entry.IMDbID,
		Title:  entry.Title,
		Year:   entry.Year,
		Poster: entry.Poster,
	}

	var out []row
	if err := s.do(ctx, sess, http.MethodPost, nil, in, &out); err != nil {
		return fmt.Errorf("postgrest: inserting %s: %w", entry.IMDbID, err)
	}
	if len(out) > 0 {
		*entry = out[0].entry()
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, sess *model.Session) ([]model.WatchlistEntry, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+sess.User.ID)
	q.Set("order", "created_at.desc")

	var rows []row
	if err := s.do(ctx, sess, http.MethodGet, q, nil, &rows); err != nil {
		return nil, fmt.Errorf("postgrest: listing watchlist: %w", err)
	}

	entries := make([]model.WatchlistEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.entry())
	}
	return entries, nil
}

func (s *Store) Delete(ctx context.Context, sess *model.Session, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("user_id", "eq."+sess.User.ID)

	var deleted []row
	if err := s.do(ctx, sess, http.MethodDelete, q, nil, &deleted); err != nil {
		return fmt.Errorf("postgrest: deleting %s: %w", id, err)
	}
	if len(deleted) == 0 {
		return apperror.NotFound("watchlist entry", id)
	}
	return nil
}

// httpClient returns a client that sends the user's token as the bearer.
func (s *Store) httpClient(ctx context.Context, sess *model.Session) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(sess.Token))
}

func (s *Store) do(ctx context.Context, sess *model.Session, method string, q url.Values, in, out any) error {
	if sess == nil || sess.Token == nil {
		return apperror.Unauthorized("Please log in first")
	}

	u := s.baseURL
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := s.httpClient(ctx, sess).Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var e apiError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &e)

	switch {
	case e.Code == uniqueViolation:
		return apperror.Duplicate(duplicateText)
	case resp.StatusCode == http.StatusUnauthorized:
		return apperror.Unauthorized("Session expired, please log in again")
	}

	msg := e.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
}
