package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/movie-watchlist/internal/apperror"
	"github.com/sakif/movie-watchlist/internal/auth"
	"github.com/sakif/movie-watchlist/internal/model"
	"github.com/sakif/movie-watchlist/internal/render"
	"github.com/sakif/movie-watchlist/internal/service"
)

// =========================================================================
// TEST HARNESS
// =========================================================================
//
// The harness builds a chi router the way internal/server does, with fakes
// behind every handler interface. Requests go through auth.LoadState, so
// cookies set by one response can be replayed on the next request.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	router    chi.Router
	cookies   *auth.Cookies
	sessions  *fakeSessionManager
	search    *fakeSearch
	watchlist *fakeWatchlist
	featured  *fakeFeatured
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789")
	require.NoError(t, err)
	renderer, err := render.New()
	require.NoError(t, err)

	h := &harness{
		cookies:   auth.NewCookies(tokens, false),
		sessions:  newFakeSessionManager(),
		search:    &fakeSearch{},
		watchlist: &fakeWatchlist{},
		featured:  &fakeFeatured{},
	}
	logger := discardLogger()

	page := NewPageHandler(renderer, h.watchlist, logger)
	authH := NewAuthHandler(h.sessions, h.cookies, logger)
	searchH := NewSearchHandler(h.search, renderer, logger)
	watchlistH := NewWatchlistHandler(h.watchlist, renderer, logger)
	featuredH := NewFeaturedHandler(h.featured, renderer, logger)

	r := chi.NewRouter()
	r.Use(auth.LoadState(h.cookies, h.sessions, logger))
	r.Get("/", page.HandleIndex)
	r.Get("/healthz", HandleHealth)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authH.HandleLogin)
		r.Post("/register", authH.HandleRegister)
		r.Post("/resend", authH.HandleResend)
		r.Post("/logout", authH.HandleLogout)
		r.Post("/confirm", authH.HandleConfirm)
		r.Get("/session", authH.HandleSession)
	})
	r.Get("/search", searchH.HandleSearch)
	r.Get("/featured", featuredH.HandleFeatured)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession)
		r.Get("/watchlist", watchlistH.HandleList)
		r.Post("/watchlist", watchlistH.HandleAdd)
		r.Delete("/watchlist/{id}", watchlistH.HandleRemove)
	})
	h.router = r
	return h
}

// do sends req with the given cookies and returns the recorded response.
func (h *harness) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req, cookies...)
}

// signedIn returns a valid session cookie for a session the fake knows.
func (h *harness) signedIn(t *testing.T, email string) *http.Cookie {
	t.Helper()
	sess := h.sessions.add(email)
	rec := httptest.NewRecorder()
	require.NoError(t, h.cookies.SetSession(rec, sess.ID))
	return cookieNamed(rec, auth.SessionCookie)
}

// cookieNamed returns the cookie set by rec, or nil.
func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// flashOf decodes the banner rec queued, or nil.
func (h *harness) flashOf(rec *httptest.ResponseRecorder) *auth.Flash {
	c := cookieNamed(rec, auth.FlashCookie)
	if c == nil || c.Value == "" {
		return nil
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	return h.cookies.TakeFlash(httptest.NewRecorder(), req)
}

// live returns the cookies rec set that were not cleared.
func live(rec *httptest.ResponseRecorder) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 && c.Value != "" {
			out = append(out, c)
		}
	}
	return out
}

// =========================================================================
// FAKES
// =========================================================================

type fakeSessionManager struct {
	sessions map[string]*model.Session

	signInErr  error
	signUpErr  error
	signUpSess bool
	resendErr  error
	signOutErr error
	confirmErr error

	creds      []auth.Credentials
	resent     []string
	signedOut  []*model.Session
	fragments  []service.Fragment
	nextSessID int
}

func newFakeSessionManager() *fakeSessionManager {
	return &fakeSessionManager{sessions: make(map[string]*model.Session)}
}

func (f *fakeSessionManager) add(email string) *model.Session {
	f.nextSessID++
	sess := &model.Session{
		ID:   fmt.Sprintf("sess-%d", f.nextSessID),
		User: model.User{ID: "user-" + email, Email: email},
	}
	f.sessions[sess.ID] = sess
	return sess
}

func (f *fakeSessionManager) SignIn(_ context.Context, _ string, creds auth.Credentials) (*model.Session, error) {
	f.creds = append(f.creds, creds)
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.add(creds.Email), nil
}

func (f *fakeSessionManager) SignUp(_ context.Context, _ string, creds auth.Credentials) (*service.SignUpResult, error) {
	f.creds = append(f.creds, creds)
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	res := &service.SignUpResult{Email: creds.Email}
	if f.signUpSess {
		res.Session = f.add(creds.Email)
	}
	return res, nil
}

func (f *fakeSessionManager) ResendConfirmation(_ context.Context, email string) error {
	f.resent = append(f.resent, email)
	return f.resendErr
}

func (f *fakeSessionManager) SignOut(_ context.Context, _ string, sess *model.Session) error {
	f.signedOut = append(f.signedOut, sess)
	if sess != nil {
		delete(f.sessions, sess.ID)
	}
	return f.signOutErr
}

func (f *fakeSessionManager) ConfirmFromFragment(_ context.Context, _ string, fr service.Fragment) (*model.Session, error) {
	f.fragments = append(f.fragments, fr)
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return f.add("confirmed@example.com"), nil
}

// Restore makes the fake usable as the auth.LoadState restorer.
func (f *fakeSessionManager) Restore(_ context.Context, _, sessionID string) (*model.Session, error) {
	sess, ok := f.sessions[sessionID]
	if !ok {
		return nil, apperror.NotFound("session", sessionID)
	}
	return sess, nil
}

type fakeSearch struct {
	result  service.SearchResult
	queries []string
}

func (f *fakeSearch) Search(_ context.Context, _, query string) service.SearchResult {
	f.queries = append(f.queries, query)
	return f.result
}

type fakeWatchlist struct {
	entries []model.WatchlistEntry
	loadErr error
	addErr  error
	added   []model.Movie
	removed []string
}

func (f *fakeWatchlist) Load(context.Context, *model.Session) ([]model.WatchlistEntry, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.entries, nil
}

func (f *fakeWatchlist) Add(_ context.Context, _ *model.Session, m model.Movie) ([]model.WatchlistEntry, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	f.added = append(f.added, m)
	f.entries = append([]model.WatchlistEntry{{
		ID: "row-1", IMDbID: m.IMDbID, Title: m.Title, Year: m.Year, Poster: m.Poster,
	}}, f.entries...)
	return f.entries, nil
}

func (f *fakeWatchlist) Remove(_ context.Context, _ *model.Session, id string) ([]model.WatchlistEntry, error) {
	f.removed = append(f.removed, id)
	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	f.entries = kept
	return f.entries, nil
}

type fakeFeatured struct {
	movies []model.MovieDetail
	err    error
	calls  int
}

func (f *fakeFeatured) Load(context.Context) ([]model.MovieDetail, error) {
	f.calls++
	return f.movies, f.err
}
