package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/movie-watchlist/internal/apperror"
	"github.com/sakif/movie-watchlist/internal/gotrue"
	"github.com/sakif/movie-watchlist/internal/model"
)

// =========================================================================
// FAKES
// =========================================================================
//
// Hand-written fakes for every dependency. Each stores state in memory and
// counts calls so tests can assert on what reached the "network".

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProvider is an in-memory auth provider.
type fakeProvider struct {
	mu sync.Mutex

	accounts    map[string]fakeAccount // by email
	tokens      map[string]gotrue.User // access token → user
	autoConfirm bool

	signInCalls int
	signUpCalls []gotrue.SignUpRequest
	resendCalls []gotrue.ResendRequest
	signOutErr  error
	refreshErr  error
	refreshed   *oauth2.Token
	nextToken   int
}

type fakeAccount struct {
	user      gotrue.User
	password  string
	confirmed bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		accounts: make(map[string]fakeAccount),
		tokens:   make(map[string]gotrue.User),
	}
}

func (f *fakeProvider) addAccount(id, email, password string, confirmed bool) {
	f.accounts[email] = fakeAccount{
		user:      gotrue.User{ID: id, Email: email},
		password:  password,
		confirmed: confirmed,
	}
}

func (f *fakeProvider) issue(u gotrue.User) *gotrue.Session {
	f.nextToken++
	at := fmt.Sprintf("access-%d", f.nextToken)
	f.tokens[at] = u
	return &gotrue.Session{
		AccessToken:  at,
		TokenType:    "bearer",
		RefreshToken: fmt.Sprintf("refresh-%d", f.nextToken),
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		User:         u,
	}
}

func (f *fakeProvider) SignInWithPassword(_ context.Context, email, password string) (*gotrue.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.signInCalls++
	acc, ok := f.accounts[email]
	if !ok || acc.password != password {
		return nil, &gotrue.Error{Status: 400, Code: "invalid_credentials", Message: "Invalid login credentials"}
	}
	if !acc.confirmed {
		return nil, &gotrue.Error{Status: 400, Code: "email_not_confirmed", Message: "Email not confirmed"}
	}
	return f.issue(acc.user), nil
}

func (f *fakeProvider) SignUp(_ context.Context, req gotrue.SignUpRequest) (*gotrue.SignUpResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.signUpCalls = append(f.signUpCalls, req)
	if _, exists := f.accounts[req.Email]; exists {
		return nil, &gotrue.Error{Status: 422, Message: "User already registered"}
	}

	u := gotrue.User{ID: fmt.Sprintf("00000000-0000-4000-8000-%012d", len(f.accounts)+1), Email: req.Email}
	f.accounts[req.Email] = fakeAccount{user: u, password: req.Password, confirmed: f.autoConfirm}

	res := &gotrue.SignUpResult{User: u}
	if f.autoConfirm {
		res.Session = f.issue(u)
	}
	return res, nil
}

func (f *fakeProvider) Resend(_ context.Context, req gotrue.ResendRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resendCalls = append(f.resendCalls, req)
	return nil
}

func (f *fakeProvider) SignOut(_ context.Context, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, accessToken)
	return f.signOutErr
}

func (f *fakeProvider) GetUser(_ context.Context, accessToken string) (*gotrue.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.tokens[accessToken]
	if !ok {
		return nil, &gotrue.Error{Status: 401, Message: "invalid JWT"}
	}
	return &u, nil
}

func (f *fakeProvider) TokenSource(_ context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(tok, fakeRefresher{f})
}

type fakeRefresher struct{ f *fakeProvider }

func (r fakeRefresher) Token() (*oauth2.Token, error) {
	if r.f.refreshErr != nil {
		return nil, r.f.refreshErr
	}
	return r.f.refreshed, nil
}

// fakeSessions is an in-memory session cache.
type fakeSessions struct {
	mu   sync.Mutex
	rows map[string]model.Session
	next int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{rows: make(map[string]model.Session)}
}

func (f *fakeSessions) Save(_ context.Context, sess *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sess.ID == "" {
		f.next++
		sess.ID = fmt.Sprintf("sess-%d", f.next)
	}
	stored := *sess
	tok := *sess.Token
	stored.Token = &tok
	f.rows[sess.ID] = stored
	return nil
}

func (f *fakeSessions) GetByID(_ context.Context, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return nil, apperror.NotFound("session", id)
	}
	tok := *s.Token
	s.Token = &tok
	return &s, nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

func (f *fakeSessions) PurgeIdle(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// fakeWatchlist is an in-memory remote table with the (user, imdb) unique
// constraint and owner-scoped delete.
type fakeWatchlist struct {
	mu      sync.Mutex
	rows    []model.WatchlistEntry
	next    int
	listErr error
}

func (f *fakeWatchlist) Create(_ context.Context, sess *model.Session, e *model.WatchlistEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.UserID == sess.User.ID && r.IMDbID == e.IMDbID {
			return apperror.Duplicate("Movie is already in your watchlist")
		}
	}
	f.next++
	e.ID = fmt.Sprintf("row-%d", f.next)
	e.UserID = sess.User.ID
	e.CreatedAt = time.Unix(int64(f.next), 0)
	f.rows = append(f.rows, *e)
	return nil
}

func (f *fakeWatchlist) ListByUser(_ context.Context, sess *model.Session) ([]model.WatchlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []model.WatchlistEntry{}
	for _, r := range f.rows {
		if r.UserID == sess.User.ID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeWatchlist) Delete(_ context.Context, sess *model.Session, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == id && r.UserID == sess.User.ID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("watchlist entry", id)
}

// fakeSearcher answers searches from a map. If gate is set, a search for
// that query blocks until the channel is closed.
type fakeSearcher struct {
	results map[string][]model.Movie
	err     error
	gate    map[string]chan struct{}
	calls   int
	mu      sync.Mutex
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]model.Movie, error) {
	f.mu.Lock()
	f.calls++
	g := f.gate[query]
	f.mu.Unlock()
	if g != nil {
		<-g
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

// fakeFetcher answers exact-title lookups; titles in fail return an error.
type fakeFetcher struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func (f *fakeFetcher) ByTitle(_ context.Context, title string) (*model.MovieDetail, error) {
	f.mu.Lock()
	f.calls = append(f.calls, title)
	f.mu.Unlock()
	if f.fail[title] {
		return nil, apperror.NotFound("movie", title)
	}
	return &model.MovieDetail{
		Movie:      model.Movie{IMDbID: "tt-" + title, Title: title, Year: "2000"},
		Genre:      "Drama",
		IMDbRating: "8.0",
	}, nil
}
