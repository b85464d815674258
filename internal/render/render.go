// Package render turns lists of movies into HTML.
//
// ONE RENDERER PER ENTITY TYPE:
// Search results, watchlist entries and featured movies each have exactly
// one template. The full page and the fragment endpoints use the SAME
// templates, so a list looks identical whether it came with the page or was
// swapped in later by app.js:
//
//	GET /           → "page"      (includes "watchlist" when signed in)
//	GET /search     → "results"
//	GET /watchlist  → "watchlist"
//	GET /featured   → "featured"
//
// Rendering is a pure function of its input. The Renderer holds nothing but
// the parsed templates, so one instance is shared by every request.
//
// ESCAPING:
// Titles come from a third party. html/template escapes them per context
// (element text, attribute, URL), which is why the markup is built with
// templates and never by string concatenation.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/sakif/movie-watchlist/internal/auth"
	"github.com/sakif/movie-watchlist/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Empty-state and failure texts.
const (
	NoResultsText      = "No results found"
	EmptyWatchlistText = "Your watchlist is empty. Search and add movies!"
	WatchlistErrorText = "Failed to load watchlist"
	FeaturedErrorText  = "Failed to load popular movies"
)

// PageData is everything the full page shows.
type PageData struct {
	// Email of the signed-in user; empty when signed out.
	Email        string
	PendingEmail string
	Flash        *auth.Flash

	Watchlist       []model.WatchlistEntry
	WatchlistFailed bool
}

// SignedIn reports whether the page renders the signed-in layout.
func (p PageData) SignedIn() bool { return p.Email != "" }

// AuthState is the marker app.js compares against pushed auth events.
func (p PageData) AuthState() string {
	if p.SignedIn() {
		return "in"
	}
	return "out"
}

// PageDataFor builds the page data for a visitor. Watchlist fields are
// filled in by the caller.
func PageDataFor(st *auth.State) PageData {
	data := PageData{
		PendingEmail: st.PendingEmail,
		Flash:        st.Flash,
	}
	if st.SignedIn() {
		data.Email = st.Session.User.Email
	}
	return data
}

type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("render: parsing templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) Page(w io.Writer, data PageData) error {
	return r.execute(w, "page", data)
}

// Results renders the items of the search result list.
func (r *Renderer) Results(w io.Writer, movies []model.Movie) error {
	return r.execute(w, "results", movies)
}

// Watchlist renders the items of the watchlist.
func (r *Renderer) Watchlist(w io.Writer, entries []model.WatchlistEntry) error {
	return r.execute(w, "watchlist", entries)
}

func (r *Renderer) WatchlistError(w io.Writer) error {
	return r.execute(w, "watchlist-error", nil)
}

// Featured renders the featured movie cards.
func (r *Renderer) Featured(w io.Writer, movies []model.MovieDetail) error {
	return r.execute(w, "featured", movies)
}

func (r *Renderer) FeaturedError(w io.Writer) error {
	return r.execute(w, "featured-error", nil)
}

// execute renders into a buffer first so a template failure never leaves
// half a fragment on the wire.
func (r *Renderer) execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render: executing %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
