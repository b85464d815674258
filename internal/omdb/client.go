// Package omdb is a small client for the OMDb movie metadata API.
//
// Two lookups are used:
//   - s=<query>&type=movie  free-text search, returns a page of short records
//   - t=<title>             exact-title lookup, returns one detailed record
//
// OMDb answers "not found" with HTTP 200 and {"Response":"False","Error":...}.
// Search maps that to an empty slice; ByTitle maps it to apperror.ErrNotFound.
package omdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/movie-watchlist/internal/apperror"
	"github.com/sakif/movie-watchlist/internal/model"
)

const DefaultBaseURL = "https://www.omdbapi.com/"

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New creates a client. An empty baseURL means DefaultBaseURL; a nil client
// gets a 10 second timeout.
func New(baseURL, apiKey string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, client: client}
}

// Responses
type searchResponse struct {
	Search []struct {
		Title  string `json:"Title"`
		Year   string `json:"Year"`
		IMDbID string `json:"imdbID"`
		Type   string `json:"Type"`
		Poster string `json:"Poster"`
	} `json:"Search"`
	Response string `json:"Response"`
	Error    string `json:"Error"`
}

type titleResponse struct {
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Genre      string `json:"Genre"`
	Poster     string `json:"Poster"`
	IMDbRating string `json:"imdbRating"`
	IMDbID     string `json:"imdbID"`
	Response   string `json:"Response"`
	Error      string `json:"Error"`
}

// Search runs a free-text movie search. An empty query returns nil without a
// request.
func (c *Client) Search(ctx context.Context, query string) ([]model.Movie, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("s", query)
	q.Set("type", "movie")

	var res searchResponse
	if err := c.get(ctx, q, &res); err != nil {
		return nil, fmt.Errorf("omdb: searching %q: %w", query, err)
	}
	if res.Response == "False" {
		return []model.Movie{}, nil
	}

	movies := make([]model.Movie, 0, len(res.Search))
	for _, r := range res.Search {
		movies = append(movies, model.Movie{
			IMDbID: r.IMDbID,
			Title:  r.Title,
			Year:   r.Year,
			Poster: r.Poster,
		})
	}
	return movies, nil
}

// ByTitle fetches the detailed record for an exact title.
func (c *Client) ByTitle(ctx context.Context, title string) (*model.MovieDetail, error) {
	q := url.Values{}
	q.Set("t", title)

	var d titleResponse
	if err := c.get(ctx, q, &d); err != nil {
		return nil, fmt.Errorf("omdb: looking up %q: %w", title, err)
	}
	if d.Response == "False" {
		return nil, apperror.NotFound("movie", title)
	}

	return &model.MovieDetail{
		Movie: model.Movie{
			IMDbID: d.IMDbID,
			Title:  d.Title,
			Year:   d.Year,
			Poster: d.Poster,
		},
		Genre:      d.Genre,
		IMDbRating: d.IMDbRating,
	}, nil
}

func (c *Client) get(ctx context.Context, q url.Values, dst any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	q.Set("apikey", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("OMDb returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
