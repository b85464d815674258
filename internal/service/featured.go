package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/movie-watchlist/internal/model"
)

// FeaturedCount is how many titles the landing page shows.
const FeaturedCount = 8

// ErrNoFeatured means every featured lookup failed.
var ErrNoFeatured = errors.New("service: no featured movies could be loaded")

// DefaultFeaturedPool is the fixed list featured titles are drawn from.
var DefaultFeaturedPool = []string{
	"Avengers: Endgame",
	"The Dark Knight",
	"Inception",
	"Interstellar",
	"The Godfather",
	"Pulp Fiction",
	"The Shawshank Redemption",
	"Forrest Gump",
	"The Matrix",
	"Titanic",
	"Avatar",
	"Joker",
	"Spider-Man: No Way Home",
	"Top Gun: Maverick",
	"Sore: Wife from the Future",
	"Parasite",
	"The Lord of the Rings: The Return of the King",
	"500 Days of Summer",
	"5 cm",
}

// TitleFetcher looks a movie up by exact title. *omdb.Client implements it.
type TitleFetcher interface {
	ByTitle(ctx context.Context, title string) (*model.MovieDetail, error)
}

type FeaturedService struct {
	movies  TitleFetcher
	pool    []string
	shuffle func(n int, swap func(i, j int))
	logger  *slog.Logger
}

// NewFeaturedService draws from pool, or DefaultFeaturedPool when pool is
// empty. Duplicate titles are removed.
func NewFeaturedService(movies TitleFetcher, pool []string, logger *slog.Logger) *FeaturedService {
	if len(pool) == 0 {
		pool = DefaultFeaturedPool
	}
	return &FeaturedService{
		movies:  movies,
		pool:    dedupe(pool),
		shuffle: rand.Shuffle,
		logger:  logger,
	}
}

// Sample returns up to FeaturedCount distinct titles in random order.
func (s *FeaturedService) Sample() []string {
	titles := append([]string(nil), s.pool...)
	s.shuffle(len(titles), func(i, j int) { titles[i], titles[j] = titles[j], titles[i] })
	if len(titles) > FeaturedCount {
		titles = titles[:FeaturedCount]
	}
	return titles
}

// Load fetches a fresh sample in parallel. Failed lookups are dropped; the
// survivors keep their sample order. If none survive it returns
// ErrNoFeatured.
func (s *FeaturedService) Load(ctx context.Context) ([]model.MovieDetail, error) {
	titles := s.Sample()
	found := make([]*model.MovieDetail, len(titles))

	var g errgroup.Group
	for i, title := range titles {
		g.Go(func() error {
			d, err := s.movies.ByTitle(ctx, title)
			if err != nil {
				s.logger.DebugContext(ctx, "featured lookup failed",
					slog.String("title", title),
					slog.String("error", err.Error()),
				)
				return nil
			}
			found[i] = d
			return nil
		})
	}
	_ = g.Wait()

	movies := make([]model.MovieDetail, 0, len(found))
	for _, d := range found {
		if d != nil {
			movies = append(movies, *d)
		}
	}
	if len(movies) == 0 {
		return nil, ErrNoFeatured
	}
	return movies, nil
}

func dedupe(titles []string) []string {
	seen := make(map[string]struct{}, len(titles))
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
