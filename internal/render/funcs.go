package render

import (
	"fmt"
	"html/template"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Poster sizes used by the placeholder service.
const (
	ListPosterSize     = "80x120"
	FeaturedPosterSize = "300x450"
)

const placeholderBase = "https://via.placeholder.com/"

var funcs = template.FuncMap{
	"poster":   PosterURL,
	"fallback": FallbackURL,
	"stars":    Stars,
	"imdbURL":  IMDbURL,
}

// PosterURL returns poster, or a placeholder carrying the first 20
// characters of the title when the poster is missing or "N/A".
func PosterURL(poster, title, size string) string {
	if poster != "" && poster != "N/A" {
		return poster
	}
	return placeholder(size, "333", title, 20)
}

// FallbackURL is swapped in by app.js when a poster fails to load.
func FallbackURL(title, size string) string {
	return placeholder(size, "444", title, 15)
}

func placeholder(size, bg, title string, n int) string {
	text := url.QueryEscape(truncate(title, n))
	text = strings.ReplaceAll(text, "+", "%20")
	return fmt.Sprintf("%s%s/%s/fff?text=%s", placeholderBase, size, bg, text)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Stars turns an IMDb rating out of ten into five stars: round(rating/2)
// filled. An unparseable rating ("N/A") shows five empty stars.
func Stars(rating string) string {
	filled := 0
	if v, err := strconv.ParseFloat(strings.TrimSpace(rating), 64); err == nil {
		filled = int(math.Round(v / 2))
	}
	filled = min(max(filled, 0), 5)
	return strings.Repeat("★", filled) + strings.Repeat("☆", 5-filled)
}

func IMDbURL(imdbID string) string {
	return "https://www.imdb.com/title/" + url.PathEscape(imdbID)
}
