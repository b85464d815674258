package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPosterURL(t *testing.T) {
	tests := []struct {
		name   string
		poster string
		title  string
		want   string
	}{
		{"real poster", "https://img/x.jpg", "X", "https://img/x.jpg"},
		{"N/A", "N/A", "Inception", "https://via.placeholder.com/80x120/333/fff?text=Inception"},
		{"empty", "", "A & B", "https://via.placeholder.com/80x120/333/fff?text=A%20%26%20B"},
		{"long title", "", "The Lord of the Rings: The Return of the King",
			"https://via.placeholder.com/80x120/333/fff?text=The%20Lord%20of%20the%20Ring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PosterURL(tt.poster, tt.title, ListPosterSize))
		})
	}
}

func TestFallbackURL(t *testing.T) {
	assert.Equal(t,
		"https://via.placeholder.com/300x450/444/fff?text=Spider-Man%3A%20No%20",
		FallbackURL("Spider-Man: No Way Home", FeaturedPosterSize))
}

func TestStars(t *testing.T) {
	tests := map[string]string{
		"8.8":  "★★★★☆",
		"9.3":  "★★★★★",
		"10":   "★★★★★",
		"5.0":  "★★★☆☆",
		"0.4":  "☆☆☆☆☆",
		"N/A":  "☆☆☆☆☆",
		"":     "☆☆☆☆☆",
		"12":   "★★★★★",
		"-3.0": "☆☆☆☆☆",
	}
	for rating, want := range tests {
		assert.Equal(t, want, Stars(rating), "rating %q", rating)
	}
}

func TestIMDbURL(t *testing.T) {
	assert.Equal(t, "https://www.imdb.com/title/tt1375666", IMDbURL("tt1375666"))
}
