package model

// Movie is one item of a free-text search. It is ephemeral: the next search
// replaces the whole list.
type Movie struct {
	IMDbID string `json:"imdbId"`
	Title  string `json:"title"`
	Year   string `json:"year"`
	Poster string `json:"poster"` // may be "" or "N/A"
}

// MovieDetail is the exact-title lookup record used by the featured list.
type MovieDetail struct {
	Movie
	Genre      string `json:"genre"`
	IMDbRating string `json:"imdbRating"` // e.g. "8.8", or "N/A"
}
