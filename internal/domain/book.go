// Package domain contains the core business entities and shelf rules for the Shelfwise server.
package domain

import "slices"

// DefaultRating is shown for books without a rating when they are surfaced as suggestions.
const DefaultRating = 4.0

// DefaultGenre is shown for books without genres when they are surfaced as suggestions.
const DefaultGenre = "Fiction"

// Book is a catalog entry. The catalog owns books; shelves only keep snapshots of them.
type Book struct {
	Slug          string   `json:"slug"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Cover         string   `json:"cover,omitempty"`
	RatingAvg     *float64 `json:"rating_avg,omitempty"` // nil = not rated
	Genres        []string `json:"genres"`
	Description   string   `json:"description,omitempty"`
	PublishedYear int      `json:"published_year,omitempty"`
}

// Rating returns the average rating, treating a missing rating as 0.
func (b Book) Rating() float64 {
	if b.RatingAvg == nil {
		return 0
	}
	return *b.RatingAvg
}

// HasGenre reports whether the book is tagged with any of the given genres.
func (b Book) HasGenre(genres ...string) bool {
	for _, g := range genres {
		if slices.Contains(b.Genres, g) {
			return true
		}
	}
	return false
}

// WithDefaults returns a copy with a missing rating set to DefaultRating
// and empty genres set to DefaultGenre.
func (b Book) WithDefaults() Book {
	if b.RatingAvg == nil {
		r := DefaultRating
		b.RatingAvg = &r
	}
	if len(b.Genres) == 0 {
		b.Genres = []string{DefaultGenre}
	} else {
		b.Genres = slices.Clone(b.Genres)
	}
	return b
}

// Rated returns a pointer to v, for building rated books.
func Rated(v float64) *float64 {
	return &v
}
