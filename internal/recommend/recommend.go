// Package recommend ranks catalog books for a reader.
//
// Recommend is a pure function: the same catalog, shelf state and genre
// preferences always give the same result, so callers may recompute it on
// every request.
package recommend

import (
	"cmp"
	"slices"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

// Limit is the maximum number of recommendations returned.
const Limit = 8

// Path names the pool-building step that produced a result.
type Path string

const (
	// PathAvailable means enough unowned books existed.
	PathAvailable Path = "available"
	// PathBackfill means the pool was topped up with the reader's own shelf books.
	PathBackfill Path = "backfill"
	// PathCatalog means the whole catalog was used, owned books included.
	PathCatalog Path = "catalog"
)

// Result is a ranked recommendation list.
type Result struct {
	Books         []domain.Book
	Path          Path
	GenreFiltered bool
}

// Recommend returns up to Limit books from catalog for a reader with the
// given shelf state and preferred genres. Catalog order breaks rating ties.
func Recommend(catalog []domain.Book, state *domain.ShelfState, genres []string) Result {
	owned := map[string]struct{}{}
	if state != nil {
		owned = state.OwnedSlugs()
	}

	pool := make([]domain.Book, 0, len(catalog))
	for _, b := range catalog {
		if _, ok := owned[b.Slug]; !ok {
			pool = append(pool, b)
		}
	}

	path := PathAvailable
	if len(pool) < Limit && state != nil {
		path = PathBackfill
		pool = append(pool, backfill(state, Limit-len(pool))...)
	}

	if len(pool) < Limit {
		path = PathCatalog
		pool = make([]domain.Book, 0, len(catalog))
		for _, b := range catalog {
			pool = append(pool, b.WithDefaults())
		}
	}

	if len(genres) > 0 {
		var matched []domain.Book
		for _, b := range pool {
			if b.HasGenre(genres...) {
				matched = append(matched, b)
			}
		}
		if len(matched) > 0 {
			return Result{Books: top(matched), Path: path, GenreFiltered: true}
		}
	}

	return Result{Books: top(pool), Path: path}
}

// backfill returns up to n of the reader's shelf books, best rated first,
// with display defaults applied.
func backfill(state *domain.ShelfState, n int) []domain.Book {
	candidates := state.Books()
	sortByRating(candidates)
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	out := make([]domain.Book, 0, len(candidates))
	for _, b := range candidates {
		out = append(out, b.WithDefaults())
	}
	return out
}

func top(books []domain.Book) []domain.Book {
	sorted := slices.Clone(books)
	sortByRating(sorted)
	if len(sorted) > Limit {
		sorted = sorted[:Limit]
	}
	return sorted
}

func sortByRating(books []domain.Book) {
	slices.SortStableFunc(books, func(a, b domain.Book) int {
		return cmp.Compare(b.Rating(), a.Rating())
	})
}
