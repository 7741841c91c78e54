package domain

import (
	"fmt"
	"slices"
	"time"
)

// ShelfType identifies one of the four personal shelves.
type ShelfType string

const (
	// ShelfCurrentlyReading holds books being read, with progress.
	ShelfCurrentlyReading ShelfType = "currentlyReading"
	// ShelfNextUp holds books queued for reading.
	ShelfNextUp ShelfType = "nextUp"
	// ShelfFinished holds books the user has read.
	ShelfFinished ShelfType = "finished"
	// ShelfFavorites holds favorite books. It is orthogonal to reading status.
	ShelfFavorites ShelfType = "favorites"
)

// ShelfTypes lists every shelf in lookup order.
var ShelfTypes = []ShelfType{ShelfCurrentlyReading, ShelfNextUp, ShelfFinished, ShelfFavorites}

// readingStatusShelves are mutually exclusive: a slug sits in at most one of them.
var readingStatusShelves = []ShelfType{ShelfCurrentlyReading, ShelfNextUp, ShelfFinished}

// ErrUnknownShelfType is returned when a string does not name one of the four shelves.
type ErrUnknownShelfType struct {
	Value string
}

func (e *ErrUnknownShelfType) Error() string {
	return fmt.Sprintf("unknown shelf type %q", e.Value)
}

// ParseShelfType converts a string to a ShelfType.
func ParseShelfType(s string) (ShelfType, error) {
	t := ShelfType(s)
	if !t.Valid() {
		return "", &ErrUnknownShelfType{Value: s}
	}
	return t, nil
}

// Valid reports whether t is one of the four shelves.
func (t ShelfType) Valid() bool {
	return slices.Contains(ShelfTypes, t)
}

// IsReadingStatus reports whether t is currentlyReading, nextUp or finished.
func (t ShelfType) IsReadingStatus() bool {
	return slices.Contains(readingStatusShelves, t)
}

// ShelfEntry is a book snapshot placed on a shelf.
type ShelfEntry struct {
	Book
	AddedAt  time.Time  `json:"added_at"`
	MovedAt  *time.Time `json:"moved_at,omitempty"`
	Progress int        `json:"progress,omitempty"` // currentlyReading only, 0-100
}

// ShelfState is the per-user aggregate of the four shelves.
type ShelfState struct {
	CurrentlyReading []ShelfEntry `json:"currentlyReading"`
	NextUp           []ShelfEntry `json:"nextUp"`
	Finished         []ShelfEntry `json:"finished"`
	Favorites        []ShelfEntry `json:"favorites"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// NewShelfState returns a state with four empty lists.
func NewShelfState(now time.Time) *ShelfState {
	s := &ShelfState{CreatedAt: now, UpdatedAt: now}
	s.Normalize()
	return s
}

// Normalize replaces nil lists with empty ones.
func (s *ShelfState) Normalize() {
	for _, t := range ShelfTypes {
		if l := s.list(t); *l == nil {
			*l = []ShelfEntry{}
		}
	}
}

// Entries returns the entries on shelf t. It returns nil for an unknown shelf.
func (s *ShelfState) Entries(t ShelfType) []ShelfEntry {
	l := s.list(t)
	if l == nil {
		return nil
	}
	return *l
}

func (s *ShelfState) list(t ShelfType) *[]ShelfEntry {
	switch t {
	case ShelfCurrentlyReading:
		return &s.CurrentlyReading
	case ShelfNextUp:
		return &s.NextUp
	case ShelfFinished:
		return &s.Finished
	case ShelfFavorites:
		return &s.Favorites
	default:
		return nil
	}
}

func indexOf(entries []ShelfEntry, slug string) int {
	return slices.IndexFunc(entries, func(e ShelfEntry) bool { return e.Slug == slug })
}

// IsInShelf reports whether slug is on shelf t.
func (s *ShelfState) IsInShelf(slug string, t ShelfType) bool {
	return indexOf(s.Entries(t), slug) >= 0
}

// Find returns the first entry for slug, searching shelves in ShelfTypes order.
func (s *ShelfState) Find(slug string) (*ShelfEntry, ShelfType, bool) {
	for _, t := range ShelfTypes {
		entries := s.Entries(t)
		if i := indexOf(entries, slug); i >= 0 {
			e := entries[i]
			return &e, t, true
		}
	}
	return nil, "", false
}

// Add places book on shelf t and reports whether the state changed.
//
// Favorites is append-if-absent. A reading-status shelf first drops the slug
// from the other two reading-status shelves, then appends the book or
// refreshes the timestamp of its existing entry.
func (s *ShelfState) Add(book Book, t ShelfType, now time.Time) (bool, error) {
	if !t.Valid() {
		return false, &ErrUnknownShelfType{Value: string(t)}
	}

	if t == ShelfFavorites {
		if s.IsInShelf(book.Slug, t) {
			return false, nil
		}
		s.Favorites = append(s.Favorites, ShelfEntry{Book: book, AddedAt: now})
		s.UpdatedAt = now
		return true, nil
	}

	s.dropFromOtherReadingShelves(book.Slug, t)

	l := s.list(t)
	if i := indexOf(*l, book.Slug); i >= 0 {
		(*l)[i].Book = book
		(*l)[i].AddedAt = now
	} else {
		*l = append(*l, ShelfEntry{Book: book, AddedAt: now})
	}
	s.UpdatedAt = now
	return true, nil
}

// Remove deletes slug from shelf t only. It reports whether an entry was removed.
func (s *ShelfState) Remove(slug string, t ShelfType, now time.Time) (bool, error) {
	l := s.list(t)
	if l == nil {
		return false, &ErrUnknownShelfType{Value: string(t)}
	}
	i := indexOf(*l, slug)
	if i < 0 {
		return false, nil
	}
	*l = slices.Delete(*l, i, i+1)
	s.UpdatedAt = now
	return true, nil
}

// Move relocates slug from one shelf to another and reports whether anything moved.
// A slug absent from the source shelf is a no-op. A reading-status destination
// keeps the exclusivity rule that Add enforces.
func (s *ShelfState) Move(slug string, from, to ShelfType, now time.Time) (bool, error) {
	if !from.Valid() {
		return false, &ErrUnknownShelfType{Value: string(from)}
	}
	if !to.Valid() {
		return false, &ErrUnknownShelfType{Value: string(to)}
	}
	if from == to {
		return false, nil
	}

	src := s.list(from)
	i := indexOf(*src, slug)
	if i < 0 {
		return false, nil
	}
	entry := (*src)[i]
	*src = slices.Delete(*src, i, i+1)

	if to.IsReadingStatus() {
		s.dropFromOtherReadingShelves(slug, to)
	}

	entry.MovedAt = &now
	if to != ShelfCurrentlyReading {
		entry.Progress = 0
	}

	dst := s.list(to)
	if j := indexOf(*dst, slug); j >= 0 {
		(*dst)[j].MovedAt = &now
	} else {
		*dst = append(*dst, entry)
	}
	s.UpdatedAt = now
	return true, nil
}

// UpdateProgress sets progress on a currentlyReading entry, clamped to [0,100].
// It reports whether the entry was found.
func (s *ShelfState) UpdateProgress(slug string, progress int, now time.Time) bool {
	i := indexOf(s.CurrentlyReading, slug)
	if i < 0 {
		return false
	}
	s.CurrentlyReading[i].Progress = min(max(progress, 0), 100)
	s.UpdatedAt = now
	return true
}

// OwnedSlugs returns every slug on any shelf.
func (s *ShelfState) OwnedSlugs() map[string]struct{} {
	owned := make(map[string]struct{})
	for _, t := range ShelfTypes {
		for _, e := range s.Entries(t) {
			owned[e.Slug] = struct{}{}
		}
	}
	return owned
}

// Books returns the distinct books on the shelves, first occurrence wins,
// in ShelfTypes order.
func (s *ShelfState) Books() []Book {
	seen := make(map[string]struct{})
	var books []Book
	for _, t := range ShelfTypes {
		for _, e := range s.Entries(t) {
			if _, ok := seen[e.Slug]; ok {
				continue
			}
			seen[e.Slug] = struct{}{}
			books = append(books, e.Book)
		}
	}
	return books
}

func (s *ShelfState) dropFromOtherReadingShelves(slug string, keep ShelfType) {
	for _, t := range readingStatusShelves {
		if t == keep {
			continue
		}
		l := s.list(t)
		*l = slices.DeleteFunc(*l, func(e ShelfEntry) bool { return e.Slug == slug })
	}
}
