// Package catalog reads and writes the YAML catalog format and carries the
// default catalog imported on first start.
package catalog

import (
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/normalize"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// File is the top-level document of a catalog file.
type File struct {
	Books []Entry `yaml:"books"`
}

// Entry is one book in a catalog file. A missing slug is derived from the title.
type Entry struct {
	Slug          string   `yaml:"slug,omitempty"`
	Title         string   `yaml:"title"`
	Author        string   `yaml:"author"`
	Cover         string   `yaml:"cover,omitempty"`
	Rating        *float64 `yaml:"rating,omitempty"`
	Genres        []string `yaml:"genres,omitempty"`
	Description   string   `yaml:"description,omitempty"`
	PublishedYear int      `yaml:"published_year,omitempty"`
}

// Default returns the embedded default catalog.
func Default() ([]domain.Book, error) {
	var f File
	if err := yaml.Unmarshal(defaultCatalog, &f); err != nil {
		return nil, fmt.Errorf("decode default catalog: %w", err)
	}
	return toBooks(f.Books)
}

// Decode reads a catalog file and returns its books in file order.
func Decode(r io.Reader) ([]domain.Book, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return []domain.Book{}, nil
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return toBooks(f.Books)
}

// Encode writes books as a catalog file.
func Encode(w io.Writer, books []domain.Book) error {
	f := File{Books: make([]Entry, 0, len(books))}
	for _, b := range books {
		f.Books = append(f.Books, Entry{
			Slug:          b.Slug,
			Title:         b.Title,
			Author:        b.Author,
			Cover:         b.Cover,
			Rating:        b.RatingAvg,
			Genres:        b.Genres,
			Description:   b.Description,
			PublishedYear: b.PublishedYear,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return enc.Close()
}

// toBooks validates entries and converts them to catalog books. Genre names
// are normalised and de-duplicated; slugs must be unique within the file.
func toBooks(entries []Entry) ([]domain.Book, error) {
	books := make([]domain.Book, 0, len(entries))
	seen := make(map[string]int, len(entries))

	for i, e := range entries {
		if e.Title == "" {
			return nil, fmt.Errorf("entry %d: title is required", i+1)
		}
		slug := e.Slug
		if slug == "" {
			slug = normalize.Slug(e.Title)
		}
		if slug == "" {
			return nil, fmt.Errorf("entry %d (%q): cannot derive a slug", i+1, e.Title)
		}
		if prev, dup := seen[slug]; dup {
			return nil, fmt.Errorf("entry %d: slug %q already used by entry %d", i+1, slug, prev)
		}
		seen[slug] = i + 1

		if e.Rating != nil && (*e.Rating < 0 || *e.Rating > 5) {
			return nil, fmt.Errorf("entry %d (%s): rating %.2f outside 0-5", i+1, slug, *e.Rating)
		}

		books = append(books, domain.Book{
			Slug:          slug,
			Title:         e.Title,
			Author:        e.Author,
			Cover:         e.Cover,
			RatingAvg:     e.Rating,
			Genres:        normalize.Genres(e.Genres, 0),
			Description:   e.Description,
			PublishedYear: e.PublishedYear,
		})
	}
	return books, nil
}
