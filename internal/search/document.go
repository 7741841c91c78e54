// Package search provides full-text search over the book catalog using Bleve.
package search

import "github.com/shelfwise/shelfwise-server/internal/domain"

// BookDocument is the indexed form of a catalog book. The slug is the document ID.
type BookDocument struct {
	Slug          string
	Title         string
	Author        string
	Description   string
	Genres        []string
	Rating        float64
	PublishedYear int
}

// NewBookDocument builds the document for a catalog book.
func NewBookDocument(b *domain.Book) *BookDocument {
	return &BookDocument{
		Slug:          b.Slug,
		Title:         b.Title,
		Author:        b.Author,
		Description:   b.Description,
		Genres:        b.Genres,
		Rating:        b.Rating(),
		PublishedYear: b.PublishedYear,
	}
}

// ToMap converts the document to the field names used by the mapping.
func (d *BookDocument) ToMap() map[string]any {
	m := map[string]any{
		"slug":   d.Slug,
		"title":  d.Title,
		"author": d.Author,
		"rating": d.Rating,
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if len(d.Genres) > 0 {
		m["genres"] = d.Genres
	}
	if d.PublishedYear > 0 {
		m["published_year"] = float64(d.PublishedYear)
	}
	return m
}
