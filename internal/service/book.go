package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/catalog"
	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/normalize"
	"github.com/shelfwise/shelfwise-server/internal/search"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// BookIndex is the full-text index kept in step with the catalog.
type BookIndex interface {
	IndexBooks(books []domain.Book) error
	Search(ctx context.Context, params search.Params) (*search.Result, error)
	DocumentCount() (uint64, error)
}

// Catalog page limits.
const (
	DefaultBookPageSize = 50
	MaxBookPageSize     = 200
)

// BookService reads and imports the book catalog.
type BookService struct {
	store  CatalogStore
	index  BookIndex
	logger *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(store CatalogStore, index BookIndex, logger *slog.Logger) *BookService {
	return &BookService{
		store:  store,
		index:  index,
		logger: logger,
	}
}

// BookPage is one page of the catalog in catalog order.
type BookPage struct {
	Books  []domain.Book `json:"books"`
	Total  int           `json:"total"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
}

// EnsureCatalog imports a catalog when the store holds none: the YAML file at
// path if set, otherwise the embedded default. When books already exist but
// the search index is empty (first start after a mapping change) the index is
// rebuilt from the store.
func (s *BookService) EnsureCatalog(ctx context.Context, path string) error {
	count, err := s.store.CountBooks(ctx)
	if err != nil {
		return fmt.Errorf("count books: %w", err)
	}

	if count > 0 {
		docs, err := s.index.DocumentCount()
		if err != nil {
			return fmt.Errorf("count indexed books: %w", err)
		}
		if docs == 0 {
			s.logger.Info("Search index empty, reindexing catalog", "books", count)
			return s.Reindex(ctx)
		}
		return nil
	}

	var books []domain.Book
	source := "embedded"
	if path != "" {
		source = path
		books, err = readCatalogFile(path)
	} else {
		books, err = catalog.Default()
	}
	if err != nil {
		return err
	}

	result, err := s.Import(ctx, books)
	if err != nil {
		return err
	}
	s.logger.Info("Catalog seeded", "source", source, "inserted", result.Inserted)
	return nil
}

func readCatalogFile(path string) ([]domain.Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return catalog.Decode(f)
}

// ImportResult reports what an import changed.
type ImportResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// Import upserts books into the catalog and indexes them. New books are
// appended to the catalog order; existing slugs keep their position.
func (s *BookService) Import(ctx context.Context, books []domain.Book) (*ImportResult, error) {
	if len(books) == 0 {
		return &ImportResult{}, nil
	}

	res, err := s.store.UpsertBooks(ctx, books, time.Now())
	if err != nil {
		return nil, fmt.Errorf("upsert books: %w", err)
	}

	if err := s.index.IndexBooks(books); err != nil {
		return nil, fmt.Errorf("index books: %w", err)
	}

	s.logger.Info("Catalog imported", "inserted", res.Inserted, "updated", res.Updated)
	return &ImportResult{Inserted: res.Inserted, Updated: res.Updated}, nil
}

// Reindex indexes every stored book.
func (s *BookService) Reindex(ctx context.Context) error {
	books, err := s.store.ListAllBooks(ctx)
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}
	if err := s.index.IndexBooks(books); err != nil {
		return fmt.Errorf("index books: %w", err)
	}
	s.logger.Info("Catalog reindexed", "books", len(books))
	return nil
}

// List returns a page of the catalog.
func (s *BookService) List(ctx context.Context, offset, limit int) (*BookPage, error) {
	if offset < 0 {
		return nil, domainerrors.Validation("offset must not be negative")
	}
	if limit <= 0 {
		limit = DefaultBookPageSize
	}
	limit = min(limit, MaxBookPageSize)

	books, err := s.store.ListBooks(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	total, err := s.store.CountBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}
	return &BookPage{Books: books, Total: total, Offset: offset, Limit: limit}, nil
}

// Get returns one book by slug.
func (s *BookService) Get(ctx context.Context, slug string) (*domain.Book, error) {
	if slug == "" {
		return nil, domainerrors.Validation("slug is required")
	}
	book, err := s.store.GetBook(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("book %q not found", slug)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// Search runs a full-text search. genre, when set, is normalised to the
// catalog's title-case form and matched exactly.
func (s *BookService) Search(ctx context.Context, q, genre string, limit, offset int) (*search.Result, error) {
	params := search.Params{
		Query:  q,
		Limit:  min(limit, MaxBookPageSize),
		Offset: max(offset, 0),
	}
	if g := normalize.GenreName(genre); g != "" {
		params.Genres = []string{g}
	}

	res, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return res, nil
}

// Genres returns the distinct genre names in the catalog, sorted.
func (s *BookService) Genres(ctx context.Context) ([]string, error) {
	genres, err := s.store.ListGenres(ctx)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	return genres, nil
}

// All returns the whole catalog in catalog order.
func (s *BookService) All(ctx context.Context) ([]domain.Book, error) {
	books, err := s.store.ListAllBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}
