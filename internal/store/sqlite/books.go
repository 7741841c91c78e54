package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// bookColumns must match the scan order in scanBook.
const bookColumns = `slug, title, author, cover, rating_avg, description, published_year`

func scanBook(sc scanner) (*domain.Book, error) {
	var (
		b      domain.Book
		rating sql.NullFloat64
		year   sql.NullInt64
	)
	err := sc.Scan(&b.Slug, &b.Title, &b.Author, &b.Cover, &rating, &b.Description, &year)
	if err != nil {
		return nil, err
	}
	if rating.Valid {
		b.RatingAvg = domain.Rated(rating.Float64)
	}
	b.PublishedYear = int(year.Int64)
	b.Genres = []string{}
	return &b, nil
}

// UpsertResult counts what an UpsertBooks call changed.
type UpsertResult struct {
	Inserted int
	Updated  int
}

// UpsertBooks inserts new books at the end of the catalog order and updates
// existing ones in place, keeping their position. Each book's genres are
// replaced by the given list.
func (s *Store) UpsertBooks(ctx context.Context, books []domain.Book, now time.Time) (UpsertResult, error) {
	var res UpsertResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var next int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM books`).Scan(&next); err != nil {
		return res, fmt.Errorf("read catalog position: %w", err)
	}

	ts := formatTime(now)
	for _, b := range books {
		if b.Slug == "" {
			return res, fmt.Errorf("book %q has no slug", b.Title)
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE books SET title = ?, author = ?, cover = ?, rating_avg = ?,
				description = ?, published_year = ?, updated_at = ?
			WHERE slug = ?`,
			b.Title, b.Author, b.Cover, nullRating(b.RatingAvg),
			b.Description, nullYear(b.PublishedYear), ts, b.Slug)
		if err != nil {
			return res, fmt.Errorf("update book %s: %w", b.Slug, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			res.Updated++
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO books (slug, position, title, author, cover, rating_avg,
					description, published_year, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				b.Slug, next, b.Title, b.Author, b.Cover, nullRating(b.RatingAvg),
				b.Description, nullYear(b.PublishedYear), ts, ts)
			if err != nil {
				return res, fmt.Errorf("insert book %s: %w", b.Slug, err)
			}
			next++
			res.Inserted++
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM book_genres WHERE book_slug = ?`, b.Slug); err != nil {
			return res, fmt.Errorf("clear genres for %s: %w", b.Slug, err)
		}
		for i, g := range b.Genres {
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO book_genres (book_slug, genre, position) VALUES (?, ?, ?)`,
				b.Slug, g, i)
			if err != nil {
				return res, fmt.Errorf("insert genre for %s: %w", b.Slug, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit catalog: %w", err)
	}
	return res, nil
}

// GetBook retrieves a catalog book by slug.
// Returns store.ErrNotFound if the slug is unknown.
func (s *Store) GetBook(ctx context.Context, slug string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE slug = ?`, slug)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	genres, err := s.genresFor(ctx, []string{slug})
	if err != nil {
		return nil, err
	}
	if g, ok := genres[slug]; ok {
		b.Genres = g
	}
	return b, nil
}

// ListBooks returns a page of the catalog in catalog order.
func (s *Store) ListBooks(ctx context.Context, offset, limit int) ([]domain.Book, error) {
	return s.queryBooks(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY position ASC LIMIT ? OFFSET ?`, limit, offset)
}

// ListAllBooks returns the whole catalog in catalog order.
func (s *Store) ListAllBooks(ctx context.Context) ([]domain.Book, error) {
	return s.queryBooks(ctx, `SELECT `+bookColumns+` FROM books ORDER BY position ASC`)
}

// CountBooks returns the catalog size.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n)
	return n, err
}

// ListGenres returns the distinct genre names in the catalog, sorted.
func (s *Store) ListGenres(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT genre FROM book_genres ORDER BY genre ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	genres := []string{}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

func (s *Store) queryBooks(ctx context.Context, query string, args ...any) ([]domain.Book, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		books []domain.Book
		slugs []string
	)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *b)
		slugs = append(slugs, b.Slug)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return []domain.Book{}, nil
	}

	genres, err := s.genresFor(ctx, slugs)
	if err != nil {
		return nil, err
	}
	for i := range books {
		if g, ok := genres[books[i].Slug]; ok {
			books[i].Genres = g
		}
	}
	return books, nil
}

// genresFor loads the ordered genre lists for the given slugs.
func (s *Store) genresFor(ctx context.Context, slugs []string) (map[string][]string, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(slugs)), ",")
	args := make([]any, len(slugs))
	for i, slug := range slugs {
		args[i] = slug
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT book_slug, genre FROM book_genres WHERE book_slug IN (`+placeholders+`)
		ORDER BY book_slug, position ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query genres: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string, len(slugs))
	for rows.Next() {
		var slug, genre string
		if err := rows.Scan(&slug, &genre); err != nil {
			return nil, err
		}
		out[slug] = append(out[slug], genre)
	}
	return out, rows.Err()
}

func nullRating(r *float64) sql.NullFloat64 {
	if r == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *r, Valid: true}
}

func nullYear(y int) sql.NullInt64 {
	if y == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(y), Valid: true}
}
