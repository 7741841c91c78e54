package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/search"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns a page of the catalog in catalog order",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/search",
		Summary:     "Search books",
		Description: "Full-text search over title and author with an optional exact genre filter",
		Tags:        []string{"Books"},
	}, s.handleSearchBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{slug}",
		Summary:     "Get book",
		Description: "Returns a catalog book by slug",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "listGenres",
		Method:      http.MethodGet,
		Path:        "/api/v1/genres",
		Summary:     "List genres",
		Description: "Returns the distinct genre names in the catalog",
		Tags:        []string{"Books"},
	}, s.handleListGenres)
}

// === DTOs ===

// BookResponse contains catalog book data in API responses.
type BookResponse struct {
	Slug          string   `json:"slug" doc:"Book slug"`
	Title         string   `json:"title" doc:"Title"`
	Author        string   `json:"author" doc:"Author"`
	Cover         string   `json:"cover,omitempty" doc:"Cover image URL"`
	RatingAvg     *float64 `json:"rating_avg,omitempty" doc:"Average rating, 0-5; absent when unrated"`
	Genres        []string `json:"genres" doc:"Genres"`
	Description   string   `json:"description,omitempty" doc:"Description"`
	PublishedYear int      `json:"published_year,omitempty" doc:"Year of first publication"`
}

// ListBooksInput contains pagination parameters.
type ListBooksInput struct {
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Number of books to skip"`
	Limit  int `query:"limit" minimum:"0" maximum:"200" default:"50" doc:"Page size"`
}

// ListBooksResponse contains a page of books.
type ListBooksResponse struct {
	Books  []BookResponse `json:"books" doc:"Books in catalog order"`
	Total  int            `json:"total" doc:"Total books in the catalog"`
	Offset int            `json:"offset" doc:"Offset of this page"`
	Limit  int            `json:"limit" doc:"Page size"`
}

// ListBooksOutput wraps the list response for Huma.
type ListBooksOutput struct {
	Body ListBooksResponse
}

// GetBookInput contains parameters for getting a book.
type GetBookInput struct {
	Slug string `path:"slug" doc:"Book slug"`
}

// BookOutput wraps a book response for Huma.
type BookOutput struct {
	Body BookResponse
}

// SearchBooksInput contains search parameters.
type SearchBooksInput struct {
	Query  string `query:"q" doc:"Text matched against title and author"`
	Genre  string `query:"genre" doc:"Exact genre filter, case-insensitive"`
	Limit  int    `query:"limit" minimum:"0" maximum:"200" default:"20" doc:"Maximum hits"`
	Offset int    `query:"offset" minimum:"0" default:"0" doc:"Number of hits to skip"`
}

// SearchBooksOutput wraps search results for Huma.
type SearchBooksOutput struct {
	Body *search.Result
}

// GenresResponse lists genre names.
type GenresResponse struct {
	Genres []string `json:"genres" doc:"Genre names, sorted"`
}

// GenresOutput wraps the genres response for Huma.
type GenresOutput struct {
	Body GenresResponse
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
	page, err := s.services.Book.List(ctx, input.Offset, input.Limit)
	if err != nil {
		return nil, err
	}

	return &ListBooksOutput{Body: ListBooksResponse{
		Books:  mapBooks(page.Books),
		Total:  page.Total,
		Offset: page.Offset,
		Limit:  page.Limit,
	}}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookOutput, error) {
	book, err := s.services.Book.Get(ctx, input.Slug)
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: mapBook(*book)}, nil
}

func (s *Server) handleSearchBooks(ctx context.Context, input *SearchBooksInput) (*SearchBooksOutput, error) {
	result, err := s.services.Book.Search(ctx, input.Query, input.Genre, input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}
	if result.Hits == nil {
		result.Hits = []search.Hit{}
	}

	return &SearchBooksOutput{Body: result}, nil
}

func (s *Server) handleListGenres(ctx context.Context, _ *struct{}) (*GenresOutput, error) {
	genres, err := s.services.Book.Genres(ctx)
	if err != nil {
		return nil, err
	}
	if genres == nil {
		genres = []string{}
	}

	return &GenresOutput{Body: GenresResponse{Genres: genres}}, nil
}

// === Helpers ===

func mapBook(b domain.Book) BookResponse {
	genres := b.Genres
	if genres == nil {
		genres = []string{}
	}
	return BookResponse{
		Slug:          b.Slug,
		Title:         b.Title,
		Author:        b.Author,
		Cover:         b.Cover,
		RatingAvg:     b.RatingAvg,
		Genres:        genres,
		Description:   b.Description,
		PublishedYear: b.PublishedYear,
	}
}

func mapBooks(books []domain.Book) []BookResponse {
	resp := make([]BookResponse, len(books))
	for i, b := range books {
		resp[i] = mapBook(b)
	}
	return resp
}
