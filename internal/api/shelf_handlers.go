package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

func (s *Server) registerShelfRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getMyShelves",
		Method:      http.MethodGet,
		Path:        "/api/v1/shelf",
		Summary:     "Get my shelves",
		Description: "Returns the four shelves of the current user. The first access of a new account starts empty.",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetShelves)

	huma.Register(s.api, huma.Operation{
		OperationID: "addBookToShelf",
		Method:      http.MethodPost,
		Path:        "/api/v1/shelf/{shelf}/books",
		Summary:     "Add book to shelf",
		Description: "Adds a catalog book to a shelf. Reading-status shelves are exclusive; favorites are independent. Adding twice is a no-op.",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAddToShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeBookFromShelf",
		Method:      http.MethodDelete,
		Path:        "/api/v1/shelf/{shelf}/books/{slug}",
		Summary:     "Remove book from shelf",
		Description: "Removes a book from one shelf. Removing an absent book is a no-op.",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRemoveFromShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "isBookInShelf",
		Method:      http.MethodGet,
		Path:        "/api/v1/shelf/{shelf}/books/{slug}",
		Summary:     "Check shelf membership",
		Description: "Reports whether a book is on the given shelf",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleIsInShelf)

	huma.Register(s.api, huma.Operation{
		OperationID: "moveBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/shelf/move",
		Summary:     "Move book between shelves",
		Description: "Moves a book from one shelf to another. A book not on the source shelf is left alone.",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMoveBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateReadingProgress",
		Method:      http.MethodPut,
		Path:        "/api/v1/shelf/books/{slug}/progress",
		Summary:     "Update reading progress",
		Description: "Sets progress, clamped to 0-100, on a currently reading book",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateProgress)

	huma.Register(s.api, huma.Operation{
		OperationID: "findBookOnShelves",
		Method:      http.MethodGet,
		Path:        "/api/v1/shelf/books/{slug}",
		Summary:     "Find book on shelves",
		Description: "Returns the first shelf holding the book, checking currentlyReading, nextUp, finished, then favorites",
		Tags:        []string{"Shelf"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleFindBook)
}

// === DTOs ===

// ShelfEntryResponse is a book on a shelf.
type ShelfEntryResponse struct {
	BookResponse
	AddedAt  time.Time  `json:"added_at" doc:"When the book was added"`
	MovedAt  *time.Time `json:"moved_at,omitempty" doc:"When the book was last moved or re-added"`
	Progress int        `json:"progress" doc:"Reading progress, 0-100 (currentlyReading only)"`
}

// ShelvesResponse contains all four shelves.
type ShelvesResponse struct {
	CurrentlyReading []ShelfEntryResponse `json:"currentlyReading" doc:"Books being read"`
	NextUp           []ShelfEntryResponse `json:"nextUp" doc:"Books queued next"`
	Finished         []ShelfEntryResponse `json:"finished" doc:"Books read"`
	Favorites        []ShelfEntryResponse `json:"favorites" doc:"Favorite books"`
	UpdatedAt        time.Time            `json:"updated_at" doc:"Last change"`
}

// ShelvesOutput wraps the shelves response for Huma.
type ShelvesOutput struct {
	Body ShelvesResponse
}

// AddToShelfRequest names the book to add.
type AddToShelfRequest struct {
	Slug string `json:"slug" doc:"Catalog book slug"`
}

// AddToShelfInput wraps the add request for Huma.
type AddToShelfInput struct {
	Shelf string `path:"shelf" doc:"Shelf: currentlyReading, nextUp, finished or favorites"`
	Body  AddToShelfRequest
}

// ShelfBookInput addresses a book on a shelf.
type ShelfBookInput struct {
	Shelf string `path:"shelf" doc:"Shelf: currentlyReading, nextUp, finished or favorites"`
	Slug  string `path:"slug" doc:"Book slug"`
}

// InShelfResponse reports shelf membership.
type InShelfResponse struct {
	InShelf bool `json:"in_shelf" doc:"Whether the book is on the shelf"`
}

// InShelfOutput wraps the membership response for Huma.
type InShelfOutput struct {
	Body InShelfResponse
}

// MoveBookRequest is the request body for moving a book.
type MoveBookRequest struct {
	Slug string `json:"slug" doc:"Book slug"`
	From string `json:"from" doc:"Source shelf"`
	To   string `json:"to" doc:"Destination shelf"`
}

// MoveBookInput wraps the move request for Huma.
type MoveBookInput struct {
	Body MoveBookRequest
}

// UpdateProgressRequest is the request body for a progress update.
type UpdateProgressRequest struct {
	Progress int `json:"progress" doc:"Progress percent; values outside 0-100 are clamped"`
}

// UpdateProgressInput wraps the progress request for Huma.
type UpdateProgressInput struct {
	Slug string `path:"slug" doc:"Book slug"`
	Body UpdateProgressRequest
}

// BookSlugInput addresses a book by slug.
type BookSlugInput struct {
	Slug string `path:"slug" doc:"Book slug"`
}

// FindBookResponse is the result of finding a book on any shelf.
type FindBookResponse struct {
	Found bool                `json:"found" doc:"Whether the book is on any shelf"`
	Shelf string              `json:"shelf,omitempty" doc:"First shelf holding the book"`
	Entry *ShelfEntryResponse `json:"entry,omitempty" doc:"The shelf entry"`
}

// FindBookOutput wraps the lookup response for Huma.
type FindBookOutput struct {
	Body FindBookResponse
}

// === Handlers ===

func (s *Server) handleGetShelves(ctx context.Context, _ *struct{}) (*ShelvesOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	state, err := s.services.Shelf.GetShelves(ctx, user)
	if err != nil {
		return nil, err
	}

	return &ShelvesOutput{Body: mapShelves(state)}, nil
}

func (s *Server) handleAddToShelf(ctx context.Context, input *AddToShelfInput) (*ShelvesOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	state, err := s.services.Shelf.AddToShelf(ctx, user, input.Body.Slug, input.Shelf)
	if err != nil {
		return nil, err
	}

	return &ShelvesOutput{Body: mapShelves(state)}, nil
}

func (s *Server) handleRemoveFromShelf(ctx context.Context, input *ShelfBookInput) (*ShelvesOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	state, err := s.services.Shelf.RemoveFromShelf(ctx, user, input.Slug, input.Shelf)
	if err != nil {
		return nil, err
	}

	return &ShelvesOutput{Body: mapShelves(state)}, nil
}

func (s *Server) handleIsInShelf(ctx context.Context, input *ShelfBookInput) (*InShelfOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	inShelf, err := s.services.Shelf.IsInShelf(ctx, user, input.Slug, input.Shelf)
	if err != nil {
		return nil, err
	}

	return &InShelfOutput{Body: InShelfResponse{InShelf: inShelf}}, nil
}

func (s *Server) handleMoveBook(ctx context.Context, input *MoveBookInput) (*ShelvesOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	state, err := s.services.Shelf.MoveBook(ctx, user, input.Body.Slug, input.Body.From, input.Body.To)
	if err != nil {
		return nil, err
	}

	return &ShelvesOutput{Body: mapShelves(state)}, nil
}

func (s *Server) handleUpdateProgress(ctx context.Context, input *UpdateProgressInput) (*ShelvesOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	state, err := s.services.Shelf.UpdateProgress(ctx, user, input.Slug, input.Body.Progress)
	if err != nil {
		return nil, err
	}

	return &ShelvesOutput{Body: mapShelves(state)}, nil
}

func (s *Server) handleFindBook(ctx context.Context, input *BookSlugInput) (*FindBookOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	lookup, err := s.services.Shelf.GetBookFromShelf(ctx, user, input.Slug)
	if err != nil {
		return nil, err
	}

	resp := FindBookResponse{Found: lookup.Found}
	if lookup.Found {
		entry := mapShelfEntry(*lookup.Entry)
		resp.Shelf = string(lookup.Shelf)
		resp.Entry = &entry
	}

	return &FindBookOutput{Body: resp}, nil
}

// === Helpers ===

func mapShelfEntry(e domain.ShelfEntry) ShelfEntryResponse {
	return ShelfEntryResponse{
		BookResponse: mapBook(e.Book),
		AddedAt:      e.AddedAt,
		MovedAt:      e.MovedAt,
		Progress:     e.Progress,
	}
}

func mapShelfEntries(entries []domain.ShelfEntry) []ShelfEntryResponse {
	resp := make([]ShelfEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = mapShelfEntry(e)
	}
	return resp
}

func mapShelves(state *domain.ShelfState) ShelvesResponse {
	return ShelvesResponse{
		CurrentlyReading: mapShelfEntries(state.CurrentlyReading),
		NextUp:           mapShelfEntries(state.NextUp),
		Finished:         mapShelfEntries(state.Finished),
		Favorites:        mapShelfEntries(state.Favorites),
		UpdatedAt:        state.UpdatedAt,
	}
}
