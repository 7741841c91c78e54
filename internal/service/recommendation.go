package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/metrics"
	"github.com/shelfwise/shelfwise-server/internal/recommend"
)

// Recommendations is a ranked list plus how it was produced.
type Recommendations struct {
	Books         []domain.Book  `json:"books"`
	Path          recommend.Path `json:"path,omitempty"`
	GenreFiltered bool           `json:"genre_filtered"`
}

// RecommendationService gathers the catalog, shelf state and genre
// preferences for the recommendation engine.
type RecommendationService struct {
	catalog CatalogReader
	shelves *ShelfService
	genres  GenreSource
	logger  *slog.Logger
}

// NewRecommendationService creates a new recommendation service.
func NewRecommendationService(catalog CatalogReader, shelves *ShelfService, genres GenreSource, logger *slog.Logger) *RecommendationService {
	return &RecommendationService{
		catalog: catalog,
		shelves: shelves,
		genres:  genres,
		logger:  logger,
	}
}

// Recommend returns up to eight books for user. Anonymous callers get an
// empty list.
func (s *RecommendationService) Recommend(ctx context.Context, user *domain.User) (*Recommendations, error) {
	if user == nil {
		return &Recommendations{Books: []domain.Book{}}, nil
	}

	books, err := s.catalog.ListAllBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	state, err := s.shelves.GetShelves(ctx, user)
	if err != nil {
		return nil, err
	}

	var genres []string
	if s.genres != nil {
		genres, err = s.genres.PreferredGenres(ctx, user.ID)
		if err != nil {
			// Preferences only narrow the list; rank without them.
			s.logger.Warn("Failed to load preferred genres", "user_id", user.ID, "error", err)
			genres = nil
		}
	}

	res := recommend.Recommend(books, state, genres)
	metrics.RecordRecommendation(string(res.Path), res.GenreFiltered)

	out := res.Books
	if out == nil {
		out = []domain.Book{}
	}
	return &Recommendations{Books: out, Path: res.Path, GenreFiltered: res.GenreFiltered}, nil
}
