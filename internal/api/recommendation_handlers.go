package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerRecommendationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getRecommendations",
		Method:      http.MethodGet,
		Path:        "/api/v1/recommendations",
		Summary:     "Get recommendations",
		Description: "Returns up to 8 books ranked by rating, excluding shelved books when the catalog allows and " +
			"narrowed to preferred genres when any match. Anonymous callers get an empty list.",
		Tags:     []string{"Recommendations"},
		Security: []map[string][]string{{}, {"bearer": {}}},
	}, s.handleGetRecommendations)
}

// RecommendationsResponse contains ranked book suggestions.
type RecommendationsResponse struct {
	Books         []BookResponse `json:"books" doc:"Recommended books, best first"`
	Path          string         `json:"path,omitempty" doc:"How the pool was built: available, backfill or catalog"`
	GenreFiltered bool           `json:"genre_filtered" doc:"Whether preferred genres narrowed the list"`
}

// RecommendationsOutput wraps the recommendations response for Huma.
type RecommendationsOutput struct {
	Body RecommendationsResponse
}

func (s *Server) handleGetRecommendations(ctx context.Context, _ *struct{}) (*RecommendationsOutput, error) {
	user, err := s.OptionalUser(ctx)
	if err != nil {
		return nil, err
	}

	recs, err := s.services.Recommendation.Recommend(ctx, user)
	if err != nil {
		return nil, err
	}

	return &RecommendationsOutput{Body: RecommendationsResponse{
		Books:         mapBooks(recs.Books),
		Path:          string(recs.Path),
		GenreFiltered: recs.GenreFiltered,
	}}, nil
}
