package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerActivityRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listMyActivity",
		Method:      http.MethodGet,
		Path:        "/api/v1/activity",
		Summary:     "List my activity",
		Description: "Returns the current user's most recent activity, newest first",
		Tags:        []string{"Activity"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListActivity)
}

// ListActivityInput contains parameters for listing activity.
type ListActivityInput struct {
	Limit int `query:"limit" minimum:"0" maximum:"100" default:"20" doc:"Maximum entries to return"`
}

// ActivityResponse is one activity log entry.
type ActivityResponse struct {
	ID        string    `json:"id" doc:"Activity ID"`
	Action    string    `json:"action" doc:"Action: favorites.add or favorites.remove"`
	BookSlug  string    `json:"book_slug" doc:"Book slug"`
	BookTitle string    `json:"book_title" doc:"Book title at the time of the action"`
	CreatedAt time.Time `json:"created_at" doc:"When the action happened"`
}

// ListActivityResponse contains activity entries.
type ListActivityResponse struct {
	Activities []ActivityResponse `json:"activities" doc:"Activity entries, newest first"`
}

// ListActivityOutput wraps the activity response for Huma.
type ListActivityOutput struct {
	Body ListActivityResponse
}

func (s *Server) handleListActivity(ctx context.Context, input *ListActivityInput) (*ListActivityOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	activities, err := s.services.Activity.List(ctx, userID, input.Limit)
	if err != nil {
		return nil, err
	}

	resp := make([]ActivityResponse, len(activities))
	for i, a := range activities {
		resp[i] = ActivityResponse{
			ID:        a.ID,
			Action:    string(a.Action),
			BookSlug:  a.BookSlug,
			BookTitle: a.BookTitle,
			CreatedAt: a.CreatedAt,
		}
	}

	return &ListActivityOutput{Body: ListActivityResponse{Activities: resp}}, nil
}
