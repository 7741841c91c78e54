package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me",
		Summary:     "Get current user",
		Description: "Returns the authenticated user's account, including whether it is still new",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCurrentUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUserProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{username}/profile",
		Summary:     "Get public profile",
		Description: "Returns the public view of a user's profile. Email, phone and date of birth are omitted.",
		Tags:        []string{"Users"},
	}, s.handleGetUserProfile)
}

// UserOutput wraps the user response for Huma.
type UserOutput struct {
	Body UserResponse
}

// GetUserProfileInput contains parameters for a public profile lookup.
type GetUserProfileInput struct {
	Username string `path:"username" doc:"Username, case-insensitive"`
}

func (s *Server) handleGetCurrentUser(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUserResponse(user)}, nil
}

func (s *Server) handleGetUserProfile(ctx context.Context, input *GetUserProfileInput) (*ProfileOutput, error) {
	profile, err := s.services.Profile.GetPublicProfile(ctx, input.Username)
	if err != nil {
		return nil, err
	}

	return &ProfileOutput{Body: mapProfileResponse(profile)}, nil
}
