package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

func (s *Server) registerProfileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getMyProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/profile",
		Summary:     "Get my profile",
		Description: "Returns the authenticated user's full profile with its completion score",
		Tags:        []string{"Profile"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetMyProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateMyProfile",
		Method:      http.MethodPatch,
		Path:        "/api/v1/profile",
		Summary:     "Update my profile",
		Description: "Partially updates the profile. Omitted fields are unchanged and an empty string clears a field. " +
			"The username can change 3 times in 15 days.",
		Tags:     []string{"Profile"},
		Security: []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateMyProfile)
}

// === DTOs ===

// SocialsResponse contains social handles.
type SocialsResponse struct {
	Website   string `json:"website,omitempty" doc:"Personal website URL"`
	Twitter   string `json:"twitter,omitempty" doc:"Twitter handle"`
	Instagram string `json:"instagram,omitempty" doc:"Instagram handle"`
	Goodreads string `json:"goodreads,omitempty" doc:"Goodreads handle"`
}

// ProfileResponse contains profile data in API responses.
type ProfileResponse struct {
	UserID            string          `json:"user_id" doc:"User ID"`
	Name              string          `json:"name" doc:"Display name"`
	Username          string          `json:"username,omitempty" doc:"Unique username"`
	Email             string          `json:"email,omitempty" doc:"Email, only on the owner's view"`
	Bio               string          `json:"bio,omitempty" doc:"Short bio"`
	AvatarURL         string          `json:"avatar_url,omitempty" doc:"Avatar image URL"`
	CoverURL          string          `json:"cover_url,omitempty" doc:"Cover image URL"`
	DateOfBirth       string          `json:"date_of_birth,omitempty" doc:"Date of birth (YYYY-MM-DD), only on the owner's view"`
	Gender            string          `json:"gender,omitempty" doc:"Gender"`
	Phone             string          `json:"phone,omitempty" doc:"Phone number, only on the owner's view"`
	Socials           SocialsResponse `json:"socials" doc:"Social handles"`
	Genres            []string        `json:"genres" doc:"Preferred genres"`
	ProfileCompletion int             `json:"profile_completion" doc:"Profile completion, 0-100"`
	UpdatedAt         time.Time       `json:"updated_at" doc:"Last update time"`
}

// ProfileOutput wraps the profile response for Huma.
type ProfileOutput struct {
	Body ProfileResponse
}

// UpdateProfileRequest is the request body for a partial profile update.
type UpdateProfileRequest struct {
	Name        *string   `json:"name,omitempty" doc:"Display name"`
	Username    *string   `json:"username,omitempty" doc:"3-30 characters of a-z, 0-9, '_' and '.'"`
	Bio         *string   `json:"bio,omitempty" doc:"Up to 280 characters"`
	AvatarURL   *string   `json:"avatar_url,omitempty" doc:"Avatar image URL"`
	CoverURL    *string   `json:"cover_url,omitempty" doc:"Cover image URL"`
	DateOfBirth *string   `json:"date_of_birth,omitempty" doc:"YYYY-MM-DD, in the past"`
	Gender      *string   `json:"gender,omitempty" doc:"female, male, non_binary, other or prefer_not_to_say"`
	Phone       *string   `json:"phone,omitempty" doc:"Phone number, 7-15 digits"`
	Website     *string   `json:"website,omitempty" doc:"Personal website URL"`
	Twitter     *string   `json:"twitter,omitempty" doc:"Twitter handle"`
	Instagram   *string   `json:"instagram,omitempty" doc:"Instagram handle"`
	Goodreads   *string   `json:"goodreads,omitempty" doc:"Goodreads handle"`
	Genres      *[]string `json:"genres,omitempty" doc:"Up to 8 preferred genres"`
}

// UpdateProfileInput wraps the update profile request for Huma.
type UpdateProfileInput struct {
	Body UpdateProfileRequest
}

// === Handlers ===

func (s *Server) handleGetMyProfile(ctx context.Context, _ *struct{}) (*ProfileOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := s.services.Profile.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ProfileOutput{Body: mapProfileResponse(profile)}, nil
}

func (s *Server) handleUpdateMyProfile(ctx context.Context, input *UpdateProfileInput) (*ProfileOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	b := input.Body
	profile, err := s.services.Profile.UpdateProfile(ctx, userID, service.UpdateProfileRequest{
		Name:        b.Name,
		Username:    b.Username,
		Bio:         b.Bio,
		AvatarURL:   b.AvatarURL,
		CoverURL:    b.CoverURL,
		DateOfBirth: b.DateOfBirth,
		Gender:      b.Gender,
		Phone:       b.Phone,
		Website:     b.Website,
		Twitter:     b.Twitter,
		Instagram:   b.Instagram,
		Goodreads:   b.Goodreads,
		Genres:      b.Genres,
	})
	if err != nil {
		return nil, err
	}

	return &ProfileOutput{Body: mapProfileResponse(profile)}, nil
}

// === Helpers ===

func mapProfileResponse(p *domain.UserProfile) ProfileResponse {
	resp := ProfileResponse{
		UserID:    p.UserID,
		Name:      p.Name,
		Username:  p.Username,
		Email:     p.Email,
		Bio:       p.Bio,
		AvatarURL: p.AvatarURL,
		CoverURL:  p.CoverURL,
		Gender:    p.Gender,
		Phone:     p.Phone,
		Socials: SocialsResponse{
			Website:   p.Socials.Website,
			Twitter:   p.Socials.Twitter,
			Instagram: p.Socials.Instagram,
			Goodreads: p.Socials.Goodreads,
		},
		Genres:            p.Genres,
		ProfileCompletion: p.ProfileCompletion,
		UpdatedAt:         p.UpdatedAt,
	}
	if p.DateOfBirth != nil {
		resp.DateOfBirth = p.DateOfBirth.Format(validation.DateLayout)
	}
	if resp.Genres == nil {
		resp.Genres = []string{}
	}
	return resp
}
