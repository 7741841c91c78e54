package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/normalize"
	"github.com/shelfwise/shelfwise-server/internal/store"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

// ProfileService manages user profiles.
type ProfileService struct {
	profiles  ProfileStore
	favorites FavoritesCounter
	validator *validation.Validator
	locks     *userLocks
	logger    *slog.Logger
	now       func() time.Time
}

// NewProfileService creates a new profile service.
func NewProfileService(profiles ProfileStore, favorites FavoritesCounter, validator *validation.Validator, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		profiles:  profiles,
		favorites: favorites,
		validator: validator,
		locks:     newUserLocks(),
		logger:    logger,
		now:       time.Now,
	}
}

// UpdateProfileRequest is a partial profile update. Nil fields are left
// alone; an empty string clears an optional field.
type UpdateProfileRequest struct {
	Name        *string   `json:"name,omitempty" validate:"omitempty,max=100"`
	Username    *string   `json:"username,omitempty" validate:"omitempty,username"`
	Bio         *string   `json:"bio,omitempty" validate:"omitempty,max=280"`
	AvatarURL   *string   `json:"avatar_url,omitempty" validate:"omitempty,url"`
	CoverURL    *string   `json:"cover_url,omitempty" validate:"omitempty,url"`
	DateOfBirth *string   `json:"date_of_birth,omitempty" validate:"omitempty,pastdate"`
	Gender      *string   `json:"gender,omitempty" validate:"omitempty,oneof=female male non_binary other prefer_not_to_say"`
	Phone       *string   `json:"phone,omitempty" validate:"omitempty,max=32"`
	Website     *string   `json:"website,omitempty" validate:"omitempty,url"`
	Twitter     *string   `json:"twitter,omitempty" validate:"omitempty,max=100"`
	Instagram   *string   `json:"instagram,omitempty" validate:"omitempty,max=100"`
	Goodreads   *string   `json:"goodreads,omitempty" validate:"omitempty,max=100"`
	Genres      *[]string `json:"genres,omitempty" validate:"omitempty,max=8,dive,max=50"`
}

// GetProfile returns the caller's full profile.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("profile not found")
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// GetPublicProfile returns the public view of the profile with username.
func (s *ProfileService) GetPublicProfile(ctx context.Context, username string) (*domain.UserProfile, error) {
	p, err := s.profiles.GetProfileByUsername(ctx, normalize.Username(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("user %q not found", username)
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p.PublicView(), nil
}

// UpdateProfile applies req to the caller's profile and recomputes completion.
// Username and phone must be unique. A username change is refused with
// RATE_LIMITED once three changes fall inside the rolling window.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*domain.UserProfile, error) {
	if req.Username != nil {
		username := normalize.Username(*req.Username)
		req.Username = &username
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	// The username quota check and the write must not interleave with
	// another update for the same user.
	unlock := s.locks.Lock(userID)
	defer unlock()

	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var usernameChangedAt *time.Time

	if req.Username != nil {
		username := normalize.Username(*req.Username)
		if username != "" && username != p.Username {
			if err := s.checkUsernameQuota(ctx, userID, now); err != nil {
				return nil, err
			}
			usernameChangedAt = &now
		}
		p.Username = username
	}

	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone != "" {
			var ok bool
			if phone, ok = normalize.Phone(phone); !ok {
				return nil, domainerrors.ValidationWithDetails("validation failed",
					map[string]string{"phone": "must be 7-15 digits with an optional leading '+'"})
			}
		}
		p.Phone = phone
	}

	if req.DateOfBirth != nil {
		if *req.DateOfBirth == "" {
			p.DateOfBirth = nil
		} else {
			// Format already checked by the pastdate rule.
			dob, _ := time.Parse(validation.DateLayout, *req.DateOfBirth)
			p.DateOfBirth = &dob
		}
	}

	if req.Genres != nil {
		p.Genres = normalize.Genres(*req.Genres, domain.MaxProfileGenres)
	}

	setString(&p.Name, req.Name)
	setString(&p.Bio, req.Bio)
	setString(&p.AvatarURL, req.AvatarURL)
	setString(&p.CoverURL, req.CoverURL)
	setString(&p.Gender, req.Gender)
	setString(&p.Socials.Website, req.Website)
	setString(&p.Socials.Twitter, req.Twitter)
	setString(&p.Socials.Instagram, req.Instagram)
	setString(&p.Socials.Goodreads, req.Goodreads)

	favorites, err := s.favorites.FavoritesCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count favorites: %w", err)
	}
	p.ProfileCompletion = p.Completion(favorites)
	p.UpdatedAt = now

	if err := s.profiles.UpdateProfile(ctx, p, usernameChangedAt); err != nil {
		if field := conflictField(err); field != "" {
			return nil, domainerrors.Conflict(field+" already in use").
				WithDetails(map[string]string{"field": field})
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("profile not found")
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.logger.Info("Profile updated",
		"user_id", userID,
		"username_changed", usernameChangedAt != nil,
		"completion", p.ProfileCompletion,
	)
	return p, nil
}

// checkUsernameQuota returns RATE_LIMITED with a retry_after detail when the
// user has used up the username changes in the current window.
func (s *ProfileService) checkUsernameQuota(ctx context.Context, userID string, now time.Time) error {
	changes, err := s.profiles.ListUsernameChangesSince(ctx, userID, now.Add(-domain.UsernameChangeWindow))
	if err != nil {
		return fmt.Errorf("list username changes: %w", err)
	}
	retryAt := domain.UsernameChangeRetryAt(changes, now)
	if retryAt.IsZero() {
		return nil
	}
	s.logger.Info("Username change refused", "user_id", userID, "retry_after", retryAt)
	return domainerrors.RateLimited(fmt.Sprintf("username can be changed %d times every %d days",
		domain.UsernameChangeLimit, int(domain.UsernameChangeWindow.Hours()/24))).
		WithDetails(map[string]string{"retry_after": retryAt.UTC().Format(time.RFC3339)})
}

// RefreshCompletion recomputes completion for a new favorites count.
func (s *ProfileService) RefreshCompletion(ctx context.Context, userID string, favorites int) error {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get profile: %w", err)
	}

	completion := p.Completion(favorites)
	if completion == p.ProfileCompletion {
		return nil
	}
	if err := s.profiles.UpdateProfileCompletion(ctx, userID, completion, s.now()); err != nil {
		return fmt.Errorf("update completion: %w", err)
	}
	s.logger.Debug("Profile completion refreshed", "user_id", userID, "completion", completion)
	return nil
}

// PreferredGenres returns the user's preferred genres. A user without a
// profile has none.
func (s *ProfileService) PreferredGenres(ctx context.Context, userID string) ([]string, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p.Genres, nil
}

// conflictField names the profile field behind a uniqueness violation.
// Both sentinels share a status code, so they are told apart by identity.
func conflictField(err error) string {
	var se *store.Error
	if !errors.As(err, &se) {
		return ""
	}
	switch se {
	case store.ErrUsernameTaken:
		return "username"
	case store.ErrPhoneTaken:
		return "phone"
	}
	return ""
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
