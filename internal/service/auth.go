package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	"github.com/shelfwise/shelfwise-server/internal/domain"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/id"
	"github.com/shelfwise/shelfwise-server/internal/normalize"
	"github.com/shelfwise/shelfwise-server/internal/ratelimit"
	"github.com/shelfwise/shelfwise-server/internal/store"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

// AuthService handles registration, login and token verification.
// Session management is delegated to SessionService.
type AuthService struct {
	users          UserStore
	profiles       ProfileStore
	tokenService   *auth.TokenService
	sessionService *SessionService
	loginLimiter   *ratelimit.KeyedRateLimiter
	validator      *validation.Validator
	logger         *slog.Logger
}

// NewAuthService creates a new authentication service. A nil loginLimiter
// disables login rate limiting.
func NewAuthService(
	users UserStore,
	profiles ProfileStore,
	tokenService *auth.TokenService,
	sessionService *SessionService,
	loginLimiter *ratelimit.KeyedRateLimiter,
	validator *validation.Validator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:          users,
		profiles:       profiles,
		tokenService:   tokenService,
		sessionService: sessionService,
		loginLimiter:   loginLimiter,
		validator:      validator,
		logger:         logger,
	}
}

// RegisterRequest contains the data for a new account.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name" validate:"required,max=100"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse contains authentication tokens and user data.
type AuthResponse struct {
	User *domain.User `json:"user"`
	SessionResponse
}

// Register creates an account flagged as new, its default profile, and a
// first session.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest, client ClientInfo) (*AuthResponse, error) {
	req.Email = normalize.Email(req.Email)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		Syncable:     domain.Syncable{ID: userID},
		Email:        req.Email,
		PasswordHash: passwordHash,
		DisplayName:  req.DisplayName,
		IsNew:        true,
		LastLoginAt:  now,
	}
	user.InitTimestamps()

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	profile := domain.NewUserProfile(user.ID, user.DisplayName, user.Email)
	if err := s.profiles.CreateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	sessionResp, err := s.sessionService.CreateSession(ctx, user, client)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("User registered", "user_id", user.ID, "email", user.Email)

	return &AuthResponse{User: user, SessionResponse: *sessionResp}, nil
}

// Login authenticates a user and creates a new session. Attempts are rate
// limited per client IP.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, client ClientInfo) (*AuthResponse, error) {
	if s.loginLimiter != nil && client.IPAddress != "" && !s.loginLimiter.Allow(client.IPAddress) {
		s.logger.Warn("Login rate limit exceeded", "ip", client.IPAddress)
		return nil, domainerrors.RateLimited("too many login attempts, try again later")
	}

	req.Email = normalize.Email(req.Email)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Don't leak whether the email exists
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	user.LastLoginAt = time.Now()
	user.Touch()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		// Log but don't fail login
		s.logger.Warn("Failed to update last login time", "user_id", user.ID, "error", err)
	}

	sessionResp, err := s.sessionService.CreateSession(ctx, user, client)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("User logged in", "user_id", user.ID)

	return &AuthResponse{User: user, SessionResponse: *sessionResp}, nil
}

// RefreshTokens issues a new token pair for a refresh token.
// The old refresh token is invalidated (token rotation).
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string, client ClientInfo) (*AuthResponse, error) {
	if refreshToken == "" {
		return nil, domainerrors.Validation("refresh_token is required")
	}
	sessionResp, user, err := s.sessionService.RefreshSession(ctx, refreshToken, client)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: user, SessionResponse: *sessionResp}, nil
}

// Logout revokes the session that owns refreshToken.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return domainerrors.Validation("refresh_token is required")
	}
	return s.sessionService.RevokeRefreshToken(ctx, refreshToken)
}

// VerifyAccessToken validates a token and returns the associated user.
// Used by authentication middleware.
func (s *AuthService) VerifyAccessToken(ctx context.Context, tokenString string) (*domain.User, *auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid token: %w", err)
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, errors.New("user not found")
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	return user, claims, nil
}

// GetUser returns a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// MarkUserAsSettled clears the new-account flag. Calling it again is harmless.
func (s *AuthService) MarkUserAsSettled(ctx context.Context, userID string) error {
	if err := s.users.MarkUserSettled(ctx, userID, time.Now()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("user not found")
		}
		return fmt.Errorf("mark user settled: %w", err)
	}
	s.logger.Info("User settled", "user_id", userID)
	return nil
}
