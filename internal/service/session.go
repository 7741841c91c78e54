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
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// SessionResponse carries a freshly issued token pair.
type SessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // access token lifetime in seconds
	SessionID    string `json:"session_id"`
}

// ClientInfo describes where a session was created from.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// SessionService handles session lifecycle and refresh-token rotation.
type SessionService struct {
	sessions     SessionStore
	users        UserStore
	tokenService *auth.TokenService
	logger       *slog.Logger
}

// NewSessionService creates a new session management service.
func NewSessionService(
	sessions SessionStore,
	users UserStore,
	tokenService *auth.TokenService,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		sessions:     sessions,
		users:        users,
		tokenService: tokenService,
		logger:       logger,
	}
}

// CreateSession issues tokens and stores a new session for user.
func (s *SessionService) CreateSession(ctx context.Context, user *domain.User, client ClientInfo) (*SessionResponse, error) {
	accessToken, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := s.tokenService.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	sessionID, err := id.Generate(id.PrefixSession)
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	now := time.Now()
	session := &domain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		RefreshTokenHash: auth.HashRefreshToken(refreshToken),
		ExpiresAt:        now.Add(s.tokenService.RefreshTokenDuration()),
		CreatedAt:        now,
		LastSeenAt:       now,
		IPAddress:        client.IPAddress,
		UserAgent:        client.UserAgent,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Debug("Session created", "user_id", user.ID, "session_id", sessionID)

	return s.response(accessToken, refreshToken, sessionID), nil
}

// RefreshSession validates refreshToken and rotates it. The previous refresh
// token stops working as soon as this returns.
func (s *SessionService) RefreshSession(ctx context.Context, refreshToken string, client ClientInfo) (*SessionResponse, *domain.User, error) {
	session, err := s.sessions.GetSessionByTokenHash(ctx, auth.HashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, domainerrors.TokenExpired("invalid or expired refresh token")
		}
		return nil, nil, fmt.Errorf("lookup session: %w", err)
	}

	now := time.Now()
	if session.IsExpired(now) {
		if err := s.sessions.DeleteSession(ctx, session.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("Failed to delete expired session", "session_id", session.ID, "error", err)
		}
		return nil, nil, domainerrors.TokenExpired("invalid or expired refresh token")
	}

	user, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, domainerrors.Unauthorized("user no longer exists")
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	accessToken, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate access token: %w", err)
	}
	newRefresh, err := s.tokenService.GenerateRefreshToken()
	if err != nil {
		return nil, nil, fmt.Errorf("generate refresh token: %w", err)
	}

	session.RefreshTokenHash = auth.HashRefreshToken(newRefresh)
	session.ExpiresAt = now.Add(s.tokenService.RefreshTokenDuration())
	session.LastSeenAt = now
	if client.IPAddress != "" {
		session.IPAddress = client.IPAddress
	}
	if client.UserAgent != "" {
		session.UserAgent = client.UserAgent
	}
	if err := s.sessions.UpdateSession(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("rotate session: %w", err)
	}

	s.logger.Debug("Session refreshed", "user_id", user.ID, "session_id", session.ID)

	return s.response(accessToken, newRefresh, session.ID), user, nil
}

// RevokeRefreshToken deletes the session owning refreshToken. Unknown tokens
// are ignored so logout is idempotent.
func (s *SessionService) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	session, err := s.sessions.GetSessionByTokenHash(ctx, auth.HashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup session: %w", err)
	}
	return s.DeleteSession(ctx, session.ID)
}

// DeleteSession removes a session by ID.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteSession(ctx, sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete session: %w", err)
	}
	s.logger.Info("Session revoked", "session_id", sessionID)
	return nil
}

// DeleteExpiredSessions removes every session past its expiry.
func (s *SessionService) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpiredSessions(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("Expired sessions removed", "count", n)
	}
	return n, nil
}

func (s *SessionService) response(accessToken, refreshToken, sessionID string) *SessionResponse {
	return &SessionResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokenService.AccessTokenDuration().Seconds()),
		SessionID:    sessionID,
	}
}
