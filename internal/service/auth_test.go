package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	domainerrors "github.com/shelfwise/shelfwise-server/internal/errors"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/ratelimit"
)

func TestAuthService_Register(t *testing.T) {
	env := newTestEnv(t, ShelfOptions{SettleDelay: time.Hour})
	ctx := context.Background()

	resp, err := env.auth.Register(ctx, RegisterRequest{
		Email:       "  Reader@Example.com ",
		Password:    "correct-horse",
		DisplayName: "Ada Reader",
	}, ClientInfo{IPAddress: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)

	assert.True(t, resp.User.IsNew)
	assert.Equal(t, "reader@example.com", resp.User.Email)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int((15 * time.Minute).Seconds()), resp.ExpiresIn)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotEmpty(t, resp.SessionID)

	profile, err := env.profiles.GetProfile(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Reader", profile.Name)
	assert.Equal(t, "reader@example.com", profile.Email)
	assert.Equal(t, 10, profile.ProfileCompletion)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t, ShelfOptions{SettleDelay: time.Hour})
	env.register(t, "dup@example.com")

	_, err := env.auth.Register(context.Background(), RegisterRequest{
		Email:       "DUP@example.com",
		Password:    "another-password",
		DisplayName: "Someone Else",
	}, ClientInfo{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestAuthService_Register_Validation(t *testing.T) {
	env := newTestEnv(t, ShelfOptions{SettleDelay: time.Hour})

	_, err := env.auth.Register(context.Background(), RegisterRequest{
		Email:       "not-an-email",
		Password:    "short",
		DisplayName: "",
	}, ClientInfo{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
	assert.Contains(t, details, "display_name")
}

func TestAuthService_Login(t *testing.T) {
	env := newTestEnv(t, ShelfOptions{SettleDelay: time.Hour})
	ctx := context.Background()
	user := env.register(t, "login@example.com")

	resp, err := env.auth.Login(ctx, LoginRequest{Email: "Login@Example.com", Password: "correct-horse"}, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, user.ID, resp.User.ID)

	verified, claims, err := env.auth.VerifyAccessToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, verified.ID)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t, ShelfOptions{SettleDelay: time.Hour})
	env.register(t, "login@example.com")

	tests := []struct {
		name  string
		email string
		pass  string
	}{
		{"wrong password", "login@example.com", "wrong-horse"},
		{"unknown email", "nobody@example.com", "correct-horse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Login(context.Background(), LoginRequest{Email: tt.email, Password: tt.pass}, ClientInfo{})
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
		})
	}
}

func TestAuthService_Login_RateLimitedPerIP(t *testing.T) {
	env := newTestEnv(t, ShelfOptions{SettleDelay: time.Hour})
	env.register(t, "limited@example.com")

	limiter := ratelimit.New(1.0/60, 2, 0)
	t.Cleanup(limiter.Stop)
	env.auth.loginLimiter = limiter

	ctx := context.Background()
	req := LoginRequest{Email: "limited@example.com", Password: "wrong-horse"}
	client := ClientInfo{IPAddress: "192.0.2.7"}

	for range 2 {
		_, err := env.auth.Login(ctx, req, client)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	}

	_, err := env.auth.Login(ctx, req, client)
	assert.ErrorIs(t, err, domainerrors.ErrRateLimited)

	// Another client is unaffected.
	_, err = env.auth.Login(ctx, LoginRequest{Email: "limited@example.com", Password: "correct-horse"}, ClientInfo{IPAddress: "192.0.2.8"})
	assert.NoError(t, err)
}

func TestAuthService_RefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t, ShelfOptions{SettleDelay: time.Hour})
	ctx := context.Background()

	resp, err := env.auth.Register(ctx, RegisterRequest{
		Email: "rotate@example.com", Password: "correct-horse", DisplayName: "Rotator",
	}, ClientInfo{})
	require.NoError(t, err)

	refreshed, err := env.auth.RefreshTokens(ctx, resp.RefreshToken, ClientInfo{UserAgent: "cli"})
	require.NoError(t, err)
	assert.Equal(t, resp.SessionID, refreshed.SessionID)
	assert.NotEqual(t, resp.RefreshToken, refreshed.RefreshToken)

	_, err = env.auth.RefreshTokens(ctx, resp.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired)

	_, err = env.auth.RefreshTokens(ctx, refreshed.RefreshToken, ClientInfo{})
	assert.NoError(t, err)
}

func TestAuthService_Logout(t *testing.T) {
	env := newTestEnv(t, ShelfOptions{SettleDelay: time.Hour})
	ctx := context.Background()

	resp, err := env.auth.Register(ctx, RegisterRequest{
		Email: "bye@example.com", Password: "correct-horse", DisplayName: "Leaver",
	}, ClientInfo{})
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx, resp.RefreshToken))
	require.NoError(t, env.auth.Logout(ctx, resp.RefreshToken), "logout is idempotent")

	_, err = env.auth.RefreshTokens(ctx, resp.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired)

	assert.ErrorIs(t, env.auth.Logout(ctx, ""), domainerrors.ErrValidation)
}

func TestAuthService_MarkUserAsSettled(t *testing.T) {
	env := newTestEnv(t, ShelfOptions{SettleDelay: time.Hour})
	ctx := context.Background()
	user := env.register(t, "settle@example.com")

	require.NoError(t, env.auth.MarkUserAsSettled(ctx, user.ID))
	require.NoError(t, env.auth.MarkUserAsSettled(ctx, user.ID))

	got, err := env.auth.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, got.IsNew)
	require.NotNil(t, got.SettledAt)

	assert.ErrorIs(t, env.auth.MarkUserAsSettled(ctx, "user-missing"), domainerrors.ErrNotFound)
}

func TestSessionService_ExpiredSessions(t *testing.T) {
	env := newTestEnv(t, ShelfOptions{SettleDelay: time.Hour})
	ctx := context.Background()
	user := env.register(t, "expire@example.com")

	// Register created one live session.
	n, err := env.sessions.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	key := make([]byte, 32)
	expiredTokens, err := auth.NewTokenService(key, time.Minute, -time.Minute)
	require.NoError(t, err)
	sessions := NewSessionService(env.db, env.db, expiredTokens, logger.Discard())

	resp, err := sessions.CreateSession(ctx, user, ClientInfo{})
	require.NoError(t, err)

	_, _, err = sessions.RefreshSession(ctx, resp.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired)

	_, err = sessions.CreateSession(ctx, user, ClientInfo{})
	require.NoError(t, err)
	n, err = sessions.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
