package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/auth"
	"github.com/shelfwise/shelfwise-server/internal/catalog"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/ratelimit"
	"github.com/shelfwise/shelfwise-server/internal/search"
	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/store"
	"github.com/shelfwise/shelfwise-server/internal/store/sqlite"
	"github.com/shelfwise/shelfwise-server/internal/validation"
)

// testEnvelope decodes a success envelope with typed data.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// testErrorEnvelope decodes a coded error envelope.
type testErrorEnvelope struct {
	Version int            `json:"v"`
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details"`
}

// testServerOptions tunes the server under test.
type testServerOptions struct {
	RateLimitPerMinute int
	LoginPerMinute     int
}

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api      humatest.TestAPI
	services *Services
}

// setupTestServer creates a server over real stores in a temp directory,
// with the default catalog imported.
func setupTestServer(t *testing.T, opts testServerOptions) *testServer {
	t.Helper()

	dir := t.TempDir()
	log := logger.Discard()

	db, err := sqlite.Open(filepath.Join(dir, "shelfwise.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	shelves, err := store.NewInMemory(log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = shelves.Close() })

	index, err := search.NewSearchIndex(search.Options{DataPath: dir, Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	key, err := auth.LoadOrGenerateKey(dir)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	var loginLimiter *ratelimit.KeyedRateLimiter
	if opts.LoginPerMinute > 0 {
		loginLimiter = ratelimit.New(float64(opts.LoginPerMinute)/60, opts.LoginPerMinute, time.Minute)
		t.Cleanup(loginLimiter.Stop)
	}

	v := validation.New()
	sessions := service.NewSessionService(db, db, tokens, log)
	authSvc := service.NewAuthService(db, db, tokens, sessions, loginLimiter, v, log)
	books := service.NewBookService(db, index, log)
	shelf := service.NewShelfService(db, shelves, authSvc, nil, service.ShelfOptions{SettleDelay: time.Hour}, log)
	t.Cleanup(shelf.Shutdown)
	profiles := service.NewProfileService(db, shelf, v, log)
	shelf.SetCompletionUpdater(profiles)

	services := &Services{
		Auth:           authSvc,
		Book:           books,
		Shelf:          shelf,
		Recommendation: service.NewRecommendationService(db, shelf, profiles, log),
		Profile:        profiles,
		Activity:       service.NewActivityService(db, log),
	}

	defaultBooks, err := catalog.Default()
	require.NoError(t, err)
	_, err = books.Import(t.Context(), defaultBooks)
	require.NoError(t, err)

	s := NewServer(Stores{DB: db, Shelves: shelves, Index: index}, services, Options{
		CORSAllowedOrigins: []string{"*"},
		RateLimitPerMinute: opts.RateLimitPerMinute,
	}, log)

	return &testServer{
		Server:   s,
		api:      humatest.Wrap(t, s.api),
		services: services,
	}
}

// register creates an account and returns its access token and user ID.
func (ts *testServer) register(t *testing.T, email string) (token, userID string) {
	t.Helper()

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":        email,
		"password":     "correct-horse",
		"display_name": "Test Reader",
	})
	require.Equal(t, http.StatusCreated, resp.Code, "register failed: %s", resp.Body.String())

	env := decode[AuthResponse](t, resp.Body.Bytes())
	return env.Data.AccessToken, env.Data.User.ID
}

// settled registers an account and clears its new-account flag so shelf
// reads keep stored state.
func (ts *testServer) settled(t *testing.T, email string) (token, userID string) {
	t.Helper()
	token, userID = ts.register(t, email)
	require.NoError(t, ts.services.Auth.MarkUserAsSettled(t.Context(), userID))
	return token, userID
}

func bearer(token string) string {
	return "Authorization: Bearer " + token
}

func decode[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &env), "body: %s", body)
	require.Equal(t, EnvelopeVersion, env.Version)
	return env
}

func decodeError(t *testing.T, body []byte) testErrorEnvelope {
	t.Helper()
	var env testErrorEnvelope
	require.NoError(t, json.Unmarshal(body, &env), "body: %s", body)
	require.Equal(t, EnvelopeVersion, env.Version)
	require.False(t, env.Success)
	return env
}
