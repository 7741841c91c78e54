package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile_GetAndUpdate(t *testing.T) {
	ts := setupTestServer(t, testServerOptions{})
	token, userID := ts.settled(t, "ada@example.com")

	resp := ts.api.Get("/api/v1/profile", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	profile := decode[ProfileResponse](t, resp.Body.Bytes()).Data
	assert.Equal(t, userID, profile.UserID)
	assert.Equal(t, "Test Reader", profile.Name)
	assert.Equal(t, "ada@example.com", profile.Email)
	assert.Equal(t, []string{}, profile.Genres)

	resp = ts.api.Patch("/api/v1/profile", bearer(token), map[string]any{
		"username":      "Ada.Reads",
		"bio":           "Mostly science fiction.",
		"date_of_birth": "1990-12-10",
		"phone":         "+44 (20) 7946-0958",
		"twitter":       "@ada",
		"genres":        []string{"science fiction", "fantasy"},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	profile = decode[ProfileResponse](t, resp.Body.Bytes()).Data
	assert.Equal(t, "ada.reads", profile.Username)
	assert.Equal(t, "1990-12-10", profile.DateOfBirth)
	assert.Equal(t, "+442079460958", profile.Phone)
	assert.Equal(t, "@ada", profile.Socials.Twitter)
	assert.Equal(t, []string{"Science Fiction", "Fantasy"}, profile.Genres)
	assert.Positive(t, profile.ProfileCompletion)

	// Omitted fields stay, empty strings clear.
	resp = ts.api.Patch("/api/v1/profile", bearer(token), map[string]any{"bio": ""})
	require.Equal(t, http.StatusOK, resp.Code)
	profile = decode[ProfileResponse](t, resp.Body.Bytes()).Data
	assert.Empty(t, profile.Bio)
	assert.Equal(t, "ada.reads", profile.Username)
}

func TestProfile_UpdateValidation(t *testing.T) {
	ts := setupTestServer(t, testServerOptions{})
	token, _ := ts.settled(t, "ada@example.com")

	resp := ts.api.Patch("/api/v1/profile", bearer(token), map[string]any{"gender": "robot"})
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	env := decodeError(t, resp.Body.Bytes())
	assert.Equal(t, "VALIDATION", env.Code)
	assert.Contains(t, env.Details, "gender")

	resp = ts.api.Patch("/api/v1/profile", bearer(token), map[string]any{"date_of_birth": "10/12/1990"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, decodeError(t, resp.Body.Bytes()).Details, "date_of_birth")
}

func TestProfile_UniqueUsername(t *testing.T) {
	ts := setupTestServer(t, testServerOptions{})
	adaToken, _ := ts.settled(t, "ada@example.com")
	bobToken, _ := ts.settled(t, "bob@example.com")

	resp := ts.api.Patch("/api/v1/profile", bearer(adaToken), map[string]any{"username": "reader"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Patch("/api/v1/profile", bearer(bobToken), map[string]any{"username": "Reader"})
	require.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())

	env := decodeError(t, resp.Body.Bytes())
	assert.Equal(t, "CONFLICT", env.Code)
	assert.Equal(t, map[string]any{"field": "username"}, env.Details)
}

func TestProfile_UsernameChangeLimit(t *testing.T) {
	ts := setupTestServer(t, testServerOptions{})
	token, _ := ts.settled(t, "ada@example.com")

	for _, name := range []string{"first", "second", "third"} {
		resp := ts.api.Patch("/api/v1/profile", bearer(token), map[string]any{"username": name})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	}

	resp := ts.api.Patch("/api/v1/profile", bearer(token), map[string]any{"username": "fourth"})
	require.Equal(t, http.StatusTooManyRequests, resp.Code, resp.Body.String())

	env := decodeError(t, resp.Body.Bytes())
	assert.Equal(t, "RATE_LIMITED", env.Code)
	retryAfter, ok := env.Details["retry_after"].(string)
	require.True(t, ok, "retry_after detail missing: %v", env.Details)
	at, err := time.Parse(time.RFC3339, retryAfter)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*24*time.Hour), at, time.Minute)
}

func TestPublicProfile(t *testing.T) {
	ts := setupTestServer(t, testServerOptions{})
	token, _ := ts.settled(t, "ada@example.com")

	resp := ts.api.Patch("/api/v1/profile", bearer(token), map[string]any{
		"username":      "ada",
		"phone":         "+15551234567",
		"date_of_birth": "1990-12-10",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// Public profiles need no token.
	resp = ts.api.Get("/api/v1/users/ADA/profile")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	pub := decode[ProfileResponse](t, resp.Body.Bytes()).Data
	assert.Equal(t, "ada", pub.Username)
	assert.Empty(t, pub.Email)
	assert.Empty(t, pub.Phone)
	assert.Empty(t, pub.DateOfBirth)

	resp = ts.api.Get("/api/v1/users/nobody/profile")
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp.Body.Bytes()).Code)
}
