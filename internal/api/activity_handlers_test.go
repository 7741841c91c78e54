package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

func TestListActivity(t *testing.T) {
	ts := setupTestServer(t, testServerOptions{})
	token, userID := ts.settled(t, "activity@example.com")
	_, otherID := ts.settled(t, "other@example.com")

	resp := ts.api.Get("/api/v1/activity", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"activities":[]`)

	base := time.Now().Add(-time.Hour).UTC()
	entries := []domain.Activity{
		{ID: "act-1", UserID: userID, Action: domain.ActivityFavoriteAdded, BookSlug: "dune", BookTitle: "Dune", CreatedAt: base},
		{ID: "act-2", UserID: userID, Action: domain.ActivityFavoriteRemoved, BookSlug: "dune", BookTitle: "Dune", CreatedAt: base.Add(time.Minute)},
		{ID: "act-3", UserID: otherID, Action: domain.ActivityFavoriteAdded, BookSlug: "piranesi", BookTitle: "Piranesi", CreatedAt: base},
	}
	for i := range entries {
		require.NoError(t, ts.stores.DB.CreateActivity(t.Context(), &entries[i]))
	}

	resp = ts.api.Get("/api/v1/activity", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)
	got := decode[ListActivityResponse](t, resp.Body.Bytes()).Data.Activities
	require.Len(t, got, 2)
	assert.Equal(t, "act-2", got[0].ID)
	assert.Equal(t, "favorites.remove", got[0].Action)
	assert.Equal(t, "act-1", got[1].ID)
	assert.Equal(t, "Dune", got[1].BookTitle)

	resp = ts.api.Get("/api/v1/activity?limit=1", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[ListActivityResponse](t, resp.Body.Bytes()).Data.Activities, 1)
}

func TestListActivity_Validation(t *testing.T) {
	ts := setupTestServer(t, testServerOptions{})
	token, _ := ts.settled(t, "limits@example.com")

	resp := ts.api.Get("/api/v1/activity")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Get("/api/v1/activity?limit=500", bearer(token))
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "VALIDATION", decodeError(t, resp.Body.Bytes()).Code)
}
