package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/recommend"
)

func recommendedSlugs(r *Recommendations) []string {
	out := make([]string, 0, len(r.Books))
	for _, b := range r.Books {
		out = append(out, b.Slug)
	}
	return out
}

func TestRecommendationService_Anonymous(t *testing.T) {
	env := newTestEnv(t, ShelfOptions{SettleDelay: time.Hour})
	env.seedCatalog(t)

	recs, err := env.recs.Recommend(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, recs.Books)
	assert.Empty(t, recs.Books)
}

func TestRecommendationService_TopRatedExcludingOwned(t *testing.T) {
	env := newTestEnv(t, ShelfOptions{SettleDelay: time.Hour})
	env.seedCatalog(t)
	user := env.settledUser(t, "reader@example.com")
	ctx := context.Background()

	recs, err := env.recs.Recommend(ctx, user)
	require.NoError(t, err)
	want := []string{
		"the-name-of-the-wind", "project-hail-mary", "educated",
		"sapiens", "the-body-keeps-the-score",
		"dune", "pride-and-prejudice", "the-hobbit",
	}
	if diff := cmp.Diff(want, recommendedSlugs(recs)); diff != "" {
		t.Errorf("recommendations mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, recommend.PathAvailable, recs.Path)
	assert.False(t, recs.GenreFiltered)

	_, err = env.shelf.AddToShelf(ctx, user, "project-hail-mary", "finished")
	require.NoError(t, err)
	_, err = env.shelf.AddToShelf(ctx, user, "dune", "favorites")
	require.NoError(t, err)

	recs, err = env.recs.Recommend(ctx, user)
	require.NoError(t, err)
	want = []string{
		"the-name-of-the-wind", "educated",
		"sapiens", "the-body-keeps-the-score",
		"pride-and-prejudice", "the-hobbit", "a-gentleman-in-moscow", "circe",
	}
	if diff := cmp.Diff(want, recommendedSlugs(recs)); diff != "" {
		t.Errorf("recommendations mismatch (-want +got):\n%s", diff)
	}
}

func TestRecommendationService_PreferredGenres(t *testing.T) {
	env := newTestEnv(t, ShelfOptions{SettleDelay: time.Hour})
	env.seedCatalog(t)
	user := env.settledUser(t, "reader@example.com")
	ctx := context.Background()

	_, err := env.profiles.UpdateProfile(ctx, user.ID, UpdateProfileRequest{Genres: ptr([]string{"mythology"})})
	require.NoError(t, err)

	recs, err := env.recs.Recommend(ctx, user)
	require.NoError(t, err)
	assert.True(t, recs.GenreFiltered)
	assert.Equal(t, []string{"circe"}, recommendedSlugs(recs))

	// A genre nothing matches falls back to the plain ranking.
	_, err = env.profiles.UpdateProfile(ctx, user.ID, UpdateProfileRequest{Genres: ptr([]string{"poetry"})})
	require.NoError(t, err)

	recs, err = env.recs.Recommend(ctx, user)
	require.NoError(t, err)
	assert.False(t, recs.GenreFiltered)
	assert.Len(t, recs.Books, recommend.Limit)
}

func TestRecommendationService_SmallCatalog(t *testing.T) {
	env := newTestEnv(t, ShelfOptions{SettleDelay: time.Hour})
	books := []domain.Book{
		{Slug: "a", Title: "A", RatingAvg: domain.Rated(3.0), Genres: []string{"Fantasy"}},
		{Slug: "b", Title: "B", Genres: []string{}},
		{Slug: "c", Title: "C", RatingAvg: domain.Rated(4.8), Genres: []string{"Fantasy"}},
	}
	_, err := env.books.Import(context.Background(), books)
	require.NoError(t, err)
	user := env.settledUser(t, "reader@example.com")
	ctx := context.Background()

	_, err = env.shelf.AddToShelf(ctx, user, "b", "nextUp")
	require.NoError(t, err)

	recs, err := env.recs.Recommend(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, recommend.PathCatalog, recs.Path)
	require.Len(t, recs.Books, 3)

	// The whole catalog with display defaults applied.
	byID := map[string]domain.Book{}
	for _, b := range recs.Books {
		byID[b.Slug] = b
	}
	assert.InDelta(t, domain.DefaultRating, byID["b"].Rating(), 0.001)
	assert.Equal(t, []string{domain.DefaultGenre}, byID["b"].Genres)
}
