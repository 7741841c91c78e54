package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBook_RatingAndGenresOnMapValues(t *testing.T) {
	rating := 4.5
	books := map[string]Book{
		"rated":   {Slug: "rated", RatingAvg: &rating, Genres: []string{"Fantasy", "Classic"}},
		"unrated": {Slug: "unrated"},
	}

	assert.Equal(t, 4.5, books["rated"].Rating())
	assert.Zero(t, books["unrated"].Rating())

	assert.True(t, books["rated"].HasGenre("Mystery", "Classic"))
	assert.False(t, books["rated"].HasGenre("Mystery"))
	assert.False(t, books["unrated"].HasGenre("Fantasy"))
}
