package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"The Left Hand of Darkness", "the-left-hand-of-darkness"},
		{"Cien años de soledad", "cien-anos-de-soledad"},
		{"  Sci-Fi/Fantasy  ", "sci-fi-fantasy"},
		{"1984", "1984"},
		{"Don't Panic!!", "don-t-panic"},
		{"", ""},
		{"---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in))
		})
	}
}

func TestGenreName(t *testing.T) {
	assert.Equal(t, "Science Fiction", GenreName("  science   fiction "))
	assert.Equal(t, "Fantasy", GenreName("FANTASY"))
	assert.Equal(t, "", GenreName("   "))
}

func TestGenres(t *testing.T) {
	got := Genres([]string{"fantasy", "Fantasy ", "", "horror", "mystery"}, 2)
	assert.Equal(t, []string{"Fantasy", "Horror"}, got)

	assert.Empty(t, Genres(nil, 8))
}

func TestUsernameAndEmail(t *testing.T) {
	assert.Equal(t, "ada_l", Username("  Ada_L "))
	assert.Equal(t, "ada@example.com", Email(" Ada@Example.COM"))
}

func TestPhone(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"+1 (555) 123-4567", "+15551234567", true},
		{"555.123.4567", "5551234567", true},
		{"12345", "", false},
		{"call me", "", false},
		{"+", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Phone(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
