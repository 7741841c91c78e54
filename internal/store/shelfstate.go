package store

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

const shelfStatePrefix = "shelfstate:"

func shelfStateKey(userID string) []byte {
	return []byte(shelfStatePrefix + userID)
}

// shelfDocument is the stored form of a ShelfState. Older documents named
// the favorites list "wishlist".
type shelfDocument struct {
	domain.ShelfState
	Wishlist []domain.ShelfEntry `json:"wishlist,omitempty"`
}

// LoadShelfState returns the stored shelf state for userID.
// It returns ErrNotFound when the user has no document and ErrCorrupt
// (wrapping the decode error) when the document cannot be decoded.
// Missing lists come back empty and a legacy "wishlist" becomes favorites.
func (s *Store) LoadShelfState(_ context.Context, userID string) (*domain.ShelfState, error) {
	raw, err := s.getRaw(shelfStateKey(userID))
	if err != nil {
		return nil, err
	}

	var doc shelfDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, ErrCorrupt.WithCause(err)
	}

	state := doc.ShelfState
	if state.Favorites == nil && doc.Wishlist != nil {
		state.Favorites = doc.Wishlist
	}
	state.Normalize()
	return &state, nil
}

// SaveShelfState writes the full state for userID, replacing any previous document.
func (s *Store) SaveShelfState(_ context.Context, userID string, state *domain.ShelfState) error {
	if err := s.set(shelfStateKey(userID), state); err != nil {
		return fmt.Errorf("save shelf state: %w", err)
	}
	return nil
}
