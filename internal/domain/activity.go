package domain

import "time"

// ActivityAction names a recorded user action.
type ActivityAction string

const (
	// ActivityFavoriteAdded is recorded when a book newly lands in favorites.
	ActivityFavoriteAdded ActivityAction = "favorites.add"
	// ActivityFavoriteRemoved is recorded when a book leaves favorites.
	ActivityFavoriteRemoved ActivityAction = "favorites.remove"
)

// Activity is an immutable entry in a user's activity log.
// Book info is denormalized so the log renders without joins.
type Activity struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Action    ActivityAction `json:"action"`
	BookSlug  string         `json:"book_slug"`
	BookTitle string         `json:"book_title"`
	CreatedAt time.Time      `json:"created_at"`
}
