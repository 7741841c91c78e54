// Package activity carries the fire-and-forget activity log: a publisher the
// shelf service records into and a consumer that persists entries.
package activity

import (
	"time"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

// TopicRecorded is the topic activity events are published on.
const TopicRecorded = "activity.recorded"

// Event is the wire form of an activity.
type Event struct {
	ID         string                `json:"id"`
	UserID     string                `json:"user_id"`
	Action     domain.ActivityAction `json:"action"`
	BookSlug   string                `json:"book_slug"`
	BookTitle  string                `json:"book_title"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// Activity converts the event to the stored entry.
func (e *Event) Activity() *domain.Activity {
	return &domain.Activity{
		ID:        e.ID,
		UserID:    e.UserID,
		Action:    e.Action,
		BookSlug:  e.BookSlug,
		BookTitle: e.BookTitle,
		CreatedAt: e.OccurredAt,
	}
}
