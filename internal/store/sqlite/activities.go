package sqlite

import (
	"context"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

const activityColumns = `id, user_id, action, book_slug, book_title, created_at`

func scanActivity(sc scanner) (*domain.Activity, error) {
	var (
		a         domain.Activity
		action    string
		createdAt string
	)
	if err := sc.Scan(&a.ID, &a.UserID, &action, &a.BookSlug, &a.BookTitle, &createdAt); err != nil {
		return nil, err
	}
	a.Action = domain.ActivityAction(action)

	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateActivity appends an entry to the activity log. Inserting an ID that
// already exists returns store.ErrAlreadyExists, which lets redelivered
// messages be detected.
func (s *Store) CreateActivity(ctx context.Context, a *domain.Activity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (id, user_id, action, book_slug, book_title, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, string(a.Action), a.BookSlug, a.BookTitle, formatTime(a.CreatedAt))
	if isUniqueViolation(err, "") {
		return store.ErrAlreadyExists
	}
	return err
}

// ListActivities returns a user's most recent activities, newest first.
func (s *Store) ListActivities(ctx context.Context, userID string, limit int) ([]domain.Activity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := []domain.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}
