package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shelfwise/shelfwise-server/internal/domain"
)

// Activity feed page limits.
const (
	DefaultActivityLimit = 20
	MaxActivityLimit     = 100
)

// ActivityService reads the activity log written by the activity pipeline.
type ActivityService struct {
	store  ActivityReader
	logger *slog.Logger
}

// NewActivityService creates a new activity service.
func NewActivityService(store ActivityReader, logger *slog.Logger) *ActivityService {
	return &ActivityService{store: store, logger: logger}
}

// List returns the user's most recent activities, newest first.
func (s *ActivityService) List(ctx context.Context, userID string, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	limit = min(limit, MaxActivityLimit)

	activities, err := s.store.ListActivities(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	if activities == nil {
		activities = []domain.Activity{}
	}
	return activities, nil
}
