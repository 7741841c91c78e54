package activity

import (
	"context"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/id"
	"github.com/shelfwise/shelfwise-server/internal/metrics"
)

// BreakerConfig configures the circuit breaker around publishing.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Requests allowed through when half-open
	Interval         time.Duration // Closed-state count reset period
	Timeout          time.Duration // Open duration before half-open
	FailureThreshold uint32        // Consecutive failures that trip the breaker
}

// DefaultBreakerConfig returns the breaker settings used by the server.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "activity-publisher",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// NewCircuitBreaker builds a breaker that logs and exports its state changes.
func NewCircuitBreaker(cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[any] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	}
	return gobreaker.NewCircuitBreaker[any](settings)
}

// Publisher records activity events. Record never fails the caller: errors
// are logged and counted.
type Publisher struct {
	pub     message.Publisher
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
	now     func() time.Time
}

// NewPublisher wraps a watermill publisher.
func NewPublisher(pub message.Publisher, breaker *gobreaker.CircuitBreaker[any], logger *slog.Logger) *Publisher {
	return &Publisher{
		pub:     pub,
		breaker: breaker,
		logger:  logger,
		now:     time.Now,
	}
}

// Record publishes an activity event for the user.
func (p *Publisher) Record(ctx context.Context, userID string, action domain.ActivityAction, slug, title string) {
	activityID, err := id.Generate(id.PrefixActivity)
	if err != nil {
		p.drop(ctx, "id", err, userID, action, slug)
		return
	}

	payload, err := json.Marshal(Event{
		ID:         activityID,
		UserID:     userID,
		Action:     action,
		BookSlug:   slug,
		BookTitle:  title,
		OccurredAt: p.now().UTC(),
	})
	if err != nil {
		p.drop(ctx, "encode", err, userID, action, slug)
		return
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("user_id", userID)
	msg.Metadata.Set("action", string(action))

	_, err = p.breaker.Execute(func() (any, error) {
		return nil, p.pub.Publish(TopicRecorded, msg)
	})
	if err != nil {
		reason := "publish"
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			reason = "breaker_open"
		}
		p.drop(ctx, reason, err, userID, action, slug)
		return
	}

	metrics.ActivityPublished.Inc()
	p.logger.DebugContext(ctx, "activity published", "user_id", userID, "action", action, "slug", slug)
}

func (p *Publisher) drop(ctx context.Context, reason string, err error, userID string, action domain.ActivityAction, slug string) {
	metrics.ActivityPublishFailures.WithLabelValues(reason).Inc()
	p.logger.WarnContext(ctx, "activity dropped",
		"reason", reason,
		"user_id", userID,
		"action", action,
		"slug", slug,
		"error", err,
	)
}
