package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/metrics"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// Sink persists activities.
type Sink interface {
	CreateActivity(ctx context.Context, a *domain.Activity) error
}

// Consumer writes activity events to the sink.
type Consumer struct {
	sink   Sink
	logger *slog.Logger
}

// NewConsumer creates a consumer for the given sink.
func NewConsumer(sink Sink, logger *slog.Logger) *Consumer {
	return &Consumer{sink: sink, logger: logger}
}

// Handle is the router handler for TopicRecorded.
func (c *Consumer) Handle(msg *message.Message) error {
	var ev Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		c.malformed(msg, err.Error())
		return nil
	}
	if ev.ID == "" || ev.UserID == "" || ev.Action == "" {
		c.malformed(msg, "missing id, user or action")
		return nil
	}

	err := c.sink.CreateActivity(msg.Context(), ev.Activity())
	if errors.Is(err, store.ErrAlreadyExists) {
		metrics.ActivityConsumed.WithLabelValues("duplicate").Inc()
		return nil
	}
	if err != nil {
		return fmt.Errorf("store activity %s: %w", ev.ID, err)
	}

	metrics.ActivityConsumed.WithLabelValues("stored").Inc()
	return nil
}

// malformed acks a message that will never decode. Retrying it cannot help.
func (c *Consumer) malformed(msg *message.Message, reason string) {
	metrics.ActivityConsumed.WithLabelValues("malformed").Inc()
	c.logger.Warn("malformed activity message", "message_uuid", msg.UUID, "reason", reason)
}

// dropFailed acks messages whose handling failed for good so the in-process
// channel does not redeliver them forever.
func dropFailed(logger *slog.Logger) message.HandlerMiddleware {
	return func(h message.HandlerFunc) message.HandlerFunc {
		return func(msg *message.Message) ([]*message.Message, error) {
			out, err := h(msg)
			if err != nil {
				metrics.ActivityConsumed.WithLabelValues("failed").Inc()
				logger.Error("activity message dropped", "message_uuid", msg.UUID, "error", err)
				return nil, nil
			}
			return out, nil
		}
	}
}
