package activity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/thejerf/suture/v4"
)

// Config configures the in-process activity pipeline.
type Config struct {
	Buffer          int           // Subscriber output channel buffer
	MaxRetries      int           // Store retries before a message is dropped
	InitialInterval time.Duration // First retry delay
	CloseTimeout    time.Duration
	Breaker         BreakerConfig
}

// DefaultConfig returns the pipeline settings used by the server.
func DefaultConfig() Config {
	return Config{
		Buffer:          256,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		CloseTimeout:    10 * time.Second,
		Breaker:         DefaultBreakerConfig(),
	}
}

// Pipeline owns the pub/sub channel, the publisher and the consumer router.
// It implements suture.Service: Serve runs the router until ctx is done.
type Pipeline struct {
	pubsub    *gochannel.GoChannel
	router    *message.Router
	publisher *Publisher
	logger    *slog.Logger
}

// NewPipeline wires the publisher and consumer around an in-process channel.
func NewPipeline(cfg Config, sink Sink, logger *slog.Logger) (*Pipeline, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(cfg.Buffer),
	}, wmLogger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create activity router: %w", err)
	}

	// Outer to inner: drop after exhaustion, recover panics, retry store failures.
	router.AddMiddleware(dropFailed(logger))
	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(middleware.Retry{
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     10 * cfg.InitialInterval,
		Multiplier:      2.0,
		Logger:          wmLogger,
	}.Middleware)

	consumer := NewConsumer(sink, logger)
	router.AddConsumerHandler("activity-store", TopicRecorded, pubsub, consumer.Handle)

	return &Pipeline{
		pubsub:    pubsub,
		router:    router,
		publisher: NewPublisher(pubsub, NewCircuitBreaker(cfg.Breaker, logger), logger),
		logger:    logger,
	}, nil
}

// Publisher returns the sink shelf mutations record into.
func (p *Pipeline) Publisher() *Publisher {
	return p.publisher
}

// Running is closed once the consumer is subscribed.
func (p *Pipeline) Running() chan struct{} {
	return p.router.Running()
}

// Serve runs the consumer router until ctx is cancelled, then closes the channel.
func (p *Pipeline) Serve(ctx context.Context) error {
	p.logger.Info("activity pipeline starting")
	err := p.router.Run(ctx)
	if cerr := p.pubsub.Close(); cerr != nil {
		p.logger.Warn("close activity channel", "error", cerr)
	}
	if err != nil {
		// A watermill router cannot be run twice.
		return fmt.Errorf("activity router: %w: %w", err, suture.ErrDoNotRestart)
	}
	return ctx.Err()
}

func (p *Pipeline) String() string {
	return "activity-pipeline"
}
