package activity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/shelfwise/shelfwise-server/internal/domain"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

type memorySink struct {
	mu       sync.Mutex
	items    map[string]*domain.Activity
	calls    int
	failures int // fail this many calls before succeeding
}

func newMemorySink() *memorySink {
	return &memorySink{items: make(map[string]*domain.Activity)}
}

func (s *memorySink) CreateActivity(_ context.Context, a *domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return errors.New("database is locked")
	}
	if _, ok := s.items[a.ID]; ok {
		return store.ErrAlreadyExists
	}
	s.items[a.ID] = a
	return nil
}

func (s *memorySink) snapshot() ([]*domain.Activity, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Activity, 0, len(s.items))
	for _, a := range s.items {
		out = append(out, a)
	}
	return out, s.calls
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialInterval = time.Millisecond
	cfg.CloseTimeout = time.Second
	return cfg
}

// startPipeline runs the pipeline until the test ends.
func startPipeline(t *testing.T, sink Sink) *Pipeline {
	t.Helper()

	p, err := NewPipeline(testConfig(), sink, logger.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Serve(ctx) }()

	select {
	case <-p.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not start")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("pipeline did not stop")
		}
	})
	return p
}

func TestPipeline_RecordIsPersisted(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sink := newMemorySink()
	t.Run("record", func(t *testing.T) {
		p := startPipeline(t, sink)
		p.Publisher().Record(context.Background(), "user-1", domain.ActivityFavoriteAdded, "dune", "Dune")

		require.Eventually(t, func() bool {
			items, _ := sink.snapshot()
			return len(items) == 1
		}, 2*time.Second, 5*time.Millisecond)
	})

	items, _ := sink.snapshot()
	require.Len(t, items, 1)
	a := items[0]
	assert.Equal(t, "user-1", a.UserID)
	assert.Equal(t, domain.ActivityFavoriteAdded, a.Action)
	assert.Equal(t, "dune", a.BookSlug)
	assert.Equal(t, "Dune", a.BookTitle)
	assert.Contains(t, a.ID, "act-")
	assert.False(t, a.CreatedAt.IsZero())
}

func TestPipeline_RetriesTransientFailures(t *testing.T) {
	sink := newMemorySink()
	sink.failures = 2
	p := startPipeline(t, sink)

	p.Publisher().Record(context.Background(), "user-1", domain.ActivityFavoriteRemoved, "emma", "Emma")

	require.Eventually(t, func() bool {
		items, _ := sink.snapshot()
		return len(items) == 1
	}, 2*time.Second, 5*time.Millisecond)

	_, calls := sink.snapshot()
	assert.Equal(t, 3, calls)
}

func TestPipeline_DropsAfterRetriesExhausted(t *testing.T) {
	sink := newMemorySink()
	sink.failures = 100
	p := startPipeline(t, sink)

	p.Publisher().Record(context.Background(), "user-1", domain.ActivityFavoriteAdded, "dune", "Dune")

	// One attempt plus MaxRetries, then the message is acked and dropped.
	want := testConfig().MaxRetries + 1
	require.Eventually(t, func() bool {
		_, calls := sink.snapshot()
		return calls == want
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	_, calls := sink.snapshot()
	assert.Equal(t, want, calls, "dropped message must not be redelivered")
}

func TestConsumer_Handle(t *testing.T) {
	sink := newMemorySink()
	c := NewConsumer(sink, logger.Discard())

	payload := []byte(`{"id":"act-1","user_id":"user-1","action":"favorites.add","book_slug":"dune","book_title":"Dune","occurred_at":"2026-01-01T00:00:00Z"}`)
	require.NoError(t, c.Handle(message.NewMessage("m1", payload)))

	// Redelivery of the same activity is acknowledged without error.
	require.NoError(t, c.Handle(message.NewMessage("m2", payload)))

	// Malformed payloads are acknowledged and skipped.
	require.NoError(t, c.Handle(message.NewMessage("m3", []byte("not json"))))
	require.NoError(t, c.Handle(message.NewMessage("m4", []byte(`{"id":"act-2"}`))))

	items, calls := sink.snapshot()
	assert.Len(t, items, 1)
	assert.Equal(t, 2, calls)
}

type failingPublisher struct {
	mu    sync.Mutex
	calls int
}

func (p *failingPublisher) Publish(string, ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return errors.New("channel closed")
}

func (p *failingPublisher) Close() error { return nil }

func TestPublisher_BreakerOpensAfterFailures(t *testing.T) {
	cfg := DefaultBreakerConfig()
	cfg.FailureThreshold = 3
	pub := &failingPublisher{}
	p := NewPublisher(pub, NewCircuitBreaker(cfg, logger.Discard()), logger.Discard())

	for range 10 {
		// Never panics or blocks even when every publish fails.
		p.Record(context.Background(), "user-1", domain.ActivityFavoriteAdded, "dune", "Dune")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, 3, pub.calls, "open breaker should short-circuit further publishes")
}
