// Package supervisor runs long-lived background services under a suture tree.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Config holds the restart policy of the tree.
type Config struct {
	FailureThreshold float64       // Failures before backing off
	FailureDecay     float64       // Seconds for the failure count to decay
	FailureBackoff   time.Duration // Wait once the threshold is exceeded
	ShutdownTimeout  time.Duration // Per-service stop timeout
}

// DefaultConfig matches suture's own defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree is the root supervisor of the server's background services.
type Tree struct {
	root   *suture.Supervisor
	logger *slog.Logger
}

// New creates a tree whose lifecycle events are logged through slog.
func New(name string, cfg Config, logger *slog.Logger) *Tree {
	hook := (&sutureslog.Handler{Logger: logger}).MustHook()

	root := suture.New(name, suture.Spec{
		EventHook:        hook,
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	})
	return &Tree{root: root, logger: logger}
}

// Add registers a service. Services added after Start are started immediately.
func (t *Tree) Add(svc suture.Service) suture.ServiceToken {
	return t.root.Add(svc)
}

// Start runs the tree in the background until ctx is cancelled. The returned
// channel yields the tree's exit error once it has stopped.
func (t *Tree) Start(ctx context.Context) <-chan error {
	t.logger.Info("starting supervisor tree")
	return t.root.ServeBackground(ctx)
}
