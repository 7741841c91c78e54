package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/do/v2"

	"github.com/shelfwise/shelfwise-server/internal/activity"
	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/logger"
	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/supervisor"
)

const (
	sessionCleanupInterval = time.Hour
	pipelineStartTimeout   = 10 * time.Second
)

// SupervisorHandle owns the supervisor tree running background services.
type SupervisorHandle struct {
	*supervisor.Tree
	cancel context.CancelFunc
	done   <-chan error
}

// Shutdown implements do.Shutdownable. It stops every supervised service
// and waits for the tree to exit.
func (h *SupervisorHandle) Shutdown() error {
	h.cancel()
	select {
	case err := <-h.done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-time.After(shutdownTimeout):
		return errors.New("supervisor did not stop in time")
	}
}

// ProvideSupervisor starts the root supervisor tree.
func ProvideSupervisor(i do.Injector) (*SupervisorHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	tree := supervisor.New("shelfwise", supervisor.DefaultConfig(), log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := tree.Start(ctx)

	return &SupervisorHandle{Tree: tree, cancel: cancel, done: done}, nil
}

// ActivityPipelineHandle exposes the running activity pipeline.
type ActivityPipelineHandle struct {
	*activity.Pipeline
}

// ProvideActivityPipeline builds the activity pipeline, runs it under the
// supervisor and waits until its consumer is subscribed.
func ProvideActivityPipeline(i do.Injector) (*ActivityPipelineHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	db := do.MustInvoke[*DatabaseHandle](i)
	tree := do.MustInvoke[*SupervisorHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	pipelineCfg := activity.DefaultConfig()
	if cfg.Activity.Buffer > 0 {
		pipelineCfg.Buffer = cfg.Activity.Buffer
	}
	if cfg.Activity.Retries >= 0 {
		pipelineCfg.MaxRetries = cfg.Activity.Retries
	}

	pipeline, err := activity.NewPipeline(pipelineCfg, db.Store, log.Logger)
	if err != nil {
		return nil, err
	}

	tree.Add(pipeline)

	select {
	case <-pipeline.Running():
	case <-time.After(pipelineStartTimeout):
		return nil, fmt.Errorf("activity pipeline not running after %s", pipelineStartTimeout)
	}

	log.Info("Activity pipeline started",
		"buffer", pipelineCfg.Buffer,
		"max_retries", pipelineCfg.MaxRetries,
	)

	return &ActivityPipelineHandle{Pipeline: pipeline}, nil
}

// SessionCleanupJob periodically removes expired sessions. It runs as a
// supervised service, so a panic in one sweep restarts the loop.
type SessionCleanupJob struct {
	sessions *service.SessionService
	interval time.Duration
	logger   *logger.Logger
}

// Serve implements suture.Service.
func (j *SessionCleanupJob) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Initial cleanup on startup
	j.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			j.sweep(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (j *SessionCleanupJob) sweep(ctx context.Context) {
	count, err := j.sessions.DeleteExpiredSessions(ctx)
	if err != nil {
		if ctx.Err() == nil {
			j.logger.Warn("Session cleanup failed", "error", err)
		}
		return
	}
	if count > 0 {
		j.logger.Info("Session cleanup completed", "deleted", count)
	}
}

func (j *SessionCleanupJob) String() string {
	return "session-cleanup"
}

// ProvideSessionCleanupJob registers the periodic session cleanup job.
func ProvideSessionCleanupJob(i do.Injector) (*SessionCleanupJob, error) {
	sessions := do.MustInvoke[*service.SessionService](i)
	tree := do.MustInvoke[*SupervisorHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	job := &SessionCleanupJob{
		sessions: sessions,
		interval: sessionCleanupInterval,
		logger:   log,
	}
	tree.Add(job)

	log.Info("Session cleanup job started", "interval", sessionCleanupInterval)

	return job, nil
}
