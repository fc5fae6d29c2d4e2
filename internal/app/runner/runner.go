package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/heatwork/heatwork/internal/history"
	"github.com/heatwork/heatwork/internal/log"
	"github.com/heatwork/heatwork/internal/model"
	"github.com/heatwork/heatwork/internal/storage"
)

const (
	defaultWaitTime         = 30 * time.Second
	defaultCleanupThreshold = 3
)

// Processor runs the processing pipeline against one task.
type Processor interface {
	Process(ctx context.Context, t *model.Task) error
}

// Config is the configuration for the runner.
type Config struct {
	Repository storage.TaskRepository
	Processor  Processor
	History    history.Recorder

	// WaitTime is the sleep between empty polls.
	WaitTime time.Duration
	// CleanupThreshold is the number of idle polls with a non-empty
	// quarantine before it is cleaned up. It doubles as the grace window
	// for producers still writing their record file.
	CleanupThreshold int

	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Processor == nil {
		return fmt.Errorf("processor is required")
	}
	if c.History == nil {
		c.History = history.Noop
	}
	if c.WaitTime <= 0 {
		c.WaitTime = defaultWaitTime
	}
	if c.CleanupThreshold <= 0 {
		c.CleanupThreshold = defaultCleanupThreshold
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Runner"})
	return nil
}

// Runner is the single worker polling loop: it fetches submitted tasks one
// at a time, claims them by moving them to processing, runs the pipeline and
// relocates them to the done state, successful or errored. One bad task
// never terminates the loop.
type Runner struct {
	repo             storage.TaskRepository
	processor        Processor
	history          history.Recorder
	waitTime         time.Duration
	cleanupThreshold int
	logger           log.Logger
}

// NewRunner creates a new runner.
func NewRunner(cfg Config) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runner{
		repo:             cfg.Repository,
		processor:        cfg.Processor,
		history:          cfg.History,
		waitTime:         cfg.WaitTime,
		cleanupThreshold: cfg.CleanupThreshold,
		logger:           cfg.Logger,
	}, nil
}

// Run polls for tasks until the context is canceled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Infof("Task runner started, polling every %s", r.waitTime)

	cleanupCounter := 0
	for {
		if ctx.Err() != nil {
			r.logger.Infof("Task runner stopped")
			return nil
		}

		t, err := r.repo.GetNextTask(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			r.logger.Errorf("Could not poll for tasks: %s", err)
			r.sleep(ctx)
			continue
		}

		if t == nil {
			if r.repo.QuarantineSize() > 0 {
				cleanupCounter++
				if cleanupCounter >= r.cleanupThreshold {
					if err := r.repo.CleanUpQuarantine(ctx); err != nil {
						r.logger.Errorf("Could not clean up quarantine: %s", err)
					}
					cleanupCounter = 0
				} else {
					r.sleep(ctx)
				}
			} else {
				r.sleep(ctx)
			}
			continue
		}

		r.processTask(ctx, t)
	}
}

// processTask drives one task end to end. Every failure is converted into a
// persisted error outcome, nothing escapes to the loop.
func (r *Runner) processTask(ctx context.Context, t *model.Task) {
	r.logger.Infof("Found %s", t.Summarize())
	started := time.Now()

	if err := r.repo.MoveTask(ctx, t, model.TaskStateProcessing, ""); err != nil {
		// A concurrent actor may have relocated the directory between the
		// scan and the claim. Not ours anymore, poll again.
		if errors.Is(err, os.ErrNotExist) {
			r.logger.Warningf("Task vanished before it could be claimed: %s", t.Dir)
			return
		}
		r.logger.Errorf("Could not claim task: %s", err)
		return
	}

	if err := r.processor.Process(ctx, t); err != nil {
		r.failTask(ctx, t, started, err.Error())
		return
	}

	if err := r.repo.SaveTask(ctx, t); err != nil {
		r.failTask(ctx, t, started, fmt.Sprintf("could not save result: %s", err))
		return
	}
	if err := r.repo.MoveTask(ctx, t, model.TaskStateDone, ""); err != nil {
		r.logger.Errorf("Could not move task to done: %s", err)
		r.recordAttempt(ctx, t, started, history.OutcomeFailed, err.Error())
		return
	}

	r.recordAttempt(ctx, t, started, history.OutcomeSucceeded, "")
}

func (r *Runner) failTask(ctx context.Context, t *model.Task, started time.Time, message string) {
	r.logger.Errorf("Task failed, moving to error outcome: %s", message)
	if err := r.repo.MoveTask(ctx, t, model.TaskStateErrored, message); err != nil {
		r.logger.Errorf("Could not move task to error outcome: %s", err)
	}
	r.recordAttempt(ctx, t, started, history.OutcomeFailed, message)
}

func (r *Runner) recordAttempt(ctx context.Context, t *model.Task, started time.Time, outcome history.Outcome, message string) {
	parts, err := t.Parts()
	if err != nil {
		r.logger.Warningf("Could not record attempt: %s", err)
		return
	}

	attempt := history.Attempt{
		TaskID:    parts.UUID,
		Client:    parts.Client,
		Outcome:   outcome,
		Error:     message,
		StartedAt: started,
		Duration:  time.Since(started),
	}
	if err := r.history.RecordAttempt(ctx, attempt); err != nil {
		r.logger.Warningf("Could not record attempt for task %s: %s", parts.UUID, err)
	}
}

func (r *Runner) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(r.waitTime):
	}
}
