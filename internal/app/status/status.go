package status

import (
	"context"
	"fmt"

	"github.com/heatwork/heatwork/internal/log"
	"github.com/heatwork/heatwork/internal/model"
)

// TaskCounter counts the tasks under every state of a task tree.
type TaskCounter interface {
	CountTasks(ctx context.Context) (model.TaskCounts, error)
}

// ServiceConfig is the configuration for the status service.
type ServiceConfig struct {
	Counter TaskCounter
	Logger  log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Counter == nil {
		return fmt.Errorf("task counter is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Status"})
	return nil
}

// Service reports per state task totals of a task tree.
type Service struct {
	counter TaskCounter
	logger  log.Logger
}

// NewService creates a new status service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		counter: cfg.Counter,
		logger:  cfg.Logger,
	}, nil
}

// Run returns the current task totals.
func (s *Service) Run(ctx context.Context) (*model.TaskCounts, error) {
	counts, err := s.counter.CountTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not count tasks: %w", err)
	}

	s.logger.Debugf("Counted tasks: %d submitted, %d processing, %d done",
		counts.Submitted, counts.Processing, counts.Done)
	return &counts, nil
}
