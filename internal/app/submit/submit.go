package submit

import (
	"context"
	"fmt"

	"github.com/heatwork/heatwork/internal/log"
	"github.com/heatwork/heatwork/internal/model"
)

// TaskCreator creates submitted tasks in a task tree.
type TaskCreator interface {
	CreateTask(ctx context.Context, client string, record model.TaskRecord, networkFile string) (*model.Task, error)
}

// ServiceConfig is the configuration for the submit service.
type ServiceConfig struct {
	Creator TaskCreator
	Logger  log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Creator == nil {
		return fmt.Errorf("task creator is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Submit"})
	return nil
}

// Service creates submitted tasks, playing the role of an external producer.
// Useful to feed a runner by hand.
type Service struct {
	creator TaskCreator
	logger  log.Logger
}

// NewService creates a new submit service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		creator: cfg.Creator,
		logger:  cfg.Logger,
	}, nil
}

// Request are the parameters of a task submission.
type Request struct {
	Client      string
	Alpha       float64
	Seeds       string
	NDEx        string
	Column      string
	NetworkFile string
}

func (r Request) validate() error {
	if r.Client == "" {
		return fmt.Errorf("client is required: %w", model.ErrNotValid)
	}
	if r.Seeds == "" {
		return fmt.Errorf("seeds are required: %w", model.ErrNotValid)
	}
	if r.Alpha <= 0 || r.Alpha >= 1 {
		return fmt.Errorf("alpha must be in (0, 1): %w", model.ErrNotValid)
	}

	sources := 0
	for _, set := range []bool{r.NetworkFile != "", r.NDEx != "", r.Column != ""} {
		if set {
			sources++
		}
	}
	if sources == 0 {
		return fmt.Errorf("a network source is required (file, ndex or column): %w", model.ErrNotValid)
	}
	if sources > 1 {
		return fmt.Errorf("only one network source can be given: %w", model.ErrNotValid)
	}

	return nil
}

// Submit creates a new submitted task.
func (s *Service) Submit(ctx context.Context, req Request) (*model.Task, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	alpha := req.Alpha
	record := model.TaskRecord{
		Alpha:    &alpha,
		Seeds:    req.Seeds,
		RemoteIP: req.Client,
		NDEx:     req.NDEx,
		Column:   req.Column,
	}

	t, err := s.creator.CreateTask(ctx, req.Client, record, req.NetworkFile)
	if err != nil {
		return nil, fmt.Errorf("could not create task: %w", err)
	}

	s.logger.Infof("Submitted %s", t.Summarize())
	return t, nil
}
