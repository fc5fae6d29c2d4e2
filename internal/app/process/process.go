package process

import (
	"context"
	"fmt"

	"github.com/heatwork/heatwork/internal/diffusion"
	"github.com/heatwork/heatwork/internal/log"
	"github.com/heatwork/heatwork/internal/model"
	"github.com/heatwork/heatwork/internal/network"
)

// Stage identifies one ordered step of task processing.
type Stage string

const (
	StageAcquireNetwork Stage = "acquire-network"
	StageFilterSeeds    Stage = "filter-seeds"
	StageBuildSummary   Stage = "build-summary"
	StageDiffuse        Stage = "diffuse"
)

// StageError is a task-local pipeline failure: it aborts the remaining
// stages and carries the message recorded on the task's error outcome.
type StageError struct {
	Stage   Stage
	Message string
	Err     error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err)
	}
	return e.Message
}

func (e *StageError) Unwrap() error { return e.Err }

// NetworkFetcher retrieves a full network from an external service by its
// identifier.
type NetworkFetcher interface {
	FetchNetwork(ctx context.Context, networkID string) (*network.Graph, error)
}

// ColumnFetcher builds a network from an external interaction table column.
type ColumnFetcher interface {
	FetchColumn(ctx context.Context, column string) (*network.Graph, error)
}

// ServiceConfig is the configuration for the pipeline service.
type ServiceConfig struct {
	NDEx     NetworkFetcher
	BigGIM   ColumnFetcher
	Diffuser diffusion.Diffuser
	Logger   log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.NDEx == nil {
		return fmt.Errorf("ndex fetcher is required")
	}
	if c.BigGIM == nil {
		return fmt.Errorf("biggim fetcher is required")
	}
	if c.Diffuser == nil {
		return fmt.Errorf("diffuser is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Process"})
	return nil
}

// Service drives the per task pipeline: network acquisition, seed filtering,
// gene level summary construction and diffusion. Stages run in strict order,
// any failure aborts the remaining ones, no stage is retried.
type Service struct {
	ndex     NetworkFetcher
	biggim   ColumnFetcher
	diffuser diffusion.Diffuser
	logger   log.Logger
}

// NewService creates a new pipeline service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		ndex:     cfg.NDEx,
		biggim:   cfg.BigGIM,
		diffuser: cfg.Diffuser,
		logger:   cfg.Logger,
	}, nil
}

// Process runs all stages against the task, attaching the intermediate
// artifacts and finally the result. On failure it returns a StageError whose
// message is meant for the task's error metadata.
func (s *Service) Process(ctx context.Context, t *model.Task) error {
	g, err := s.acquireNetwork(ctx, t)
	if err != nil {
		return &StageError{Stage: StageAcquireNetwork, Message: "unable to acquire network for task", Err: err}
	}
	t.Graph = g
	s.logger.Debugf("Acquired network: %d nodes, %d edges", g.NumNodes(), g.NumEdges())

	seeds, err := s.filterSeeds(t)
	if err != nil {
		return err
	}
	t.FilteredSeeds = seeds

	t.Summary = diffusion.NewGeneLevelSummary(g, seeds)

	alpha, err := t.AlphaValue()
	if err != nil {
		return &StageError{Stage: StageDiffuse, Message: "could not read alpha parameter", Err: err}
	}

	result, err := s.diffuser.Diffuse(ctx, g, t.Summary, alpha)
	if err != nil {
		return &StageError{Stage: StageDiffuse, Message: "no result generated", Err: err}
	}
	t.Result = result

	s.logger.Infof("Task processing completed: %s", t.Summarize())
	return nil
}

// acquireNetwork resolves the task's network source: the inline network file
// when present, else the external NDEx network, else the BigGIM column.
func (s *Service) acquireNetwork(ctx context.Context, t *model.Task) (*network.Graph, error) {
	if path := t.NetworkPath(); path != "" {
		s.logger.Debugf("Loading inline network from %s", path)
		return network.ParseSIFFile(path)
	}

	if id := t.Record.NDEx; id != "" {
		s.logger.Debugf("Fetching network %s from NDEx", id)
		return s.ndex.FetchNetwork(ctx, id)
	}

	if column := t.Record.Column; column != "" {
		s.logger.Debugf("Building network from BigGIM column %s", column)
		return s.biggim.FetchColumn(ctx, column)
	}

	return nil, fmt.Errorf("task has no inline network, ndex id or biggim column")
}

// filterSeeds splits the task's raw seed specification and retains the
// candidates present in the acquired network. The filtered list is built as
// a new slice, the raw list is never mutated during traversal.
func (s *Service) filterSeeds(t *model.Task) ([]string, error) {
	raw, err := t.SeedList()
	if err != nil {
		return nil, &StageError{Stage: StageFilterSeeds, Message: "could not read seeds for task", Err: err}
	}

	filtered := make([]string, 0, len(raw))
	for _, seed := range raw {
		if t.Graph.HasNode(seed) {
			filtered = append(filtered, seed)
			continue
		}
		s.logger.Infof("Seed %s not in network nodes", seed)
	}

	if len(filtered) == 0 {
		return nil, &StageError{Stage: StageFilterSeeds, Message: "no seeds are in network"}
	}
	return filtered, nil
}
