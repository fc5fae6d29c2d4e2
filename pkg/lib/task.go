package lib

import (
	"context"
	"fmt"
	"strings"

	"github.com/heatwork/heatwork/internal/app/status"
	"github.com/heatwork/heatwork/internal/app/submit"
)

// SubmitTask creates a new submitted task in the tree.
//
// Returns [ErrNotValid] when a required field is missing, alpha is out of
// (0, 1) or not exactly one network source is given.
func (c *Client) SubmitTask(ctx context.Context, opts SubmitTaskOpts) (*Task, error) {
	svc, err := submit.NewService(submit.ServiceConfig{
		Creator: c.repo,
		Logger:  c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	created, err := svc.Submit(ctx, submit.Request{
		Client:      opts.Client,
		Alpha:       opts.Alpha,
		Seeds:       strings.Join(opts.Seeds, ","),
		NDEx:        opts.NDEx,
		Column:      opts.Column,
		NetworkFile: opts.NetworkFile,
	})
	if err != nil {
		return nil, mapError(err)
	}

	result, err := fromInternalTask(created)
	if err != nil {
		return nil, mapError(err)
	}
	return &result, nil
}

// GetTask looks a task up by its identifier, whatever state it is in.
//
// Returns [ErrNotFound] when no task with that identifier exists.
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	t, err := c.repo.FindTask(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}

	result, err := fromInternalTask(t)
	if err != nil {
		return nil, mapError(err)
	}
	return &result, nil
}

// Result returns the heat scores of a successfully finished task.
//
// Returns [ErrNotFound] when the task does not exist or has no result yet,
// and the recorded failure as an error for tasks that finished with one.
func (c *Client) Result(ctx context.Context, id string) (map[string]float64, error) {
	t, err := c.repo.FindTask(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	if t.Record.Error != "" {
		return nil, fmt.Errorf("task %s failed: %s", id, t.Record.Error)
	}

	result, err := c.repo.ReadResult(ctx, t)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// Status returns per state task totals of the tree.
func (c *Client) Status(ctx context.Context) (Counts, error) {
	svc, err := status.NewService(status.ServiceConfig{
		Counter: c.repo,
		Logger:  c.logger,
	})
	if err != nil {
		return Counts{}, fmt.Errorf("could not create service: %w", err)
	}

	counts, err := svc.Run(ctx)
	if err != nil {
		return Counts{}, mapError(err)
	}
	return fromInternalCounts(*counts), nil
}

// ListHistory returns the most recent attempts from the history ledger,
// newest first. Without a configured history database it returns nothing.
func (c *Client) ListHistory(ctx context.Context, limit int) ([]Attempt, error) {
	attempts, err := c.history.ListAttempts(ctx, limit)
	if err != nil {
		return nil, mapError(err)
	}
	return fromInternalAttempts(attempts), nil
}
