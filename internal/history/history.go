package history

import (
	"context"
	"time"
)

// Outcome is the final result of one task attempt.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Attempt is one end-to-end processing attempt of a task.
type Attempt struct {
	ID        string
	TaskID    string
	Client    string
	Outcome   Outcome
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// Recorder keeps a ledger of finished task attempts. Recording sits outside
// the task state machine, the filesystem stays the only source of truth for
// task state.
type Recorder interface {
	// RecordAttempt appends a finished attempt to the ledger.
	RecordAttempt(ctx context.Context, a Attempt) error

	// ListAttempts returns the most recent attempts, newest first.
	ListAttempts(ctx context.Context, limit int) ([]Attempt, error)
}

// Noop recorder discards everything.
const Noop = noop(0)

type noop int

var _ Recorder = Noop

func (noop) RecordAttempt(context.Context, Attempt) error { return nil }
func (noop) ListAttempts(context.Context, int) ([]Attempt, error) {
	return nil, nil
}
