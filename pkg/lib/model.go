package lib

import (
	"errors"
	"strings"
	"time"

	"github.com/heatwork/heatwork/internal/history"
	"github.com/heatwork/heatwork/internal/model"
)

var (
	// ErrNotFound is returned when a task or result does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotValid is returned when an input is not valid.
	ErrNotValid = errors.New("not valid")
)

// TaskState represents the lifecycle state of a task.
//
// The lifecycle is:
//
//	submitted -> processing -> done
//
// There is no separate failed state: a task that errored lands in done with
// the error message set on [Task.Error].
type TaskState string

const (
	// TaskStateSubmitted indicates the task waits to be picked up.
	TaskStateSubmitted TaskState = "submitted"
	// TaskStateProcessing indicates a runner is working on the task.
	TaskStateProcessing TaskState = "processing"
	// TaskStateDone indicates the task finished, check [Task.Error] to tell
	// success from failure.
	TaskStateDone TaskState = "done"
)

// Task is a read-only snapshot of a task at the time of the API call. Use
// [Client.GetTask] to get the latest state.
type Task struct {
	// ID is the unique identifier assigned at submission.
	ID string
	// Client is the producer identity the task was submitted under.
	Client string
	// State is the current lifecycle state.
	State TaskState
	// Alpha is the diffusion restart probability.
	Alpha float64
	// Seeds are the submitted seed gene identifiers.
	Seeds []string
	// NDEx is the NDEx network UUID, when that source was used.
	NDEx string
	// Column is the BigGIM column, when that source was used.
	Column string
	// Error is the failure message of a done task. Empty means success.
	Error string
}

// SubmitTaskOpts configures a task submission.
//
// Client, Alpha and Seeds are required, plus exactly one network source.
type SubmitTaskOpts struct {
	// Client identifies the producer, typically its IP address (required).
	Client string
	// Alpha is the diffusion restart probability, in (0, 1) (required).
	Alpha float64
	// Seeds are the seed gene identifiers (required, at least one).
	Seeds []string
	// NetworkFile is a local SIF file copied into the task as its network.
	NetworkFile string
	// NDEx is an NDEx network UUID to fetch the network from.
	NDEx string
	// Column is a BigGIM interaction table column to build the network from.
	Column string
}

// Counts are per state task totals of a task tree.
type Counts struct {
	Submitted  int
	Processing int
	Done       int
}

// Outcome is the final result of one recorded task attempt.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Attempt is one end-to-end processing attempt from the history ledger.
type Attempt struct {
	ID        string
	TaskID    string
	Client    string
	Outcome   Outcome
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

func fromInternalTask(t *model.Task) (Task, error) {
	parts, err := t.Parts()
	if err != nil {
		return Task{}, err
	}

	out := Task{
		ID:     parts.UUID,
		Client: parts.Client,
		State:  TaskState(parts.State),
		NDEx:   t.Record.NDEx,
		Column: t.Record.Column,
		Error:  t.Record.Error,
	}
	if t.Record.Alpha != nil {
		out.Alpha = *t.Record.Alpha
	}
	if t.Record.Seeds != "" {
		out.Seeds = strings.Split(t.Record.Seeds, ",")
	}
	return out, nil
}

func fromInternalCounts(c model.TaskCounts) Counts {
	return Counts{
		Submitted:  c.Submitted,
		Processing: c.Processing,
		Done:       c.Done,
	}
}

func fromInternalAttempts(as []history.Attempt) []Attempt {
	result := make([]Attempt, len(as))
	for i, a := range as {
		result[i] = Attempt{
			ID:        a.ID,
			TaskID:    a.TaskID,
			Client:    a.Client,
			Outcome:   Outcome(a.Outcome),
			Error:     a.Error,
			StartedAt: a.StartedAt,
			Duration:  a.Duration,
		}
	}
	return result
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case errors.Is(err, model.ErrNotValid), errors.Is(err, model.ErrMissingField):
		return joinErrors(err, ErrNotValid)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
