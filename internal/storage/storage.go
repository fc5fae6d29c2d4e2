package storage

import (
	"context"

	"github.com/heatwork/heatwork/internal/model"
)

// TaskRepository is the interface for task persistence and state transitions.
type TaskRepository interface {
	// GetNextTask returns the next submitted task, or nil when there is none.
	GetNextTask(ctx context.Context) (*model.Task, error)

	// SaveTask serializes the task metadata to its record file, and the
	// result to the result file when one has been attached.
	SaveTask(ctx context.Context, t *model.Task) error

	// MoveTask transitions the task to a new state by relocating its
	// directory. Moving to the state the task already occupies is a no-op.
	MoveTask(ctx context.Context, t *model.Task, newState model.TaskState, errorMessage string) error

	// CleanUpQuarantine retires every quarantined task to the error outcome
	// and empties the quarantine list.
	CleanUpQuarantine(ctx context.Context) error

	// QuarantineSize returns the number of quarantined task directories.
	QuarantineSize() int
}
