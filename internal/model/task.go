package model

import (
	"fmt"
	"os"
	"strings"

	"github.com/heatwork/heatwork/internal/conventions"
	"github.com/heatwork/heatwork/internal/diffusion"
	"github.com/heatwork/heatwork/internal/network"
)

// TaskState represents the lifecycle state of a task, encoded positionally in
// the task's directory path.
type TaskState string

const (
	// TaskStateSubmitted indicates the task has been created by a producer
	// and not yet picked up.
	TaskStateSubmitted TaskState = "submitted"
	// TaskStateProcessing indicates the task is being worked on.
	TaskStateProcessing TaskState = "processing"
	// TaskStateDone indicates the task finished, successfully or with an
	// error recorded in its metadata.
	TaskStateDone TaskState = "done"
	// TaskStateErrored is a synthetic outcome: tasks moved to it end up in
	// the done state with an error message in their metadata. It never
	// exists as a directory on disk.
	TaskStateErrored TaskState = "errored"
)

// TaskRecord is the metadata persisted as the task.json record file inside a
// task directory.
type TaskRecord struct {
	Alpha    *float64 `json:"alpha,omitempty"`
	Seeds    string   `json:"seeds,omitempty"`
	RemoteIP string   `json:"remoteip,omitempty"`
	NDEx     string   `json:"ndex,omitempty"`
	Column   string   `json:"column,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Task is one unit of submitted work, bound to a directory whose ancestry
// encodes {base}/{state}/{client}/{uuid}. The directory path is the durable
// representation of the task's state.
type Task struct {
	Dir    string
	Record TaskRecord

	// Intermediate artifacts, held only in memory while the task is being
	// processed, never partially persisted.
	Graph         *network.Graph
	FilteredSeeds []string
	Summary       diffusion.GeneLevelSummary
	Result        map[string]float64
}

// NewTask returns a task bound to a directory.
func NewTask(dir string, record TaskRecord) *Task {
	return &Task{Dir: dir, Record: record}
}

// Parts decomposes the task directory path. This parse is the single source
// of truth for the task's state.
func (t *Task) Parts() (conventions.PathParts, error) {
	return conventions.ParseTaskPath(t.Dir)
}

// State returns the task's current state, derived from the directory path.
func (t *Task) State() (TaskState, error) {
	parts, err := t.Parts()
	if err != nil {
		return "", err
	}
	return TaskState(parts.State), nil
}

// UUID returns the task identifier, the name of the task's directory.
func (t *Task) UUID() (string, error) {
	parts, err := t.Parts()
	if err != nil {
		return "", err
	}
	return parts.UUID, nil
}

// Client returns the originating client address segment of the task path.
func (t *Task) Client() (string, error) {
	parts, err := t.Parts()
	if err != nil {
		return "", err
	}
	return parts.Client, nil
}

// AlphaValue returns the diffusion alpha parameter. It is a required field.
func (t *Task) AlphaValue() (float64, error) {
	if t.Record.Alpha == nil {
		return 0, fmt.Errorf("alpha: %w", ErrMissingField)
	}
	return *t.Record.Alpha, nil
}

// SeedList returns the raw comma separated seed specification split into
// candidate gene identifiers. Seeds are a required field.
func (t *Task) SeedList() ([]string, error) {
	if t.Record.Seeds == "" {
		return nil, fmt.Errorf("seeds: %w", ErrMissingField)
	}
	return strings.Split(t.Record.Seeds, ","), nil
}

// NetworkPath returns the path of the inline network file colocated in the
// task directory, or empty when the task has none. This governs the
// local-file vs external-source branch of network acquisition.
func (t *Task) NetworkPath() string {
	if t.Dir == "" {
		return ""
	}
	p := conventions.NetworkFilePath(t.Dir)
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return ""
	}
	return p
}

// Summarize returns a short human readable description of the task for logs.
func (t *Task) Summarize() string {
	parts, err := conventions.ParseTaskPath(t.Dir)
	if err != nil {
		return fmt.Sprintf("task at %q", t.Dir)
	}
	return fmt.Sprintf("task %s (client %s, state %s)", parts.UUID, parts.Client, parts.State)
}

// TaskCounts are per state task totals under a task root.
type TaskCounts struct {
	Submitted  int
	Processing int
	Done       int
}
