package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/heatwork/heatwork/internal/conventions"
	"github.com/heatwork/heatwork/internal/log"
	"github.com/heatwork/heatwork/internal/model"
)

// quarantineErrorMessage is recorded on tasks retired from quarantine, their
// record never parsed so nothing more specific is known.
const quarantineErrorMessage = "Unknown error with task"

// RepositoryConfig is the configuration for the filesystem repository.
type RepositoryConfig struct {
	// TaskDir is the base directory of the task tree.
	TaskDir string
	Logger  log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.TaskDir == "" {
		return fmt.Errorf("task directory is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.FS"})
	return nil
}

// Repository is a filesystem implementation of storage.TaskRepository: the
// directory tree is the database. Task state lives in the directory path and
// directory rename is the atomic unit of every transition.
//
// A single consumer is assumed. Multiple repository instances polling the
// same tree can race claiming a task, nothing prevents it.
type Repository struct {
	taskDir    string
	submitDir  string
	quarantine map[string]struct{}
	mu         sync.Mutex
	logger     log.Logger
}

// NewRepository creates a new filesystem repository over an existing base
// directory.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	info, err := os.Stat(cfg.TaskDir)
	if err != nil {
		return nil, fmt.Errorf("could not stat task directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("task directory %q is not a directory: %w", cfg.TaskDir, model.ErrNotValid)
	}

	return &Repository{
		taskDir:    cfg.TaskDir,
		submitDir:  conventions.StateDir(cfg.TaskDir, string(model.TaskStateSubmitted)),
		quarantine: map[string]struct{}{},
		logger:     cfg.Logger,
	}, nil
}

// GetNextTask scans the submitted subtree (one level of client directories,
// one level of task directories inside each) and returns the first task with
// a parseable record file. Scan order is directory listing order, callers
// must not rely on FIFO semantics. Task directories whose record is missing
// or unparseable are quarantined and skipped, the scan continues. Returns nil
// when no task is found or the submitted directory does not exist.
func (r *Repository) GetNextTask(ctx context.Context) (*model.Task, error) {
	clients, err := os.ReadDir(r.submitDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not list submitted directory: %w", err)
	}

	for _, client := range clients {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !client.IsDir() {
			continue
		}

		clientDir := filepath.Join(r.submitDir, client.Name())
		entries, err := os.ReadDir(clientDir)
		if err != nil {
			r.logger.Warningf("Could not list client directory %s: %s", clientDir, err)
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			taskDir := filepath.Join(clientDir, entry.Name())
			record, err := readRecord(taskDir)
			if err != nil {
				r.addToQuarantine(taskDir, err)
				continue
			}

			return model.NewTask(taskDir, *record), nil
		}
	}

	return nil, nil
}

// SaveTask writes the task metadata to the record file in the task's current
// directory. When a result has been attached it is written to the result
// file, after the record.
func (r *Repository) SaveTask(ctx context.Context, t *model.Task) error {
	if t.Dir == "" {
		return fmt.Errorf("task directory is not set: %w", model.ErrNotValid)
	}

	data, err := json.Marshal(t.Record)
	if err != nil {
		return fmt.Errorf("could not serialize task record: %w", err)
	}
	recordPath := conventions.TaskFilePath(t.Dir)
	r.logger.Debugf("Writing task record to %s", recordPath)
	if err := os.WriteFile(recordPath, data, 0644); err != nil {
		return fmt.Errorf("could not write task record: %w", err)
	}

	if t.Result != nil {
		data, err := json.Marshal(t.Result)
		if err != nil {
			return fmt.Errorf("could not serialize result: %w", err)
		}
		resultPath := conventions.ResultFilePath(t.Dir)
		r.logger.Debugf("Writing result to %s", resultPath)
		if err := os.WriteFile(resultPath, data, 0644); err != nil {
			return fmt.Errorf("could not write result: %w", err)
		}
	}

	return nil
}

// MoveTask transitions a task to a new state with a single atomic directory
// rename. The current state is recomputed from the directory path. Moving to
// the state the task already occupies is detected and short-circuited,
// moving backward is rejected. The synthetic errored state is folded into
// done: the error message is stored in the record, the record saved in
// place, and the directory relocated to done.
func (r *Repository) MoveTask(ctx context.Context, t *model.Task, newState model.TaskState, errorMessage string) error {
	parts, err := conventions.ParseTaskPath(t.Dir)
	if err != nil {
		return fmt.Errorf("could not extract state and base directory from task path: %w", err)
	}

	if parts.State == string(newState) {
		r.logger.Debugf("Task %s already in state %s", parts.UUID, newState)
		return nil
	}

	if newState == model.TaskStateErrored {
		newState = model.TaskStateDone
		if errorMessage == "" {
			errorMessage = "Unknown error"
		}
		if parts.State != string(newState) {
			r.logger.Infof("Task %s set to error state: %s", parts.UUID, errorMessage)
			t.Record.Error = errorMessage
			if err := r.SaveTask(ctx, t); err != nil {
				return fmt.Errorf("could not save error message: %w", err)
			}
		}
	}

	if parts.State == string(newState) {
		return nil
	}
	if stateRank(newState) < stateRank(model.TaskState(parts.State)) {
		return fmt.Errorf("cannot move task %s backward from %s to %s: %w", parts.UUID, parts.State, newState, model.ErrNotValid)
	}

	newDir := conventions.TaskDir(parts.Base, string(newState), parts.Client, parts.UUID)
	r.logger.Debugf("Changing task %s to state %s", parts.UUID, newState)

	if err := os.MkdirAll(filepath.Dir(newDir), 0755); err != nil {
		return fmt.Errorf("could not create state directory: %w", err)
	}
	if err := os.Rename(t.Dir, newDir); err != nil {
		return fmt.Errorf("could not relocate task directory: %w", err)
	}
	t.Dir = newDir

	return nil
}

// CleanUpQuarantine retires every quarantined task to the error outcome with
// a generic message and empties the quarantine list in one pass. Retirement
// is best effort, a task whose directory can no longer be moved is dropped
// from the list anyway.
func (r *Repository) CleanUpQuarantine(ctx context.Context) error {
	r.mu.Lock()
	dirs := make([]string, 0, len(r.quarantine))
	for dir := range r.quarantine {
		dirs = append(dirs, dir)
	}
	r.quarantine = map[string]struct{}{}
	r.mu.Unlock()

	sort.Strings(dirs)
	r.logger.Debugf("Cleaning up %d quarantined tasks", len(dirs))

	for _, dir := range dirs {
		t := model.NewTask(dir, model.TaskRecord{})
		if err := r.MoveTask(ctx, t, model.TaskStateErrored, quarantineErrorMessage); err != nil {
			r.logger.Errorf("Could not retire quarantined task %s: %s", dir, err)
		}
	}

	return nil
}

// QuarantineSize returns the number of quarantined task directories.
func (r *Repository) QuarantineSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.quarantine)
}

// CreateTask creates a new submitted task for a client: a fresh UUID
// directory with the serialized record, and an optional inline network file
// copied from networkFile. The record file is written last so a concurrent
// scan never sees a claimable half-written task.
func (r *Repository) CreateTask(ctx context.Context, client string, record model.TaskRecord, networkFile string) (*model.Task, error) {
	if client == "" {
		return nil, fmt.Errorf("client is required: %w", model.ErrNotValid)
	}

	id := uuid.NewString()
	taskDir := conventions.TaskDir(r.taskDir, string(model.TaskStateSubmitted), client, id)
	if err := os.MkdirAll(taskDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create task directory: %w", err)
	}

	if networkFile != "" {
		data, err := os.ReadFile(networkFile)
		if err != nil {
			return nil, fmt.Errorf("could not read network file: %w", err)
		}
		if err := os.WriteFile(conventions.NetworkFilePath(taskDir), data, 0644); err != nil {
			return nil, fmt.Errorf("could not write network file: %w", err)
		}
	}

	t := model.NewTask(taskDir, record)
	if err := r.SaveTask(ctx, t); err != nil {
		return nil, err
	}

	r.logger.Infof("Created task %s for client %s", id, client)
	return t, nil
}

// FindTask looks a task up by its identifier across every state of the tree.
func (r *Repository) FindTask(ctx context.Context, id string) (*model.Task, error) {
	if id == "" {
		return nil, fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}

	for _, state := range []model.TaskState{model.TaskStateSubmitted, model.TaskStateProcessing, model.TaskStateDone} {
		stateDir := conventions.StateDir(r.taskDir, string(state))
		clients, err := os.ReadDir(stateDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("could not list %s directory: %w", state, err)
		}

		for _, client := range clients {
			if !client.IsDir() {
				continue
			}
			taskDir := conventions.TaskDir(r.taskDir, string(state), client.Name(), id)
			info, err := os.Stat(taskDir)
			if err != nil || !info.IsDir() {
				continue
			}

			record, err := readRecord(taskDir)
			if err != nil {
				return nil, fmt.Errorf("task %s found but its record is unreadable: %w", id, err)
			}
			return model.NewTask(taskDir, *record), nil
		}
	}

	return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
}

// ReadResult reads the persisted result file of a task. Only present once the
// task finished successfully.
func (r *Repository) ReadResult(ctx context.Context, t *model.Task) (map[string]float64, error) {
	data, err := os.ReadFile(conventions.ResultFilePath(t.Dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("task has no result: %w", model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not read result: %w", err)
	}

	result := map[string]float64{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("could not parse result: %w", err)
	}
	return result, nil
}

// CountTasks counts the task directories under every state of the task tree.
func (r *Repository) CountTasks(ctx context.Context) (model.TaskCounts, error) {
	counts := model.TaskCounts{}
	for _, s := range []struct {
		state model.TaskState
		dst   *int
	}{
		{model.TaskStateSubmitted, &counts.Submitted},
		{model.TaskStateProcessing, &counts.Processing},
		{model.TaskStateDone, &counts.Done},
	} {
		n, err := r.countState(s.state)
		if err != nil {
			return model.TaskCounts{}, err
		}
		*s.dst = n
	}
	return counts, nil
}

func (r *Repository) countState(state model.TaskState) (int, error) {
	stateDir := conventions.StateDir(r.taskDir, string(state))
	clients, err := os.ReadDir(stateDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("could not list %s directory: %w", state, err)
	}

	total := 0
	for _, client := range clients {
		if !client.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(stateDir, client.Name()))
		if err != nil {
			return 0, fmt.Errorf("could not list client directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				total++
			}
		}
	}
	return total, nil
}

func (r *Repository) addToQuarantine(taskDir string, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.quarantine[taskDir]; ok {
		return
	}
	r.quarantine[taskDir] = struct{}{}
	r.logger.Infof("Skipping task %s, could not read record file: %s", taskDir, cause)
}

func readRecord(taskDir string) (*model.TaskRecord, error) {
	data, err := os.ReadFile(conventions.TaskFilePath(taskDir))
	if err != nil {
		return nil, fmt.Errorf("could not read task record: %w", err)
	}

	record := &model.TaskRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("could not parse task record: %w", err)
	}
	return record, nil
}

func stateRank(s model.TaskState) int {
	switch s {
	case model.TaskStateSubmitted:
		return 0
	case model.TaskStateProcessing:
		return 1
	case model.TaskStateDone, model.TaskStateErrored:
		return 2
	default:
		return -1
	}
}
