package conventions

import (
	"fmt"
	"path/filepath"
)

const (
	// TaskFile is the metadata record file inside a task directory.
	TaskFile = "task.json"
	// ResultFile is the diffusion result file written next to the record on success.
	ResultFile = "result.json"
	// NetworkFile is the optional inline network edge list inside a task directory.
	NetworkFile = "network.dat"
)

// PathParts are the components encoded in a task directory path:
// {base}/{state}/{client}/{uuid}.
type PathParts struct {
	Base   string
	State  string
	Client string
	UUID   string
}

// TaskDir returns the directory for a task in a given state.
func TaskDir(base, state, client, uuid string) string {
	return filepath.Join(base, state, client, uuid)
}

// StateDir returns the root directory of a state.
func StateDir(base, state string) string {
	return filepath.Join(base, state)
}

// TaskFilePath returns the path of the task record file inside a task directory.
func TaskFilePath(taskDir string) string {
	return filepath.Join(taskDir, TaskFile)
}

// ResultFilePath returns the path of the result file inside a task directory.
func ResultFilePath(taskDir string) string {
	return filepath.Join(taskDir, ResultFile)
}

// NetworkFilePath returns the path of the inline network file inside a task directory.
func NetworkFilePath(taskDir string) string {
	return filepath.Join(taskDir, NetworkFile)
}

// ParseTaskPath decomposes a task directory path into its parts. The path is
// the single source of truth for a task's state, there is no stored state
// field that could drift from it.
func ParseTaskPath(taskDir string) (PathParts, error) {
	if taskDir == "" {
		return PathParts{}, fmt.Errorf("task directory is not set")
	}

	dir := filepath.Clean(taskDir)
	uuid := filepath.Base(dir)
	clientDir := filepath.Dir(dir)
	client := filepath.Base(clientDir)
	stateDir := filepath.Dir(clientDir)
	state := filepath.Base(stateDir)
	base := filepath.Dir(stateDir)

	for _, part := range []string{uuid, client, state} {
		if part == "." || part == string(filepath.Separator) || part == "" {
			return PathParts{}, fmt.Errorf("could not extract state and base directory from task path %q", taskDir)
		}
	}

	return PathParts{
		Base:   base,
		State:  state,
		Client: client,
		UUID:   uuid,
	}, nil
}
