package lib_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heatwork/heatwork/internal/conventions"
	"github.com/heatwork/heatwork/pkg/lib"
)

// newTestClient creates a client over a temp task tree for test isolation.
func newTestClient(t *testing.T) (*lib.Client, string) {
	t.Helper()

	taskDir := filepath.Join(t.TempDir(), "tasks")
	client, err := lib.New(context.Background(), lib.Config{TaskDir: taskDir})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client, taskDir
}

func TestSubmitTask(t *testing.T) {
	tests := map[string]struct {
		opts   lib.SubmitTaskOpts
		expErr bool
		expIs  error
	}{
		"Submitting an NDEx task should work.": {
			opts: lib.SubmitTaskOpts{
				Client: "10.0.0.1",
				Alpha:  0.5,
				Seeds:  []string{"TP53", "MDM2"},
				NDEx:   "net-1",
			},
		},

		"Submitting a BigGIM column task should work.": {
			opts: lib.SubmitTaskOpts{
				Client: "10.0.0.1",
				Alpha:  0.2,
				Seeds:  []string{"TP53"},
				Column: "GTEx_Brain_Correlation",
			},
		},

		"Submitting without a client should fail.": {
			opts: lib.SubmitTaskOpts{
				Alpha: 0.5,
				Seeds: []string{"TP53"},
				NDEx:  "net-1",
			},
			expErr: true,
			expIs:  lib.ErrNotValid,
		},

		"Submitting without seeds should fail.": {
			opts: lib.SubmitTaskOpts{
				Client: "10.0.0.1",
				Alpha:  0.5,
				NDEx:   "net-1",
			},
			expErr: true,
			expIs:  lib.ErrNotValid,
		},

		"Submitting with alpha out of range should fail.": {
			opts: lib.SubmitTaskOpts{
				Client: "10.0.0.1",
				Alpha:  2,
				Seeds:  []string{"TP53"},
				NDEx:   "net-1",
			},
			expErr: true,
			expIs:  lib.ErrNotValid,
		},

		"Submitting with two network sources should fail.": {
			opts: lib.SubmitTaskOpts{
				Client: "10.0.0.1",
				Alpha:  0.5,
				Seeds:  []string{"TP53"},
				NDEx:   "net-1",
				Column: "GTEx_Brain_Correlation",
			},
			expErr: true,
			expIs:  lib.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			client, _ := newTestClient(t)
			ctx := context.Background()

			task, err := client.SubmitTask(ctx, test.opts)

			if test.expErr {
				assert.Error(err)
				if test.expIs != nil {
					assert.True(errors.Is(err, test.expIs), "expected error %v, got: %v", test.expIs, err)
				}
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(task.ID)
			assert.Equal(test.opts.Client, task.Client)
			assert.Equal(lib.TaskStateSubmitted, task.State)
			assert.Equal(test.opts.Alpha, task.Alpha)
			assert.Equal(test.opts.Seeds, task.Seeds)
		})
	}
}

func TestSubmitTaskInlineNetwork(t *testing.T) {
	client, taskDir := newTestClient(t)
	ctx := context.Background()

	sif := filepath.Join(t.TempDir(), "net.sif")
	require.NoError(t, os.WriteFile(sif, []byte("TP53\tMDM2\t0.9\n"), 0644))

	task, err := client.SubmitTask(ctx, lib.SubmitTaskOpts{
		Client:      "10.0.0.1",
		Alpha:       0.5,
		Seeds:       []string{"TP53"},
		NetworkFile: sif,
	})
	require.NoError(t, err)

	netFile := conventions.NetworkFilePath(conventions.TaskDir(taskDir, "submitted", "10.0.0.1", task.ID))
	data, err := os.ReadFile(netFile)
	require.NoError(t, err)
	assert.Equal(t, "TP53\tMDM2\t0.9\n", string(data))
}

func TestGetTask(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	submitted, err := client.SubmitTask(ctx, lib.SubmitTaskOpts{
		Client: "10.0.0.1",
		Alpha:  0.5,
		Seeds:  []string{"TP53"},
		NDEx:   "net-1",
	})
	require.NoError(t, err)

	got, err := client.GetTask(ctx, submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, submitted, got)

	_, err = client.GetTask(ctx, "does-not-exist")
	assert.True(t, errors.Is(err, lib.ErrNotFound), "expected ErrNotFound, got: %v", err)
}

func TestResult(t *testing.T) {
	client, taskDir := newTestClient(t)
	ctx := context.Background()

	task, err := client.SubmitTask(ctx, lib.SubmitTaskOpts{
		Client: "10.0.0.1",
		Alpha:  0.5,
		Seeds:  []string{"TP53"},
		NDEx:   "net-1",
	})
	require.NoError(t, err)

	t.Run("A task without a result yet should report not found.", func(t *testing.T) {
		_, err := client.Result(ctx, task.ID)
		assert.True(t, errors.Is(err, lib.ErrNotFound), "expected ErrNotFound, got: %v", err)
	})

	t.Run("A finished task should hand back its heat scores.", func(t *testing.T) {
		// Finish the task the way a runner would: relocate the directory
		// to done and drop the result file next to the record.
		oldDir := conventions.TaskDir(taskDir, "submitted", "10.0.0.1", task.ID)
		doneDir := conventions.TaskDir(taskDir, "done", "10.0.0.1", task.ID)
		require.NoError(t, os.MkdirAll(filepath.Dir(doneDir), 0755))
		require.NoError(t, os.Rename(oldDir, doneDir))
		scores, err := json.Marshal(map[string]float64{"TP53": 0.9, "MDM2": 0.1})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(conventions.ResultFilePath(doneDir), scores, 0644))

		result, err := client.Result(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, map[string]float64{"TP53": 0.9, "MDM2": 0.1}, result)

		got, err := client.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, lib.TaskStateDone, got.State)
	})
}

func TestStatus(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	for _, c := range []string{"10.0.0.1", "10.0.0.2"} {
		_, err := client.SubmitTask(ctx, lib.SubmitTaskOpts{
			Client: c,
			Alpha:  0.5,
			Seeds:  []string{"TP53"},
			NDEx:   "net-1",
		})
		require.NoError(t, err)
	}

	counts, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, lib.Counts{Submitted: 2}, counts)
}

func TestListHistory(t *testing.T) {
	t.Run("Without a history database there is nothing to list.", func(t *testing.T) {
		client, _ := newTestClient(t)

		attempts, err := client.ListHistory(context.Background(), 10)
		require.NoError(t, err)
		assert.Empty(t, attempts)
	})

	t.Run("With a history database attempts are listed.", func(t *testing.T) {
		taskDir := filepath.Join(t.TempDir(), "tasks")
		client, err := lib.New(context.Background(), lib.Config{
			TaskDir:       taskDir,
			HistoryDBPath: filepath.Join(t.TempDir(), "history.db"),
		})
		require.NoError(t, err)
		defer client.Close()

		attempts, err := client.ListHistory(context.Background(), 10)
		require.NoError(t, err)
		assert.Empty(t, attempts)
	})
}
