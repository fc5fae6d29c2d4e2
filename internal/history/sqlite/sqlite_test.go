package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heatwork/heatwork/internal/history"
	"github.com/heatwork/heatwork/internal/history/sqlite"
)

func newRecorder(t *testing.T) *sqlite.Recorder {
	t.Helper()

	recorder, err := sqlite.NewRecorder(context.Background(), sqlite.RecorderConfig{
		DBPath: filepath.Join(t.TempDir(), "history.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { recorder.Close() })
	return recorder
}

func TestRecorderRoundTrip(t *testing.T) {
	recorder := newRecorder(t)
	started := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	attempt := history.Attempt{
		TaskID:    "abc",
		Client:    "1.2.3.4",
		Outcome:   history.OutcomeSucceeded,
		StartedAt: started,
		Duration:  1500 * time.Millisecond,
	}
	require.NoError(t, recorder.RecordAttempt(context.Background(), attempt))

	attempts, err := recorder.ListAttempts(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, attempts, 1)

	got := attempts[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "abc", got.TaskID)
	assert.Equal(t, "1.2.3.4", got.Client)
	assert.Equal(t, history.OutcomeSucceeded, got.Outcome)
	assert.Empty(t, got.Error)
	assert.Equal(t, started, got.StartedAt)
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
}

func TestRecorderListNewestFirst(t *testing.T) {
	recorder := newRecorder(t)
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	for i, taskID := range []string{"t1", "t2", "t3"} {
		require.NoError(t, recorder.RecordAttempt(context.Background(), history.Attempt{
			TaskID:    taskID,
			Client:    "1.2.3.4",
			Outcome:   history.OutcomeFailed,
			Error:     "boom",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	attempts, err := recorder.ListAttempts(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, "t3", attempts[0].TaskID)
	assert.Equal(t, "t2", attempts[1].TaskID)
	assert.Equal(t, "boom", attempts[0].Error)
}

func TestRecorderRequiresDBPath(t *testing.T) {
	_, err := sqlite.NewRecorder(context.Background(), sqlite.RecorderConfig{})
	require.Error(t, err)
}

func TestRecorderReopen(t *testing.T) {
	// The ledger survives recorder restarts, migrations are idempotent.
	dbPath := filepath.Join(t.TempDir(), "history.db")

	recorder, err := sqlite.NewRecorder(context.Background(), sqlite.RecorderConfig{DBPath: dbPath})
	require.NoError(t, err)
	require.NoError(t, recorder.RecordAttempt(context.Background(), history.Attempt{
		TaskID:    "abc",
		Client:    "1.2.3.4",
		Outcome:   history.OutcomeSucceeded,
		StartedAt: time.Now(),
	}))
	require.NoError(t, recorder.Close())

	reopened, err := sqlite.NewRecorder(context.Background(), sqlite.RecorderConfig{DBPath: dbPath})
	require.NoError(t, err)
	defer reopened.Close()

	attempts, err := reopened.ListAttempts(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "abc", attempts[0].TaskID)
}
