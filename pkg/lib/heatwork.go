package lib

import (
	"context"
	"fmt"
	"os"

	"github.com/heatwork/heatwork/internal/history"
	historysqlite "github.com/heatwork/heatwork/internal/history/sqlite"
	"github.com/heatwork/heatwork/internal/log"
	"github.com/heatwork/heatwork/internal/storage/fs"
)

// Config configures the SDK client.
//
// TaskDir is required, everything else is optional.
type Config struct {
	// TaskDir is the base directory of the task tree shared with the runner
	// daemon. It is created when missing.
	TaskDir string

	// HistoryDBPath is the SQLite history ledger path. When empty,
	// [Client.ListHistory] has nothing to report and returns no attempts.
	HistoryDBPath string

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.TaskDir == "" {
		return fmt.Errorf("task directory is required: %w", ErrNotValid)
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	return nil
}

// Client is the main SDK entry point for producing and inspecting tasks.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	repo    *fs.Repository
	history history.Recorder
	logger  log.Logger
	closeFn func() error
}

// New creates a new SDK client over a task tree.
//
// The caller must call [Client.Close] when done. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{TaskDir: dir})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(cfg.TaskDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create task directory: %w", err)
	}

	repo, err := fs.NewRepository(fs.RepositoryConfig{
		TaskDir: cfg.TaskDir,
		Logger:  cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	var recorder history.Recorder = history.Noop
	closeFn := func() error { return nil }
	if cfg.HistoryDBPath != "" {
		r, err := historysqlite.NewRecorder(ctx, historysqlite.RecorderConfig{
			DBPath: cfg.HistoryDBPath,
			Logger: cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not open history ledger: %w", err)
		}
		recorder = r
		closeFn = r.Close
	}

	return &Client{
		repo:    repo,
		history: recorder,
		logger:  cfg.Logger,
		closeFn: closeFn,
	}, nil
}

// Close releases resources held by the client. After Close returns, the
// client must not be used.
func (c *Client) Close() error {
	return c.closeFn()
}
