package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/heatwork/heatwork/internal/app/process"
	"github.com/heatwork/heatwork/internal/app/runner"
	"github.com/heatwork/heatwork/internal/config"
	"github.com/heatwork/heatwork/internal/diffusion/randomwalk"
	"github.com/heatwork/heatwork/internal/history"
	historysqlite "github.com/heatwork/heatwork/internal/history/sqlite"
	"github.com/heatwork/heatwork/internal/network/biggim"
	"github.com/heatwork/heatwork/internal/network/ndex"
	"github.com/heatwork/heatwork/internal/storage/fs"
)

// RunCommand runs the task runner daemon: it polls the task tree for
// submitted tasks and processes them until terminated.
type RunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskDir          string
	waitTime         time.Duration
	cleanupThreshold int
	configPath       string
	ndexServer       string
	biggimURL        string
	biggimThreshold  float64
	noHistory        bool
}

// NewRunCommand returns the run command.
func NewRunCommand(rootCmd *RootCommand, app *kingpin.Application) *RunCommand {
	c := &RunCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("run", "Run the task runner daemon.")
	c.Cmd.Arg("task-dir", "Base directory where tasks are located.").Required().StringVar(&c.taskDir)
	c.Cmd.Flag("wait", "Time to wait before looking for new tasks.").Default("30s").DurationVar(&c.waitTime)
	c.Cmd.Flag("cleanup-threshold", "Idle polls before quarantined tasks are retired.").Default("3").IntVar(&c.cleanupThreshold)
	c.Cmd.Flag("config", "Path to a YAML run settings file.").StringVar(&c.configPath)
	c.Cmd.Flag("ndex-server", "NDEx server host.").Default(ndex.DefaultServer).StringVar(&c.ndexServer)
	c.Cmd.Flag("biggim-url", "BigGIM API base URL.").Default(biggim.DefaultBaseURL).StringVar(&c.biggimURL)
	c.Cmd.Flag("biggim-threshold", "BigGIM edge restriction threshold.").Default("0.8").Float64Var(&c.biggimThreshold)
	c.Cmd.Flag("no-history", "Disable the task attempt ledger.").BoolVar(&c.noHistory)

	return c
}

func (c RunCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	if err := c.applyConfigFile(ctx); err != nil {
		return err
	}

	taskDir, err := filepath.Abs(c.taskDir)
	if err != nil {
		return fmt.Errorf("could not resolve task directory: %w", err)
	}
	logger.Debugf("Task directory set to %s", taskDir)

	// Task store over the directory tree.
	repo, err := fs.NewRepository(fs.RepositoryConfig{
		TaskDir: taskDir,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create task repository: %w", err)
	}

	// External network sources.
	ndexCli, err := ndex.NewClient(ndex.ClientConfig{
		Server: c.ndexServer,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create ndex client: %w", err)
	}
	biggimCli, err := biggim.NewClient(biggim.ClientConfig{
		BaseURL:   c.biggimURL,
		Threshold: c.biggimThreshold,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("could not create biggim client: %w", err)
	}

	// Diffusion step.
	diffuser, err := randomwalk.NewDiffuser(randomwalk.DiffuserConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create diffuser: %w", err)
	}

	// Pipeline.
	processor, err := process.NewService(process.ServiceConfig{
		NDEx:     ndexCli,
		BigGIM:   biggimCli,
		Diffuser: diffuser,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create pipeline service: %w", err)
	}

	// Attempt ledger.
	var recorder history.Recorder = history.Noop
	if !c.noHistory {
		sqlRecorder, err := historysqlite.NewRecorder(ctx, historysqlite.RecorderConfig{
			DBPath: c.rootCmd.HistoryDBPath,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("could not create history recorder: %w", err)
		}
		defer sqlRecorder.Close()
		recorder = sqlRecorder
	}

	r, err := runner.NewRunner(runner.Config{
		Repository:       repo,
		Processor:        processor,
		History:          recorder,
		WaitTime:         c.waitTime,
		CleanupThreshold: c.cleanupThreshold,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("could not create runner: %w", err)
	}

	return r.Run(ctx)
}

// applyConfigFile overlays the optional YAML run settings file on top of the
// command flags.
func (c *RunCommand) applyConfigFile(ctx context.Context) error {
	if c.configPath == "" {
		return nil
	}

	loader := config.NewYAMLLoader(os.DirFS("/"))
	path, err := filepath.Abs(c.configPath)
	if err != nil {
		return fmt.Errorf("could not resolve config path: %w", err)
	}
	cfg, err := loader.GetRun(ctx, path[1:])
	if err != nil {
		return fmt.Errorf("could not load run settings: %w", err)
	}

	if cfg.WaitTime > 0 {
		c.waitTime = cfg.WaitTime
	}
	if cfg.CleanupThreshold > 0 {
		c.cleanupThreshold = cfg.CleanupThreshold
	}
	if cfg.NDExServer != "" {
		c.ndexServer = cfg.NDExServer
	}
	if cfg.BigGIMBaseURL != "" {
		c.biggimURL = cfg.BigGIMBaseURL
	}
	if cfg.BigGIMThreshold > 0 {
		c.biggimThreshold = cfg.BigGIMThreshold
	}

	return nil
}
