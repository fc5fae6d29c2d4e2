package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/heatwork/heatwork/internal/app/submit"
	"github.com/heatwork/heatwork/internal/printer"
	"github.com/heatwork/heatwork/internal/storage/fs"
)

// SubmitCommand creates a submitted task by hand, playing the role of the
// upstream producer.
type SubmitCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskDir     string
	client      string
	alpha       float64
	seeds       string
	networkFile string
	ndexID      string
	column      string
}

// NewSubmitCommand returns the submit command.
func NewSubmitCommand(rootCmd *RootCommand, app *kingpin.Application) *SubmitCommand {
	c := &SubmitCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("submit", "Create a submitted task.")
	c.Cmd.Arg("task-dir", "Base directory where tasks are located.").Required().StringVar(&c.taskDir)
	c.Cmd.Flag("client", "Client address the task is filed under.").Default("127.0.0.1").StringVar(&c.client)
	c.Cmd.Flag("alpha", "Diffusion alpha parameter.").Default("0.5").Float64Var(&c.alpha)
	c.Cmd.Flag("seeds", "Comma separated seed gene identifiers.").Required().StringVar(&c.seeds)
	c.Cmd.Flag("network", "Path to an inline network edge list file.").StringVar(&c.networkFile)
	c.Cmd.Flag("ndex", "NDEx network identifier.").StringVar(&c.ndexID)
	c.Cmd.Flag("column", "BigGIM column name.").StringVar(&c.column)

	return c
}

func (c SubmitCommand) Name() string { return c.Cmd.FullCommand() }

func (c SubmitCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	taskDir, err := filepath.Abs(c.taskDir)
	if err != nil {
		return fmt.Errorf("could not resolve task directory: %w", err)
	}

	repo, err := fs.NewRepository(fs.RepositoryConfig{
		TaskDir: taskDir,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create task repository: %w", err)
	}

	svc, err := submit.NewService(submit.ServiceConfig{
		Creator: repo,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	t, err := svc.Submit(ctx, submit.Request{
		Client:      c.client,
		Alpha:       c.alpha,
		Seeds:       c.seeds,
		NDEx:        c.ndexID,
		Column:      c.column,
		NetworkFile: c.networkFile,
	})
	if err != nil {
		return fmt.Errorf("could not submit task: %w", err)
	}

	uuid, err := t.UUID()
	if err != nil {
		return fmt.Errorf("could not get task id: %w", err)
	}

	p := printer.NewTablePrinter(c.rootCmd.Stdout)
	return p.PrintMessage(fmt.Sprintf("Submitted task %s at %s", uuid, t.Dir))
}
