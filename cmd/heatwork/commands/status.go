package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/heatwork/heatwork/internal/app/status"
	"github.com/heatwork/heatwork/internal/printer"
	"github.com/heatwork/heatwork/internal/storage/fs"
)

// StatusCommand prints per state task totals of a task tree.
type StatusCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskDir string
	format  string
}

// NewStatusCommand returns the status command.
func NewStatusCommand(rootCmd *RootCommand, app *kingpin.Application) *StatusCommand {
	c := &StatusCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("status", "Show task totals per state.")
	c.Cmd.Arg("task-dir", "Base directory where tasks are located.").Required().StringVar(&c.taskDir)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c StatusCommand) Name() string { return c.Cmd.FullCommand() }

func (c StatusCommand) Run(ctx context.Context) error {
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

	svc, err := status.NewService(status.ServiceConfig{
		Counter: repo,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	counts, err := svc.Run(ctx)
	if err != nil {
		return fmt.Errorf("could not get task totals: %w", err)
	}

	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintCounts(*counts); err != nil {
		return fmt.Errorf("could not print task totals: %w", err)
	}

	return nil
}
