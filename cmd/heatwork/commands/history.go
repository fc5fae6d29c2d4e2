package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	historysqlite "github.com/heatwork/heatwork/internal/history/sqlite"
	"github.com/heatwork/heatwork/internal/printer"
)

// HistoryCommand lists recent task attempts from the ledger.
type HistoryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	limit  int
	format string
}

// NewHistoryCommand returns the history command.
func NewHistoryCommand(rootCmd *RootCommand, app *kingpin.Application) *HistoryCommand {
	c := &HistoryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("history", "List recent task attempts.")
	c.Cmd.Flag("limit", "Maximum number of attempts to list.").Default("20").IntVar(&c.limit)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c HistoryCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	recorder, err := historysqlite.NewRecorder(ctx, historysqlite.RecorderConfig{
		DBPath: c.rootCmd.HistoryDBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not open history ledger: %w", err)
	}
	defer recorder.Close()

	attempts, err := recorder.ListAttempts(ctx, c.limit)
	if err != nil {
		return fmt.Errorf("could not list attempts: %w", err)
	}

	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if len(attempts) == 0 && c.format == "table" {
		return p.PrintMessage("No attempts recorded.")
	}
	if err := p.PrintAttempts(attempts); err != nil {
		return fmt.Errorf("could not print attempts: %w", err)
	}

	return nil
}
