package printer

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/heatwork/heatwork/internal/history"
	"github.com/heatwork/heatwork/internal/model"
)

// TablePrinter prints task information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintCounts prints per state task totals.
func (t *TablePrinter) PrintCounts(counts model.TaskCounts) error {
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "STATE\tTASKS")
	fmt.Fprintf(tw, "%s\t%d\n", model.TaskStateSubmitted, counts.Submitted)
	fmt.Fprintf(tw, "%s\t%d\n", model.TaskStateProcessing, counts.Processing)
	fmt.Fprintf(tw, "%s\t%d\n", model.TaskStateDone, counts.Done)

	return nil
}

// PrintAttempts prints task attempts in a table format.
func (t *TablePrinter) PrintAttempts(attempts []history.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "TASK\tCLIENT\tOUTCOME\tDURATION\tSTARTED\tERROR")
	for _, a := range attempts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.TaskID, a.Client, a.Outcome,
			a.Duration.Round(time.Millisecond),
			a.StartedAt.UTC().Format(time.RFC3339),
			a.Error)
	}

	return nil
}

// PrintMessage prints a simple message.
func (t *TablePrinter) PrintMessage(msg string) error {
	_, err := fmt.Fprintln(t.writer, msg)
	return err
}
