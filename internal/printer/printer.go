package printer

import (
	"github.com/heatwork/heatwork/internal/history"
	"github.com/heatwork/heatwork/internal/model"
)

// Printer knows how to print task information in different formats.
type Printer interface {
	PrintCounts(counts model.TaskCounts) error
	PrintAttempts(attempts []history.Attempt) error
	PrintMessage(msg string) error
}
