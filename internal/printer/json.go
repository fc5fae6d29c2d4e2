package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/heatwork/heatwork/internal/history"
	"github.com/heatwork/heatwork/internal/model"
)

// JSONPrinter prints task information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// countsOutput represents per state task totals.
type countsOutput struct {
	Submitted  int `json:"submitted"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
}

// attemptOutput represents one task attempt.
type attemptOutput struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	Client     string    `json:"client"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintCounts prints per state task totals in JSON format.
func (j *JSONPrinter) PrintCounts(counts model.TaskCounts) error {
	out := countsOutput{
		Submitted:  counts.Submitted,
		Processing: counts.Processing,
		Done:       counts.Done,
	}
	return j.encode(out)
}

// PrintAttempts prints task attempts in JSON format.
func (j *JSONPrinter) PrintAttempts(attempts []history.Attempt) error {
	items := make([]attemptOutput, len(attempts))
	for i, a := range attempts {
		items[i] = attemptOutput{
			ID:         a.ID,
			TaskID:     a.TaskID,
			Client:     a.Client,
			Outcome:    string(a.Outcome),
			Error:      a.Error,
			StartedAt:  a.StartedAt.UTC(),
			DurationMS: a.Duration.Milliseconds(),
		}
	}
	return j.encode(items)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
