package verify

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/samghub/binnavi/translate"
)

// Outcome is the result of lifting one native instruction.
type Outcome struct {
	Address  uint64
	Mnemonic string
	Count    int // IR instructions produced
	Err      error
	Issues   []Issue
}

// Status classifies the outcome.
func (o Outcome) Status() string {
	var (
		unsupported *translate.UnsupportedInstructionError
		internal    *translate.InternalTranslationError
	)

	switch {
	case o.Err == nil && len(o.Issues) == 0:
		return "OK"
	case o.Err == nil:
		return "LINT"
	case errors.As(o.Err, &unsupported):
		return "UNSUPPORTED"
	case errors.As(o.Err, &internal):
		return "INTERNAL"
	}

	return "ERROR"
}

// Report represents the outcome of a batch lift
type Report struct {
	Arch     string
	Outcomes []Outcome
}

// NewReport creates an empty report for an architecture.
func NewReport(arch string) *Report {
	return &Report{Arch: arch}
}

// Add records one outcome.
func (r *Report) Add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}

// Counts returns the number of outcomes per status.
func (r *Report) Counts() map[string]int {
	counts := make(map[string]int)
	for _, o := range r.Outcomes {
		counts[o.Status()]++
	}

	return counts
}

// OK reports whether every instruction lifted cleanly.
func (r *Report) OK() bool {
	return r.Counts()["OK"] == len(r.Outcomes)
}

// WriteReport writes the outcomes and a summary as tables.
func (r *Report) WriteReport(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Lifting %s", r.Arch))
	t.AppendHeader(table.Row{"Address", "Mnemonic", "IR", "Status", "Detail"})

	for _, o := range r.Outcomes {
		detail := ""
		switch {
		case o.Err != nil:
			detail = o.Err.Error()
		case len(o.Issues) > 0:
			detail = o.Issues[0].String()
			if len(o.Issues) > 1 {
				detail += fmt.Sprintf(" (+%d more)", len(o.Issues)-1)
			}
		}

		t.AppendRow(table.Row{
			fmt.Sprintf("%08X", o.Address), o.Mnemonic, o.Count, o.Status(), detail,
		})
	}

	counts := r.Counts()
	t.AppendFooter(table.Row{
		"", fmt.Sprintf("%d instructions", len(r.Outcomes)), "",
		fmt.Sprintf("%d OK", counts["OK"]), summary(counts),
	})
	t.Render()
}

func summary(counts map[string]int) string {
	out := ""
	for _, s := range []string{"LINT", "UNSUPPORTED", "INTERNAL", "ERROR"} {
		if counts[s] == 0 {
			continue
		}

		if out != "" {
			out += ", "
		}
		out += fmt.Sprintf("%d %s", counts[s], s)
	}

	return out
}

// SaveReportToFile saves the report to a file
func (r *Report) SaveReportToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	r.WriteReport(file)

	return nil
}
