// Package table converts sync results and documents into rows for table output.
package table

import (
	"strconv"
	"time"

	"github.com/agentstation/docsync/pkg/outline"
	"github.com/agentstation/docsync/pkg/reconcile"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// OutcomeToTableData converts the counts of a run to a two-column table.
func OutcomeToTableData(out *reconcile.Outcome) Data {
	rows := [][]string{
		{"Synced", strconv.Itoa(out.Synced)},
		{"Created", strconv.Itoa(out.Created)},
		{"Updated", strconv.Itoa(out.Updated)},
		{"Deleted", strconv.Itoa(out.Deleted)},
		{"Skipped", strconv.Itoa(out.Skipped)},
		{"Failed", strconv.Itoa(out.Failed)},
	}
	if out.DryRun {
		rows = append(rows, []string{"Dry run", "yes"})
	}

	return Data{
		Headers:         []string{"RESULT", "COUNT"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// ErrorsToTableData lists failed files in the order they failed.
func ErrorsToTableData(errs []reconcile.ItemError) Data {
	rows := make([][]string, 0, len(errs))
	for _, e := range errs {
		rows = append(rows, []string{e.File, e.Error})
	}
	return Data{
		Headers: []string{"FILE", "ERROR"},
		Rows:    rows,
	}
}

// DocumentsToTableData lists documents by title.
func DocumentsToTableData(docs []outline.Document) Data {
	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, []string{d.Title, d.ID, formatTime(d.UpdatedAt)})
	}
	return Data{
		Headers: []string{"TITLE", "ID", "UPDATED"},
		Rows:    rows,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
