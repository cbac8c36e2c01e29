package table

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/docsync/pkg/outline"
	"github.com/agentstation/docsync/pkg/reconcile"
)

func TestOutcomeToTableData(t *testing.T) {
	out := &reconcile.Outcome{Synced: 3, Created: 1, Updated: 2, Deleted: 1, Skipped: 4, Failed: 1}

	data := OutcomeToTableData(out)

	assert.Equal(t, []string{"RESULT", "COUNT"}, data.Headers)
	assert.Equal(t, [][]string{
		{"Synced", "3"},
		{"Created", "1"},
		{"Updated", "2"},
		{"Deleted", "1"},
		{"Skipped", "4"},
		{"Failed", "1"},
	}, data.Rows)

	out.DryRun = true
	assert.Equal(t, []string{"Dry run", "yes"}, OutcomeToTableData(out).Rows[6])
}

func TestErrorsToTableData(t *testing.T) {
	data := ErrorsToTableData([]reconcile.ItemError{
		{File: "b.md", Error: "boom"},
		{File: "a.md", Error: "bang"},
	})

	assert.Equal(t, [][]string{{"b.md", "boom"}, {"a.md", "bang"}}, data.Rows)
}

func TestDocumentsToTableData(t *testing.T) {
	when := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	data := DocumentsToTableData([]outline.Document{
		{ID: "1", Title: "a.md", UpdatedAt: when},
		{ID: "2", Title: "b.md"},
	})

	assert.Equal(t, [][]string{
		{"a.md", "1", "2025-03-01T12:00:00Z"},
		{"b.md", "2", "-"},
	}, data.Rows)
}
