package output

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/agentstation/docsync/internal/cmd/table"
	"github.com/agentstation/docsync/pkg/constants"
	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/outline"
	"github.com/agentstation/docsync/pkg/reconcile"
)

// FormatReport writes the run report: counts and, when any item failed, the
// ordered list of failed files. Structured formats get the outcome as is.
func FormatReport(w io.Writer, format Format, out *reconcile.Outcome) error {
	formatter := NewFormatter(format)

	if format != FormatTable && format != "" {
		return formatter.Format(w, out)
	}

	tables := []Data{table.OutcomeToTableData(out)}
	if len(out.Errors) > 0 {
		tables = append(tables, table.ErrorsToTableData(out.Errors))
	}
	return formatter.Format(w, tables)
}

// FormatDocuments writes a document listing.
func FormatDocuments(w io.Writer, format Format, docs []outline.Document) error {
	formatter := NewFormatter(format)

	if format != FormatTable && format != "" {
		if docs == nil {
			docs = []outline.Document{}
		}
		return formatter.Format(w, docs)
	}
	return formatter.Format(w, table.DocumentsToTableData(docs))
}

// WriteOutputs appends synced_count, deleted_count and failed_count lines
// to the pipeline output file at path. An empty path is a no-op.
func WriteOutputs(fs afero.Fs, path string, out *reconcile.Outcome) error {
	if path == "" {
		return nil
	}

	f, err := fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return errors.WrapIO("open", path, err)
	}

	_, err = fmt.Fprintf(f, "synced_count=%d\ndeleted_count=%d\nfailed_count=%d\n", out.Synced, out.Deleted, out.Failed)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return errors.WrapIO("write", path, err)
}
