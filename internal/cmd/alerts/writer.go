package alerts

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Writer writes alerts as plain text, colored on a terminal.
type Writer struct {
	w           io.Writer
	useColor    bool
	showDetails bool
}

// NewWriter creates a Writer for w. Color is used only when w is a terminal
// and noColor is false.
func NewWriter(w io.Writer, noColor bool) *Writer {
	return &Writer{
		w:           w,
		useColor:    !noColor && isTerminal(w),
		showDetails: true,
	}
}

// WriteAlert writes the alert followed by its indented details.
func (aw *Writer) WriteAlert(alert *Alert) error {
	message := alert.String()
	if aw.useColor {
		message = alert.Level.Color() + message + resetColor
	}
	if _, err := fmt.Fprintln(aw.w, message); err != nil {
		return err
	}

	if aw.showDetails {
		for _, detail := range alert.Details {
			if _, err := fmt.Fprintf(aw.w, "   %s\n", detail); err != nil {
				return err
			}
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
