package reconcile

import (
	"fmt"
	"time"
)

// ChangeSet lists the paths a run should push and the paths whose documents
// should be removed. Both sequences are processed in the given order and are
// never modified by the engine.
type ChangeSet struct {
	ToSync   []string `json:"to_sync" yaml:"to_sync"`
	ToDelete []string `json:"to_delete" yaml:"to_delete"`
}

// IsEmpty reports whether there is nothing to sync and nothing to delete.
func (cs ChangeSet) IsEmpty() bool {
	return len(cs.ToSync) == 0 && len(cs.ToDelete) == 0
}

// String returns a short summary of the change set.
func (cs ChangeSet) String() string {
	return fmt.Sprintf("%d to sync, %d to delete", len(cs.ToSync), len(cs.ToDelete))
}

// ItemError records why a single file could not be reconciled.
type ItemError struct {
	File  string `json:"file" yaml:"file"`
	Error string `json:"error" yaml:"error"`
}

// Outcome accumulates the result of a run. Counts only ever grow; a partially
// failed run is reported as is, never rolled back.
type Outcome struct {
	// Synced is the number of files pushed (Created + Updated).
	Synced  int `json:"synced" yaml:"synced"`
	Created int `json:"created" yaml:"created"`
	Updated int `json:"updated" yaml:"updated"`
	Deleted int `json:"deleted" yaml:"deleted"`

	// Skipped counts delete candidates with no matching document.
	Skipped int `json:"skipped" yaml:"skipped"`

	Failed int         `json:"failed" yaml:"failed"`
	Errors []ItemError `json:"errors" yaml:"errors"`

	DryRun   bool          `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// NewOutcome returns an empty outcome.
func NewOutcome() *Outcome {
	return &Outcome{Errors: []ItemError{}}
}

// HasErrors returns true if any item failed.
func (o *Outcome) HasErrors() bool {
	return o.Failed > 0
}

// IsSuccess returns true if no item failed.
func (o *Outcome) IsSuccess() bool {
	return !o.HasErrors()
}

// Summary returns a one-line human-readable summary.
func (o *Outcome) Summary() string {
	prefix := "Sync complete"
	if o.DryRun {
		prefix = "Dry run complete"
	}
	return fmt.Sprintf("%s: %d synced (%d created, %d updated), %d deleted, %d skipped, %d failed",
		prefix, o.Synced, o.Created, o.Updated, o.Deleted, o.Skipped, o.Failed)
}

func (o *Outcome) created() {
	o.Created++
	o.Synced++
}

func (o *Outcome) updated() {
	o.Updated++
	o.Synced++
}

func (o *Outcome) fail(file string, err error) {
	o.Failed++
	o.Errors = append(o.Errors, ItemError{File: file, Error: err.Error()})
}
