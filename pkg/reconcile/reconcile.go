// Package reconcile pushes a change set of local files to a document
// collection.
//
// Every path in ToSync is read and then updated when the index holds a
// document with that exact title, or created otherwise. When delete-removed
// is on, every path in ToDelete that the index knows is deleted afterwards.
// The file path is the only identity: a renamed file becomes a new document
// and the old one is left behind.
//
// Items are processed strictly one after another. A failure is recorded
// against its file and the run moves on; nothing is rolled back, and a re-run
// converges because matching is recomputed from a fresh index.
package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/index"
	"github.com/agentstation/docsync/pkg/logging"
	"github.com/agentstation/docsync/pkg/outline"
)

// DocumentStore is the subset of the remote API the engine writes through.
type DocumentStore interface {
	CreateDocument(ctx context.Context, title, text, collectionID string) (*outline.Document, error)
	UpdateDocument(ctx context.Context, id, title, text string) (*outline.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// Engine drives create, update and delete decisions for a change set.
type Engine struct {
	store         DocumentStore
	files         afero.Fs
	collectionID  string
	deleteRemoved bool
	dryRun        bool
	logger        *zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCollection sets the collection new documents are created in.
func WithCollection(id string) Option {
	return func(e *Engine) {
		e.collectionID = id
	}
}

// WithDeleteRemoved enables or disables processing of ToDelete.
func WithDeleteRemoved(enabled bool) Option {
	return func(e *Engine) {
		e.deleteRemoved = enabled
	}
}

// WithDryRun logs and counts decisions without issuing write calls.
func WithDryRun(enabled bool) Option {
	return func(e *Engine) {
		e.dryRun = enabled
	}
}

// WithLogger sets the logger. By default the context logger is used.
func WithLogger(logger *zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an engine writing through store and reading files from fs.
func New(store DocumentStore, files afero.Fs, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		files:         files,
		deleteRemoved: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile processes every item of cs against idx and returns the outcome.
// It never returns early: each failure is recorded on the outcome.
//
// Store calls receive a context whose logger carries the collection, the file
// and the operation, so retries logged below are attributed to the file.
func (e *Engine) Reconcile(ctx context.Context, cs ChangeSet, idx *index.Index) *Outcome {
	if e.logger != nil {
		ctx = logging.WithLogger(ctx, e.logger)
	}
	ctx = logging.WithCollection(ctx, e.collectionID)

	start := time.Now()
	out := NewOutcome()
	out.DryRun = e.dryRun

	for _, path := range cs.ToSync {
		e.syncFile(logging.WithFile(ctx, path), idx, out, path)
	}

	if e.deleteRemoved && len(cs.ToDelete) > 0 {
		for _, path := range cs.ToDelete {
			e.deleteFile(logging.WithFile(ctx, path), idx, out, path)
		}
	}

	out.Duration = time.Since(start)
	return out
}

func (e *Engine) syncFile(ctx context.Context, idx *index.Index, out *Outcome, path string) {
	content, err := afero.ReadFile(e.files, path)
	if err != nil {
		err = errors.WrapIO("read", path, err)
		logging.FromContext(ctx).Error().Err(err).Msg("Failed to read file")
		out.fail(path, err)
		return
	}

	title := path
	text := string(content)

	if doc, ok := idx.Get(title); ok {
		ctx = logging.WithOperation(ctx, "update")
		logger := logging.FromContext(ctx)
		if e.dryRun {
			logger.Info().Str("document_id", doc.ID).Msg("Would update document")
			out.updated()
			return
		}
		if _, err := e.store.UpdateDocument(ctx, doc.ID, title, text); err != nil {
			logger.Error().Err(err).Str("document_id", doc.ID).Msg("Failed to update document")
			out.fail(path, err)
			return
		}
		logger.Info().Str("document_id", doc.ID).Msg("Updated document")
		out.updated()
		return
	}

	ctx = logging.WithOperation(ctx, "create")
	logger := logging.FromContext(ctx)
	if e.dryRun {
		logger.Info().Msg("Would create document")
		out.created()
		return
	}
	created, err := e.store.CreateDocument(ctx, title, text, e.collectionID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create document")
		out.fail(path, err)
		return
	}
	event := logger.Info()
	if created != nil {
		event = event.Str("document_id", created.ID)
	}
	event.Msg("Created document")
	out.created()
}

func (e *Engine) deleteFile(ctx context.Context, idx *index.Index, out *Outcome, path string) {
	ctx = logging.WithOperation(ctx, "delete")
	logger := logging.FromContext(ctx)

	doc, ok := idx.Get(path)
	if !ok {
		logger.Debug().Msg("No document for removed file, skipping")
		out.Skipped++
		return
	}

	if e.dryRun {
		logger.Info().Str("document_id", doc.ID).Msg("Would delete document")
		out.Deleted++
		return
	}
	if err := e.store.DeleteDocument(ctx, doc.ID); err != nil {
		logger.Error().Err(err).Str("document_id", doc.ID).Msg("Failed to delete document")
		out.fail(path, err)
		return
	}
	logger.Info().Str("document_id", doc.ID).Msg("Deleted document")
	out.Deleted++
}
