package sync

import (
	"context"

	"github.com/go-git/go-git/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/agentstation/docsync/internal/changeset"
	"github.com/agentstation/docsync/internal/transport"
	"github.com/agentstation/docsync/pkg/index"
	"github.com/agentstation/docsync/pkg/logging"
	"github.com/agentstation/docsync/pkg/outline"
	"github.com/agentstation/docsync/pkg/reconcile"
)

// Result represents the complete result of a sync run.
type Result struct {
	ChangeSet reconcile.ChangeSet `json:"change_set" yaml:"change_set"`
	Outcome   *reconcile.Outcome  `json:"outcome" yaml:"outcome"`
}

// HasChanges returns true if the run had anything to process.
func (r *Result) HasChanges() bool {
	return !r.ChangeSet.IsEmpty()
}

// Summary returns a human-readable summary of the run.
func (r *Result) Summary() string {
	if !r.HasChanges() {
		return "No files to process"
	}
	return r.Outcome.Summary()
}

// runner holds the collaborators of a run; tests replace them.
type runner struct {
	fs            afero.Fs
	repo          *git.Repository
	transportOpts []transport.Option
	logger        *zerolog.Logger
}

// RunOption configures the collaborators of Run.
type RunOption func(*runner)

// WithFs reads files from fs instead of the OS filesystem rooted at Config.Dir.
func WithFs(fs afero.Fs) RunOption {
	return func(r *runner) {
		r.fs = fs
	}
}

// WithRepository diffs against an already opened repository.
func WithRepository(repo *git.Repository) RunOption {
	return func(r *runner) {
		r.repo = repo
	}
}

// WithTransportOptions appends options for the HTTP transport.
func WithTransportOptions(opts ...transport.Option) RunOption {
	return func(r *runner) {
		r.transportOpts = append(r.transportOpts, opts...)
	}
}

// WithLogger sets the run logger. By default the context logger is used.
func WithLogger(logger *zerolog.Logger) RunOption {
	return func(r *runner) {
		r.logger = logger
	}
}

// NewClient creates the document client described by cfg. Retries are logged
// through the logger of each call's context.
func NewClient(cfg Config, extra ...transport.Option) *outline.Client {
	opts := []transport.Option{
		transport.WithPolicy(transport.Policy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.RetryDelay}),
		transport.WithTimeout(cfg.HTTPTimeout),
	}
	if cfg.AuthHeader != "" {
		opts = append(opts, transport.WithAuthenticator(&transport.HeaderAuth{Header: cfg.AuthHeader}))
	}
	opts = append(opts, extra...)
	return outline.New(cfg.BaseURL, cfg.APIKey, opts, outline.WithPublish(cfg.Publish))
}

// Run validates cfg, computes the change set, builds the document index and
// reconciles. An error is returned only when the run could not start
// (configuration, change set or index); per-file failures are in the outcome.
// An empty change set makes no remote calls.
func Run(ctx context.Context, cfg Config, opts ...RunOption) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.FromContext(ctx)
	}
	if r.fs == nil {
		r.fs = afero.NewBasePathFs(afero.NewOsFs(), cfg.Dir)
	}
	ctx = logging.WithLogger(ctx, r.logger)

	filter, err := cfg.Filter()
	if err != nil {
		return nil, err
	}

	providerOpts := []changeset.Option{changeset.WithRepoDir(cfg.Dir), changeset.WithLogger(r.logger)}
	if r.repo != nil {
		providerOpts = append(providerOpts, changeset.WithRepository(r.repo))
	}
	cs, err := changeset.New(r.fs, filter, providerOpts...).Resolve(ctx, cfg.Mode, cfg.BaseRef, cfg.DeleteRemoved)
	if err != nil {
		return nil, err
	}

	if cs.IsEmpty() {
		r.logger.Info().Msg("No files to process")
		return &Result{ChangeSet: cs, Outcome: reconcile.NewOutcome()}, nil
	}

	client := NewClient(cfg, r.transportOpts...)
	idx, err := index.Build(ctx, client, cfg.CollectionID)
	if err != nil {
		return nil, err
	}

	engine := reconcile.New(client, r.fs,
		reconcile.WithCollection(cfg.CollectionID),
		reconcile.WithDeleteRemoved(cfg.DeleteRemoved),
		reconcile.WithDryRun(cfg.DryRun),
		reconcile.WithLogger(r.logger),
	)
	out := engine.Reconcile(ctx, cs, idx)

	r.logger.Info().
		Int("synced", out.Synced).
		Int("deleted", out.Deleted).
		Int("failed", out.Failed).
		Dur("duration", out.Duration).
		Msg("Sync finished")

	return &Result{ChangeSet: cs, Outcome: out}, nil
}
