// Package changeset computes which local files a run should push and which
// remote documents it should remove.
//
// In changed mode the paths come from a git diff of HEAD against its merge
// base with the base ref (`base...HEAD`). In full mode the working tree is
// walked and every matching file is pushed; a full scan has no prior state to
// compare with, so it never yields deletions.
package changeset

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/agentstation/docsync/internal/matcher"
	"github.com/agentstation/docsync/pkg/constants"
	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/logging"
	"github.com/agentstation/docsync/pkg/reconcile"
)

// skipDirs are never descended into during a full scan.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// Provider produces change sets for one working tree.
type Provider struct {
	fs      afero.Fs
	root    string
	filter  *matcher.Filter
	repoDir string
	repo    *git.Repository
	remote  string
	logger  *zerolog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithRoot sets the directory walked by Full, relative to the filesystem root.
func WithRoot(root string) Option {
	return func(p *Provider) {
		if root != "" {
			p.root = root
		}
	}
}

// WithRepoDir sets the git working tree opened by Changed.
func WithRepoDir(dir string) Option {
	return func(p *Provider) {
		p.repoDir = dir
	}
}

// WithRepository uses an already opened repository.
func WithRepository(repo *git.Repository) Option {
	return func(p *Provider) {
		p.repo = repo
	}
}

// WithRemote sets the remote base refs are looked up on (default "origin").
func WithRemote(name string) Option {
	return func(p *Provider) {
		p.remote = name
	}
}

// WithLogger sets the logger. By default the context logger is used.
func WithLogger(logger *zerolog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// New creates a provider over fs that keeps only paths allowed by filter.
func New(fs afero.Fs, filter *matcher.Filter, opts ...Option) *Provider {
	p := &Provider{
		fs:      fs,
		root:    ".",
		filter:  filter,
		repoDir: ".",
		remote:  "origin",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Resolve picks the change set for a run. Changed mode with a base ref diffs
// against it; anything else falls back to a full scan. Deletions are dropped
// when deleteRemoved is false.
func (p *Provider) Resolve(ctx context.Context, mode, baseRef string, deleteRemoved bool) (reconcile.ChangeSet, error) {
	logger := p.log(ctx)

	var (
		cs  reconcile.ChangeSet
		err error
	)
	if mode == constants.SyncModeChanged && baseRef != "" {
		logger.Info().Str("base_ref", baseRef).Msg("Computing changed files")
		cs, err = p.Changed(ctx, baseRef)
	} else {
		if mode == constants.SyncModeChanged {
			logger.Info().Msg("No base ref for changed mode, falling back to full sync")
		}
		cs, err = p.Full(ctx)
	}
	if err != nil {
		return reconcile.ChangeSet{}, err
	}

	if !deleteRemoved {
		cs.ToDelete = nil
	}
	logger.Info().Int("to_sync", len(cs.ToSync)).Int("to_delete", len(cs.ToDelete)).Msg("Change set ready")
	return cs, nil
}

// Changed diffs HEAD against its merge base with baseRef.
// Added, modified and renamed-to paths are synced; deleted paths are removed.
// The source path of a rename is left alone.
func (p *Provider) Changed(ctx context.Context, baseRef string) (reconcile.ChangeSet, error) {
	repo, err := p.repository()
	if err != nil {
		return reconcile.ChangeSet{}, err
	}

	headRef, err := repo.Head()
	if err != nil {
		return reconcile.ChangeSet{}, errors.WrapResource("resolve", "revision", "HEAD", err)
	}
	head, err := repo.CommitObject(headRef.Hash())
	if err != nil {
		return reconcile.ChangeSet{}, errors.WrapResource("resolve", "commit", headRef.Hash().String(), err)
	}

	base, err := p.resolveBase(repo, baseRef)
	if err != nil {
		return reconcile.ChangeSet{}, err
	}

	bases, err := base.MergeBase(head)
	if err != nil {
		return reconcile.ChangeSet{}, errors.WrapResource("compute", "merge base", baseRef, err)
	}
	if len(bases) == 0 {
		return reconcile.ChangeSet{}, errors.NewResourceError("compute", "merge base", baseRef,
			errors.New("no common ancestor with HEAD"))
	}

	fromTree, err := bases[0].Tree()
	if err != nil {
		return reconcile.ChangeSet{}, errors.WrapResource("read", "tree", bases[0].Hash.String(), err)
	}
	toTree, err := head.Tree()
	if err != nil {
		return reconcile.ChangeSet{}, errors.WrapResource("read", "tree", head.Hash.String(), err)
	}

	changes, err := object.DiffTreeWithOptions(ctx, fromTree, toTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return reconcile.ChangeSet{}, errors.WrapResource("diff", "revision", baseRef, err)
	}

	var toSync, toDelete []string
	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			return reconcile.ChangeSet{}, errors.WrapResource("diff", "revision", baseRef, err)
		}
		switch action {
		case merkletrie.Insert, merkletrie.Modify:
			toSync = append(toSync, change.To.Name)
		case merkletrie.Delete:
			toDelete = append(toDelete, change.From.Name)
		}
	}

	return reconcile.ChangeSet{
		ToSync:   p.selectPaths(toSync),
		ToDelete: p.selectPaths(toDelete),
	}, nil
}

// Full walks the filesystem and returns every matching file, sorted.
func (p *Provider) Full(ctx context.Context) (reconcile.ChangeSet, error) {
	var paths []string
	err := afero.Walk(p.fs, p.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() {
			if path != p.root && skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(p.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return reconcile.ChangeSet{}, errors.WrapIO("walk", p.root, err)
	}

	return reconcile.ChangeSet{ToSync: p.selectPaths(paths)}, nil
}

func (p *Provider) repository() (*git.Repository, error) {
	if p.repo != nil {
		return p.repo, nil
	}
	repo, err := git.PlainOpen(p.repoDir)
	if err != nil {
		return nil, errors.WrapResource("open", "repository", p.repoDir, err)
	}
	p.repo = repo
	return repo, nil
}

// resolveBase looks the ref up on the remote first (CI checkouts only carry
// remote-tracking branches), then as given.
func (p *Provider) resolveBase(repo *git.Repository, baseRef string) (*object.Commit, error) {
	candidates := []string{baseRef}
	if p.remote != "" && !strings.HasPrefix(baseRef, p.remote+"/") && !strings.HasPrefix(baseRef, "refs/") {
		candidates = []string{p.remote + "/" + baseRef, baseRef}
	}

	var lastErr error
	for _, rev := range candidates {
		hash, err := repo.ResolveRevision(plumbing.Revision(rev))
		if err != nil {
			lastErr = err
			continue
		}
		commit, err := repo.CommitObject(*hash)
		if err != nil {
			return nil, errors.WrapResource("resolve", "commit", hash.String(), err)
		}
		return commit, nil
	}
	return nil, errors.WrapResource("resolve", "revision", baseRef, lastErr)
}

// selectPaths filters, de-duplicates and sorts paths.
func (p *Provider) selectPaths(paths []string) []string {
	selected := paths
	if p.filter != nil {
		selected = p.filter.Select(paths...)
	}
	slices.Sort(selected)
	return slices.Compact(selected)
}

func (p *Provider) log(ctx context.Context) *zerolog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return logging.FromContext(ctx)
}
