package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/docsync/internal/cmd/alerts"
	"github.com/agentstation/docsync/internal/cmd/output"
	"github.com/agentstation/docsync/pkg/constants"
	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/index"
	"github.com/agentstation/docsync/pkg/logging"
	"github.com/agentstation/docsync/pkg/outline"
	"github.com/agentstation/docsync/pkg/sync"
)

// remoteFlags are the flags shared by every command that talks to Outline.
type remoteFlags struct {
	apiKey     string
	authHeader string
	baseURL    string
	collection string
	publish    bool
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
}

func (f *remoteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "Outline API key (env OUTLINE_API_KEY)")
	cmd.Flags().StringVar(&f.authHeader, "auth-header", "", "send the API key in this header instead of Authorization: Bearer (env OUTLINE_AUTH_HEADER)")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "Outline base URL (env OUTLINE_BASE_URL)")
	cmd.Flags().StringVar(&f.collection, "collection", "", "target collection id (env COLLECTION_ID)")
	cmd.Flags().BoolVar(&f.publish, "publish", true, "publish created documents (env PUBLISH)")
	cmd.Flags().IntVar(&f.maxRetries, "max-retries", 0, "retries after a rate limited or failed request (env MAX_RETRIES)")
	cmd.Flags().DurationVar(&f.retryDelay, "retry-delay", 0, "base delay of the exponential backoff (env RETRY_BASE_DELAY)")
	cmd.Flags().DurationVar(&f.timeout, "http-timeout", 0, "per-request timeout (env HTTP_TIMEOUT)")
}

// apply overrides c with every flag set on the command line.
func (f *remoteFlags) apply(cmd *cobra.Command, c *Config) {
	flags := cmd.Flags()
	if flags.Changed("api-key") {
		c.APIKey = strings.TrimSpace(f.apiKey)
	}
	if flags.Changed("auth-header") {
		c.AuthHeader = strings.TrimSpace(f.authHeader)
	}
	if flags.Changed("base-url") {
		c.BaseURL = f.baseURL
	}
	if flags.Changed("collection") {
		c.CollectionID = strings.TrimSpace(f.collection)
	}
	if flags.Changed("publish") {
		c.Publish = f.publish
	}
	if flags.Changed("max-retries") {
		c.MaxRetries = f.maxRetries
	}
	if flags.Changed("retry-delay") {
		c.RetryDelay = f.retryDelay
	}
	if flags.Changed("http-timeout") {
		c.HTTPTimeout = f.timeout
	}
}

// syncFlags are the flags of the sync command.
type syncFlags struct {
	remoteFlags
	mode          string
	baseRef       string
	dir           string
	pattern       string
	exclude       []string
	ignoreCase    bool
	deleteRemoved bool
	dryRun        bool
	outputFile    string
}

// NewSyncCommand creates the sync command.
func (a *App) NewSyncCommand() *cobra.Command {
	f := &syncFlags{}
	cmd := &cobra.Command{
		Use:     "sync",
		GroupID: "core",
		Short:   "Sync markdown files to the collection",
		Long: `Sync creates or updates one document per changed file and deletes the
documents of removed files. A document is matched to its file by title,
which is the file path relative to --dir.

The command exits non-zero when any file failed; every other file is still
processed.`,
		Example: `  docsync sync --collection abc123                      # Sync every markdown file
  docsync sync --mode changed --base-ref main            # Sync files changed against main
  docsync sync --exclude 'drafts/**' --dry-run           # Show what would change
  docsync sync --pattern 'regex:^(docs|guides)/.*\.md$'  # Select files with a regular expression`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSync(cmd, f)
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&f.mode, "mode", "", "sync mode: changed or full (env SYNC_MODE)")
	cmd.Flags().StringVar(&f.baseRef, "base-ref", "", "branch to diff against in changed mode (env GITHUB_BASE_REF)")
	cmd.Flags().StringVar(&f.dir, "dir", "", "root of the markdown tree (default \".\")")
	cmd.Flags().StringVar(&f.pattern, "pattern", "", "include pattern, a glob or regex:<expr> (env FILE_PATTERN)")
	cmd.Flags().StringArrayVar(&f.exclude, "exclude", nil, "exclude pattern, repeatable or comma separated (env EXCLUDE_PATTERNS)")
	cmd.Flags().BoolVar(&f.ignoreCase, "ignore-case", false, "match patterns case-insensitively (env PATTERN_IGNORE_CASE)")
	cmd.Flags().BoolVar(&f.deleteRemoved, "delete-removed", true, "delete documents of removed files (env DELETE_REMOVED)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "log planned writes without making them (env DRY_RUN)")
	cmd.Flags().StringVar(&f.outputFile, "output-file", "", "append synced_count, deleted_count and failed_count to this file (env GITHUB_OUTPUT)")

	return cmd
}

// syncConfig merges the command line into the loaded configuration.
// It returns the run configuration and the output file path.
func (a *App) syncConfig(cmd *cobra.Command, f *syncFlags) (sync.Config, string) {
	c := *a.config
	f.apply(cmd, &c)

	flags := cmd.Flags()
	if flags.Changed("mode") {
		c.Mode = strings.ToLower(f.mode)
	}
	if flags.Changed("dir") {
		c.Dir = f.dir
	}
	if flags.Changed("pattern") {
		c.FilePattern = f.pattern
	}
	if flags.Changed("exclude") {
		c.Exclude = SplitPatterns(strings.Join(f.exclude, ","))
	}
	if flags.Changed("ignore-case") {
		c.IgnoreCase = f.ignoreCase
	}
	if flags.Changed("delete-removed") {
		c.DeleteRemoved = f.deleteRemoved
	}
	if flags.Changed("dry-run") {
		c.DryRun = f.dryRun
	}
	if flags.Changed("output-file") {
		c.OutputFile = f.outputFile
	}

	cfg := c.SyncConfig()
	if flags.Changed("base-ref") {
		cfg = cfg.With(sync.WithMode(cfg.Mode, EffectiveBaseRef(f.baseRef, c.EventName, true)))
	}
	return cfg, c.OutputFile
}

func (a *App) runSync(cmd *cobra.Command, f *syncFlags) error {
	format, err := output.ParseFormat(a.config.Format)
	if err != nil {
		return err
	}

	cfg, outputFile := a.syncConfig(cmd, f)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !a.config.Quiet {
		printBanner(cmd.ErrOrStderr(), a.version, cfg)
	}

	ctx := logging.WithLogger(cmd.Context(), a.logger)
	opts := append([]sync.RunOption{
		sync.WithLogger(a.logger),
		sync.WithTransportOptions(a.transportOpts...),
	}, a.runOpts...)

	res, err := sync.Run(ctx, cfg, opts...)
	if err != nil {
		return err
	}

	if err := output.FormatReport(a.stdout, output.DetectFormat(string(format)), res.Outcome); err != nil {
		return err
	}
	if err := output.WriteOutputs(a.fs, outputFile, res.Outcome); err != nil {
		return err
	}

	processed := len(res.ChangeSet.ToSync) + len(res.ChangeSet.ToDelete)
	if !a.config.Quiet {
		status := alerts.FromOutcome(res.Outcome, processed)
		if err := alerts.NewWriter(cmd.ErrOrStderr(), a.config.NoColor).WriteAlert(status); err != nil {
			return err
		}
	}

	if res.Outcome.Failed > 0 {
		return fmt.Errorf("%w: %d of %d files failed", errors.ErrSyncFailed, res.Outcome.Failed, processed)
	}
	return nil
}

// printBanner writes the effective configuration. The API key is never shown.
func printBanner(w io.Writer, version string, cfg sync.Config) {
	mode := cfg.Mode
	if cfg.Mode == constants.SyncModeChanged {
		if cfg.BaseRef != "" {
			mode += " (base: " + cfg.BaseRef + ")"
		} else {
			mode += " (no base ref, full scan)"
		}
	}

	fmt.Fprintf(w, "docsync %s\n", version)
	fmt.Fprintf(w, "  Outline:        %s\n", cfg.BaseURL)
	fmt.Fprintf(w, "  Collection:     %s\n", cfg.CollectionID)
	fmt.Fprintf(w, "  Mode:           %s\n", mode)
	fmt.Fprintf(w, "  Pattern:        %s\n", cfg.Include)
	if len(cfg.Exclude) > 0 {
		fmt.Fprintf(w, "  Exclude:        %s\n", strings.Join(cfg.Exclude, ", "))
	}
	fmt.Fprintf(w, "  Delete removed: %t\n", cfg.DeleteRemoved)
	if cfg.DryRun {
		fmt.Fprintf(w, "  Dry run:        true\n")
	}
}

// NewIndexCommand creates the index command.
func (a *App) NewIndexCommand() *cobra.Command {
	f := &remoteFlags{}
	var title string
	cmd := &cobra.Command{
		Use:     "index",
		GroupID: "core",
		Short:   "List the documents of the collection",
		Long: `Index lists the documents the sync would match files against, sorted by
title. With --title it looks up a single document by its exact title; no
match prints an empty listing.`,
		Example: `  docsync index --collection abc123
  docsync index --collection abc123 --title docs/guide.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := output.ParseFormat(a.config.Format)
			if err != nil {
				return err
			}

			c := *a.config
			f.apply(cmd, &c)
			cfg := c.SyncConfig()
			if err := cfg.ValidateRemote(); err != nil {
				return err
			}

			ctx := logging.WithLogger(cmd.Context(), a.logger)
			client := sync.NewClient(cfg, a.transportOpts...)

			var docs []outline.Document
			if title != "" {
				doc, err := client.FindByExactTitle(ctx, title, cfg.CollectionID)
				if err != nil {
					return err
				}
				if doc == nil {
					a.logger.Info().Str("title", title).Msg("No document with this title")
				} else {
					docs = append(docs, *doc)
				}
			} else {
				idx, err := index.Build(ctx, client, cfg.CollectionID)
				if err != nil {
					return err
				}
				docs = idx.Documents()
			}

			return output.FormatDocuments(a.stdout, output.DetectFormat(string(format)), docs)
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&title, "title", "", "look up one document by exact title")

	return cmd
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("docsync %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
