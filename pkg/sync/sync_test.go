package sync_test

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/docsync/internal/transport"
	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/logging"
	"github.com/agentstation/docsync/pkg/outline"
	"github.com/agentstation/docsync/pkg/outline/outlinetest"
	"github.com/agentstation/docsync/pkg/sync"
)

func setup(t *testing.T, files ...string) (*outlinetest.Server, afero.Fs, sync.Config) {
	t.Helper()
	srv := outlinetest.NewServer(t)
	fs := afero.NewMemMapFs()
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fs, f, []byte("# "+f), 0o644))
	}
	cfg := sync.Defaults().With(
		sync.WithCredentials(outlinetest.APIKey, "col-1"),
		sync.WithBaseURL(srv.URL),
		sync.WithRetry(3, 0),
	)
	return srv, fs, cfg
}

func runOpts(srv *outlinetest.Server, fs afero.Fs) []sync.RunOption {
	return []sync.RunOption{
		sync.WithFs(fs),
		sync.WithLogger(logging.NewNopLogger()),
		sync.WithTransportOptions(transport.WithHTTPClient(srv.Server.Client())),
	}
}

func TestRunFullSync(t *testing.T) {
	srv, fs, cfg := setup(t, "README.md", "docs/guide.md", "notes.txt")

	res, err := sync.Run(context.Background(), cfg, runOpts(srv, fs)...)

	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "docs/guide.md"}, res.ChangeSet.ToSync)
	assert.Equal(t, 2, res.Outcome.Created)
	assert.ElementsMatch(t, []string{"README.md", "docs/guide.md"}, srv.Titles())
	assert.Contains(t, res.Summary(), "2 synced")

	again, err := sync.Run(context.Background(), cfg, runOpts(srv, fs)...)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Outcome.Updated)
	assert.Len(t, srv.Documents(), 2)
}

func TestRunEmptyChangeSetMakesNoCalls(t *testing.T) {
	srv, fs, cfg := setup(t, "main.go")

	res, err := sync.Run(context.Background(), cfg, runOpts(srv, fs)...)

	require.NoError(t, err)
	assert.False(t, res.HasChanges())
	assert.Equal(t, "No files to process", res.Summary())
	assert.Zero(t, res.Outcome.Synced)
	assert.Empty(t, srv.Calls())
}

func TestRunDryRun(t *testing.T) {
	srv, fs, cfg := setup(t, "a.md")

	res, err := sync.Run(context.Background(), cfg.With(sync.WithDryRun(true)), runOpts(srv, fs)...)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Outcome.Created)
	assert.Equal(t, 0, srv.WriteCalls())
	assert.Equal(t, 1, srv.CallsTo(outline.EndpointList))
}

func TestRunExcludePatterns(t *testing.T) {
	srv, fs, cfg := setup(t, "a.md", "drafts/b.md")

	res, err := sync.Run(context.Background(), cfg.With(sync.WithPatterns("**/*.md", "drafts/**")), runOpts(srv, fs)...)

	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, res.ChangeSet.ToSync)
}

func TestRunInvalidConfigMakesNoCalls(t *testing.T) {
	srv, fs, cfg := setup(t, "a.md")

	_, err := sync.Run(context.Background(), cfg.With(sync.WithCredentials("", "col-1")), runOpts(srv, fs)...)

	assert.True(t, errors.IsConfigError(err))
	assert.Empty(t, srv.Calls())
}

func TestRunIndexFailureIsFatal(t *testing.T) {
	srv, fs, cfg := setup(t, "a.md")

	_, err := sync.Run(context.Background(), cfg.With(sync.WithCredentials("wrong", "col-1")), runOpts(srv, fs)...)

	assert.True(t, errors.IsAPIKeyError(err))
	assert.Equal(t, 0, srv.WriteCalls())
}

func TestRunSkipsHiddenPaths(t *testing.T) {
	srv, fs, cfg := setup(t, "README.md", ".github/PULL_REQUEST_TEMPLATE.md", ".changeset/brave-fox.md", "docs/.draft.md")

	res, err := sync.Run(context.Background(), cfg, runOpts(srv, fs)...)

	require.NoError(t, err)
	assert.Equal(t, []string{"README.md"}, res.ChangeSet.ToSync)
	assert.Equal(t, []string{"README.md"}, srv.Titles())
}

func TestRunRegexPatternIgnoringCase(t *testing.T) {
	srv, fs, cfg := setup(t, "Guides/Setup.MD", "guides/notes.txt", "other/a.md")
	cfg = cfg.With(
		sync.WithPatterns(`regex:guides/.*\.md`),
		sync.WithIgnoreCase(true),
	)

	res, err := sync.Run(context.Background(), cfg, runOpts(srv, fs)...)

	require.NoError(t, err)
	assert.Equal(t, []string{"Guides/Setup.MD"}, res.ChangeSet.ToSync)
}

func TestRunAuthHeader(t *testing.T) {
	srv, fs, cfg := setup(t, "a.md")
	srv.RequireHeader("X-Api-Key")

	_, err := sync.Run(context.Background(), cfg, runOpts(srv, fs)...)
	assert.True(t, errors.IsAPIKeyError(err), "bearer auth is rejected")

	res, err := sync.Run(context.Background(), cfg.With(sync.WithAuthHeader("X-Api-Key")), runOpts(srv, fs)...)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Outcome.Created)
}

func TestRunLogsRetriesWithFile(t *testing.T) {
	srv, fs, cfg := setup(t, "a.md")
	srv.FailOn(outline.EndpointCreate, "a.md", 429)
	tl := logging.NewTestLogger(t)
	opts := append(runOpts(srv, fs), sync.WithLogger(tl.Logger))

	res, err := sync.Run(context.Background(), cfg.With(sync.WithRetry(1, 0)), opts...)

	require.NoError(t, err)
	assert.Equal(t, 1, res.Outcome.Failed)
	tl.AssertContains(t, "Rate limited, retrying")
	assert.Equal(t, 1, tl.CountContaining(`"message":"Rate limited, retrying"`))
	for _, line := range tl.Lines() {
		if strings.Contains(line, "Rate limited, retrying") {
			assert.Contains(t, line, `"file":"a.md"`)
			assert.Contains(t, line, `"operation":"create"`)
		}
	}
}
