package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		pattern     string
		patternType PatternType
		wantType    PatternType
		wantErr     bool
	}{
		{name: "valid glob", pattern: "**/*.md", patternType: Glob, wantType: Glob},
		{name: "valid regex", pattern: "^docs/.*", patternType: Regex, wantType: Regex},
		{name: "invalid regex", pattern: "[unclosed", patternType: Regex, wantErr: true},
		{name: "invalid glob", pattern: "docs/[unclosed", patternType: Glob, wantErr: true},
		{name: "auto detects glob", pattern: "*.{md,mdx}", patternType: Auto, wantType: Glob},
		{name: "auto detects regex", pattern: "^notes/\\d+\\.md$", patternType: Auto, wantType: Regex},
		{name: "unsupported type", pattern: "x", patternType: PatternType(9), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.patternType, tt.pattern)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, m.Type())
			assert.Equal(t, tt.pattern, m.Pattern())
		})
	}
}

func mustNew(t testing.TB, patternType PatternType, pattern string, opts ...*Options) Matcher {
	t.Helper()
	m, err := New(patternType, pattern, opts...)
	require.NoError(t, err)
	return m
}

func TestGlobMatch(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    bool
	}{
		{"**/*.md", "README.md", true},
		{"**/*.md", "docs/guide.md", true},
		{"**/*.md", "docs/deep/nested/page.md", true},
		{"**/*.md", "docs/image.png", false},
		{"**/*.md", "docs/guide.mdx", false},
		{"*.md", "README.md", true},
		{"*.md", "docs/guide.md", false},
		{"docs/**/*.md", "docs/a.md", true},
		{"docs/**/*.md", "docs/x/y/a.md", true},
		{"docs/**/*.md", "other/a.md", false},
		{"docs/**", "docs/x/y/a.md", true},
		{"**/*.{md,mdx}", "blog/post.mdx", true},
		{"docs/?.md", "docs/a.md", true},
		{"docs/?.md", "docs/ab.md", false},
		{"**/drafts/**", "notes/drafts/idea.md", true},
		{"**/drafts/**", "drafts/idea.md", true},
		{"**/*.md", ".github/PULL_REQUEST_TEMPLATE.md", false},
		{"**/*.md", ".changeset/brave-fox.md", false},
		{"**/*.md", "docs/.draft.md", false},
		{"**/*.md", ".hidden.md", false},
		{"*", ".env", false},
		{".github/**/*.md", ".github/PULL_REQUEST_TEMPLATE.md", true},
		{".github/**/*.md", ".github/ISSUE_TEMPLATE/bug.md", true},
		{".github/**/*.md", ".github/.secret/bug.md", false},
		{"docs/.*.md", "docs/.draft.md", true},
		{"docs/**", "docs/.draft.md", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.input, func(t *testing.T) {
			m := mustNew(t, Glob, tt.pattern)
			assert.Equal(t, tt.want, m.Match(tt.input))
		})
	}
}

func TestCaseInsensitive(t *testing.T) {
	m := mustNew(t, Glob, "**/*.MD", &Options{CaseInsensitive: true})
	assert.True(t, m.Match("docs/readme.md"))

	d := mustNew(t, Glob, ".GitHub/*.md", &Options{CaseInsensitive: true})
	assert.True(t, d.Match(".github/template.md"))

	r := mustNew(t, Regex, "readme", &Options{CaseInsensitive: true, Anchored: true})
	assert.True(t, r.Match("README"))
	assert.False(t, r.Match("README.md"))
}

func TestGlobVariants(t *testing.T) {
	assert.Equal(t, []string{"*.md"}, globVariants("*.md"))
	assert.Equal(t, []string{"**/*.md", "*.md"}, globVariants("**/*.md"))
	assert.ElementsMatch(t,
		[]string{"a/**/b/**/c", "a/**/b/c", "a/b/**/c", "a/b/c"},
		globVariants("a/**/b/**/c"))
	assert.Equal(t, []string{"x**/y"}, globVariants("x**/y"))
}

func TestDotOption(t *testing.T) {
	m := mustNew(t, Glob, "**/*.md", &Options{Dot: true})
	assert.True(t, m.Match(".github/PULL_REQUEST_TEMPLATE.md"))
	assert.True(t, m.Match("docs/.draft.md"))

	r := mustNew(t, Regex, `.*\.md`, &Options{Anchored: true})
	assert.True(t, r.Match(".github/x.md"), "regex patterns see hidden paths")
}

func TestMultiMatcher(t *testing.T) {
	mm, err := NewMultiMatcher([]string{"*.md", " ", "docs/**"}, Glob)
	require.NoError(t, err)

	assert.Equal(t, 2, mm.Len())
	assert.Equal(t, []string{"*.md", "docs/**"}, mm.Patterns())
	assert.True(t, mm.Match("a.md"))
	assert.True(t, mm.Match("docs/img.png"))
	assert.False(t, mm.Match("src/main.go"))

	_, err = NewMultiMatcher([]string{"[bad"}, Glob)
	assert.Error(t, err)
}

func TestMultiMatcherPrefixes(t *testing.T) {
	patterns := []string{`regex:notes/\d+\.md`, "auto:^archive/", "glob:*.txt", "*.md"}
	mm, err := NewMultiMatcher(patterns, Glob, &Options{Anchored: true})
	require.NoError(t, err)

	assert.Equal(t, patterns, mm.Patterns())
	assert.True(t, mm.Match("notes/42.md"))
	assert.False(t, mm.Match("notes/x.md"))
	assert.False(t, mm.Match("old/notes/42.md"), "anchored regex matches the whole path")
	assert.False(t, mm.Match("archive/a.png"), "auto regex is anchored too")
	assert.True(t, mm.Match("archive/"))
	assert.True(t, mm.Match("todo.txt"))
	assert.True(t, mm.Match("README.md"))

	_, err = NewMultiMatcher([]string{"regex:[bad"}, Glob)
	assert.ErrorContains(t, err, "regex:[bad")
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		in       string
		wantType PatternType
		wantExpr string
	}{
		{"**/*.md", Glob, "**/*.md"},
		{"regex:^a$", Regex, "^a$"},
		{"auto:*.md", Auto, "*.md"},
		{"glob:regex.md", Glob, "regex.md"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			pt, expr := parsePattern(tt.in, Glob)
			assert.Equal(t, tt.wantType, pt)
			assert.Equal(t, tt.wantExpr, expr)
		})
	}
}

func TestFilter(t *testing.T) {
	f, err := NewFilter([]string{"**/*.md"}, []string{"drafts/**", "**/CHANGELOG.md"})
	require.NoError(t, err)

	assert.True(t, f.Allow("README.md"))
	assert.True(t, f.Allow("docs/guide.md"))
	assert.False(t, f.Allow("drafts/idea.md"))
	assert.False(t, f.Allow("CHANGELOG.md"))
	assert.False(t, f.Allow("pkg/CHANGELOG.md"))
	assert.False(t, f.Allow("main.go"))

	assert.Equal(t, []string{"README.md", "docs/guide.md"},
		f.Select("README.md", "drafts/idea.md", "docs/guide.md", "main.go"))
	assert.Equal(t, []string{"**/*.md"}, f.Include())
	assert.Equal(t, []string{"drafts/**", "**/CHANGELOG.md"}, f.Exclude())
}

func TestFilterHiddenPaths(t *testing.T) {
	f, err := NewFilter([]string{"**/*.md"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"README.md"}, f.Select(
		"README.md",
		".github/PULL_REQUEST_TEMPLATE.md",
		".changeset/brave-fox.md",
		"docs/.draft.md",
	))

	named, err := NewFilter([]string{"**/*.md", ".github/**/*.md"}, []string{"**/PULL_REQUEST_TEMPLATE.md"})
	require.NoError(t, err)
	assert.True(t, named.Allow(".github/CONTRIBUTING.md"))
	assert.False(t, named.Allow(".github/PULL_REQUEST_TEMPLATE.md"), "excludes match inside hidden directories")
	assert.False(t, named.Allow(".changeset/brave-fox.md"))
}

func TestFilterOptions(t *testing.T) {
	f, err := NewFilter([]string{"**/*.md", `regex:notes/\d+\.txt`}, []string{"DRAFTS/**"}, &Options{CaseInsensitive: true})
	require.NoError(t, err)

	assert.True(t, f.Allow("docs/GUIDE.MD"))
	assert.True(t, f.Allow("NOTES/7.TXT"))
	assert.False(t, f.Allow("notes/7.txt.bak"))
	assert.False(t, f.Allow("drafts/idea.md"))
}

func TestFilterWithoutInclude(t *testing.T) {
	f, err := NewFilter(nil, []string{"*.tmp"})
	require.NoError(t, err)

	assert.True(t, f.Allow("anything/at/all.txt"))
	assert.False(t, f.Allow("scratch.tmp"))
}

func TestFilterInvalidPattern(t *testing.T) {
	_, err := NewFilter([]string{"[bad"}, nil)
	assert.ErrorContains(t, err, "include")

	_, err = NewFilter(nil, []string{"[bad"})
	assert.ErrorContains(t, err, "exclude")
}

func TestPatternTypeString(t *testing.T) {
	assert.Equal(t, "glob", Glob.String())
	assert.Equal(t, "regex", Regex.String())
	assert.Equal(t, "auto", Auto.String())
	assert.Equal(t, "unknown", PatternType(7).String())
}
