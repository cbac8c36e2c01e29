// Package matcher provides glob and regex pattern matching for file paths.
// Globs are compiled with gobwas/glob using '/' as the separator, so `*`
// stays within one path segment while `**` crosses segments.
//
// Wildcards never match a path segment that starts with a dot: `**/*.md`
// skips `.github/TEMPLATE.md` and `docs/.draft.md`. A pattern reaches hidden
// segments only by naming them, as in `.github/**/*.md`, or when compiled
// with Options.Dot.
package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// PatternType represents the type of pattern matching to use.
type PatternType int

const (
	// Glob uses shell-style glob patterns (*, **, ?, [], {a,b}).
	Glob PatternType = iota
	// Regex uses regular expressions.
	Regex
	// Auto attempts to detect the pattern type.
	Auto
)

// String returns a string representation of the PatternType.
func (pt PatternType) String() string {
	switch pt {
	case Glob:
		return "glob"
	case Regex:
		return "regex"
	case Auto:
		return "auto"
	default:
		return "unknown"
	}
}

// Matcher is the main interface for pattern matching operations.
type Matcher interface {
	// Match checks if the input matches the pattern.
	Match(input string) bool
	// Pattern returns the original pattern string.
	Pattern() string
	// Type returns the pattern type being used.
	Type() PatternType
}

// Options configures the matcher behavior.
type Options struct {
	// CaseInsensitive makes matching case-insensitive
	CaseInsensitive bool
	// Anchored adds ^ and $ to regex patterns if not present
	Anchored bool
	// Dot lets glob wildcards match segments starting with a dot
	Dot bool
}

// matcher is the concrete implementation of the Matcher interface.
// It is immutable once compiled and safe for concurrent use.
type matcher struct {
	pattern         string
	patternType     PatternType
	globs           []glob.Glob
	dotGlobs        []glob.Glob
	compiled        *regexp.Regexp
	caseInsensitive bool
	dot             bool
}

// New creates a new Matcher with the specified pattern and type.
func New(patternType PatternType, pattern string, opts ...*Options) (Matcher, error) {
	options := &Options{}
	if len(opts) > 0 && opts[0] != nil {
		options = opts[0]
	}

	m := &matcher{
		pattern:         pattern,
		patternType:     patternType,
		caseInsensitive: options.CaseInsensitive,
		dot:             options.Dot,
	}
	if patternType == Auto {
		m.patternType = detectPatternType(pattern)
	}

	if err := m.compile(options); err != nil {
		return nil, fmt.Errorf("failed to compile pattern: %w", err)
	}
	return m, nil
}

func (m *matcher) compile(opts *Options) error {
	switch m.patternType {
	case Glob:
		pattern := m.pattern
		if opts.CaseInsensitive {
			pattern = strings.ToLower(pattern)
		}
		for _, variant := range globVariants(pattern) {
			g, err := glob.Compile(variant, '/')
			if err != nil {
				return fmt.Errorf("invalid glob pattern: %w", err)
			}
			m.globs = append(m.globs, g)
		}
		for _, segment := range strings.Split(pattern, "/") {
			if !hidden(segment) {
				continue
			}
			g, err := glob.Compile(segment, '/')
			if err != nil {
				return fmt.Errorf("invalid glob pattern: %w", err)
			}
			m.dotGlobs = append(m.dotGlobs, g)
		}
	case Regex:
		pattern := m.pattern
		if opts.Anchored {
			if !strings.HasPrefix(pattern, "^") {
				pattern = "^" + pattern
			}
			if !strings.HasSuffix(pattern, "$") {
				pattern += "$"
			}
		}
		if opts.CaseInsensitive && !strings.HasPrefix(pattern, "(?i)") {
			pattern = "(?i)" + pattern
		}

		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		m.compiled = compiled
	default:
		return fmt.Errorf("unsupported pattern type: %v", m.patternType)
	}
	return nil
}

// globVariants expands every `**/` segment into the variants with and
// without it, so `**/*.md` also matches `README.md` and `docs/**/*.md`
// also matches `docs/a.md`.
func globVariants(pattern string) []string {
	idx := -1
	for i := 0; i+3 <= len(pattern); i++ {
		if pattern[i:i+3] == "**/" && (i == 0 || pattern[i-1] == '/') {
			idx = i
			break
		}
	}
	if idx < 0 {
		return []string{pattern}
	}

	head, tail := pattern[:idx], pattern[idx+3:]
	var variants []string
	for _, rest := range globVariants(tail) {
		variants = append(variants, head+"**/"+rest, head+rest)
	}
	return variants
}

// Match checks if the input matches the pattern.
func (m *matcher) Match(input string) bool {
	switch m.patternType {
	case Glob:
		if m.caseInsensitive {
			input = strings.ToLower(input)
		}
		if !m.dot && !m.hiddenAllowed(input) {
			return false
		}
		for _, g := range m.globs {
			if g.Match(input) {
				return true
			}
		}
		return false
	case Regex:
		return m.compiled.MatchString(input)
	default:
		return false
	}
}

// hiddenAllowed reports whether every dot segment of input is named by a
// dot segment of the pattern.
func (m *matcher) hiddenAllowed(input string) bool {
	for _, segment := range strings.Split(input, "/") {
		if !hidden(segment) {
			continue
		}
		named := false
		for _, g := range m.dotGlobs {
			if g.Match(segment) {
				named = true
				break
			}
		}
		if !named {
			return false
		}
	}
	return true
}

func hidden(segment string) bool {
	return strings.HasPrefix(segment, ".") && segment != "." && segment != ".."
}

// Pattern returns the original pattern string.
func (m *matcher) Pattern() string {
	return m.pattern
}

// Type returns the pattern type being used.
func (m *matcher) Type() PatternType {
	return m.patternType
}

// detectPatternType attempts to detect if a pattern is glob or regex.
// Braces are glob alternation here, so only unambiguous regex syntax counts.
func detectPatternType(pattern string) PatternType {
	regexIndicators := []string{
		"^", "$", "\\d", "\\w", "\\s", "\\D", "\\W", "\\S",
		"(?:", "(?i)", "(?m)", "(?s)",
		".*", "+", "|", "(", ")",
	}
	for _, indicator := range regexIndicators {
		if strings.Contains(pattern, indicator) {
			return Regex
		}
	}
	return Glob
}

// Pattern prefixes select the pattern type per pattern.
const (
	RegexPrefix = "regex:"
	AutoPrefix  = "auto:"
	GlobPrefix  = "glob:"
)

// parsePattern strips a type prefix from pattern. Unprefixed patterns get
// fallback.
func parsePattern(pattern string, fallback PatternType) (PatternType, string) {
	switch {
	case strings.HasPrefix(pattern, RegexPrefix):
		return Regex, strings.TrimPrefix(pattern, RegexPrefix)
	case strings.HasPrefix(pattern, AutoPrefix):
		return Auto, strings.TrimPrefix(pattern, AutoPrefix)
	case strings.HasPrefix(pattern, GlobPrefix):
		return Glob, strings.TrimPrefix(pattern, GlobPrefix)
	default:
		return fallback, pattern
	}
}

// MultiMatcher matches when any of its patterns matches.
type MultiMatcher struct {
	matchers []Matcher
	patterns []string
}

// NewMultiMatcher creates a matcher with multiple patterns. Empty patterns are
// ignored. A "regex:", "auto:" or "glob:" prefix overrides patternType for
// that pattern.
func NewMultiMatcher(patterns []string, patternType PatternType, opts ...*Options) (*MultiMatcher, error) {
	mm := &MultiMatcher{matchers: make([]Matcher, 0, len(patterns))}

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		pt, expr := parsePattern(pattern, patternType)
		m, err := New(pt, expr, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create matcher for pattern %q: %w", pattern, err)
		}
		mm.matchers = append(mm.matchers, m)
		mm.patterns = append(mm.patterns, pattern)
	}
	return mm, nil
}

// Match returns true if any pattern matches.
func (mm *MultiMatcher) Match(input string) bool {
	for _, m := range mm.matchers {
		if m.Match(input) {
			return true
		}
	}
	return false
}

// Len returns the number of patterns.
func (mm *MultiMatcher) Len() int {
	return len(mm.matchers)
}

// Patterns returns the pattern strings as given, prefixes included.
func (mm *MultiMatcher) Patterns() []string {
	return append([]string(nil), mm.patterns...)
}

// Filter selects paths matching at least one include pattern and no exclude pattern.
type Filter struct {
	include *MultiMatcher
	exclude *MultiMatcher
}

// NewFilter compiles include and exclude patterns. Unprefixed patterns are
// globs; "regex:" patterns must match the whole path. With no include
// patterns every path is included.
//
// Include globs skip hidden segments they do not name; exclude globs match
// them, so an exclude applies inside a hidden directory an include names.
func NewFilter(include, exclude []string, opts ...*Options) (*Filter, error) {
	base := Options{}
	if len(opts) > 0 && opts[0] != nil {
		base = *opts[0]
	}
	base.Anchored = true

	incOpts, excOpts := base, base
	excOpts.Dot = true

	inc, err := NewMultiMatcher(include, Glob, &incOpts)
	if err != nil {
		return nil, fmt.Errorf("include: %w", err)
	}
	exc, err := NewMultiMatcher(exclude, Glob, &excOpts)
	if err != nil {
		return nil, fmt.Errorf("exclude: %w", err)
	}
	return &Filter{include: inc, exclude: exc}, nil
}

// Allow reports whether path passes the filter. Paths use '/' separators.
func (f *Filter) Allow(path string) bool {
	if f.exclude.Match(path) {
		return false
	}
	return f.include.Len() == 0 || f.include.Match(path)
}

// Select returns the allowed paths, in order.
func (f *Filter) Select(paths ...string) []string {
	selected := make([]string, 0, len(paths))
	for _, p := range paths {
		if f.Allow(p) {
			selected = append(selected, p)
		}
	}
	return selected
}

// Include returns the include patterns.
func (f *Filter) Include() []string {
	return f.include.Patterns()
}

// Exclude returns the exclude patterns.
func (f *Filter) Exclude() []string {
	return f.exclude.Patterns()
}
