// Package sync runs one reconciliation of a local file tree against a
// document collection.
package sync

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/agentstation/docsync/internal/matcher"
	"github.com/agentstation/docsync/pkg/constants"
	"github.com/agentstation/docsync/pkg/errors"
)

// Config is the complete, immutable configuration of a run. It is built once
// from flags and environment by the caller; nothing below reads the
// environment.
type Config struct {
	// Remote service
	APIKey       string        `json:"-" yaml:"-"`
	AuthHeader   string        `json:"auth_header,omitempty" yaml:"auth_header,omitempty"`
	BaseURL      string        `json:"base_url" yaml:"base_url"`
	CollectionID string        `json:"collection_id" yaml:"collection_id"`
	Publish      bool          `json:"publish" yaml:"publish"`
	MaxRetries   int           `json:"max_retries" yaml:"max_retries"`
	RetryDelay   time.Duration `json:"retry_delay" yaml:"retry_delay"`
	HTTPTimeout  time.Duration `json:"http_timeout" yaml:"http_timeout"`

	// Change set selection
	Mode          string   `json:"mode" yaml:"mode"`
	BaseRef       string   `json:"base_ref,omitempty" yaml:"base_ref,omitempty"`
	Dir           string   `json:"dir" yaml:"dir"`
	Include       string   `json:"include" yaml:"include"`
	Exclude       []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	IgnoreCase    bool     `json:"ignore_case" yaml:"ignore_case"`
	DeleteRemoved bool     `json:"delete_removed" yaml:"delete_removed"`

	// Orchestration control
	DryRun bool `json:"dry_run" yaml:"dry_run"`
}

// Defaults returns the default run configuration, without credentials.
func Defaults() Config {
	return Config{
		BaseURL:       constants.DefaultBaseURL,
		Publish:       true,
		MaxRetries:    constants.MaxRetries,
		RetryDelay:    constants.RetryBackoff,
		HTTPTimeout:   constants.DefaultHTTPTimeout,
		Mode:          constants.SyncModeFull,
		Dir:           ".",
		Include:       constants.DefaultFilePattern,
		DeleteRemoved: true,
	}
}

// Option is a function that adjusts a Config.
type Option func(*Config)

// With returns a copy of c with opts applied.
func (c Config) With(opts ...Option) Config {
	if len(c.Exclude) > 0 {
		c.Exclude = append([]string(nil), c.Exclude...)
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithCredentials sets the API key and collection.
func WithCredentials(apiKey, collectionID string) Option {
	return func(c *Config) {
		c.APIKey = apiKey
		c.CollectionID = collectionID
	}
}

// WithBaseURL sets the service root.
func WithBaseURL(baseURL string) Option {
	return func(c *Config) {
		c.BaseURL = baseURL
	}
}

// WithMode sets the sync mode and the base ref used by changed mode.
func WithMode(mode, baseRef string) Option {
	return func(c *Config) {
		c.Mode = mode
		c.BaseRef = baseRef
	}
}

// WithDir sets the working tree root.
func WithDir(dir string) Option {
	return func(c *Config) {
		c.Dir = dir
	}
}

// WithPatterns sets the include pattern and exclude patterns.
func WithPatterns(include string, exclude ...string) Option {
	return func(c *Config) {
		c.Include = include
		c.Exclude = exclude
	}
}

// WithIgnoreCase configures case-insensitive pattern matching.
func WithIgnoreCase(enabled bool) Option {
	return func(c *Config) {
		c.IgnoreCase = enabled
	}
}

// WithAuthHeader sends the API key in header instead of a bearer
// Authorization header. Empty restores bearer authentication.
func WithAuthHeader(header string) Option {
	return func(c *Config) {
		c.AuthHeader = header
	}
}

// WithDeleteRemoved configures whether removed files delete their documents.
func WithDeleteRemoved(enabled bool) Option {
	return func(c *Config) {
		c.DeleteRemoved = enabled
	}
}

// WithDryRun configures dry run mode.
func WithDryRun(dryRun bool) Option {
	return func(c *Config) {
		c.DryRun = dryRun
	}
}

// WithPublish configures whether created documents are published.
func WithPublish(publish bool) Option {
	return func(c *Config) {
		c.Publish = publish
	}
}

// WithRetry configures the retry budget and base delay.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithHTTPTimeout configures the per-attempt HTTP timeout.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.HTTPTimeout = timeout
	}
}

// ValidateRemote checks the settings needed to talk to the remote service.
func (c Config) ValidateRemote() error {
	if c.APIKey == "" {
		return errors.NewConfigError("api_key", "OUTLINE_API_KEY is required", errors.ErrAPIKeyRequired)
	}
	if c.CollectionID == "" {
		return errors.NewConfigError("collection_id", "COLLECTION_ID is required", nil)
	}

	if c.AuthHeader != "" && strings.ContainsAny(c.AuthHeader, " \t\r\n:") {
		return errors.NewConfigError("auth_header",
			fmt.Sprintf("invalid header name %q", c.AuthHeader),
			errors.NewValidationError("auth_header", c.AuthHeader, "must be a single header name"))
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.NewConfigError("base_url",
			fmt.Sprintf("invalid base URL %q", c.BaseURL),
			errors.NewValidationError("base_url", c.BaseURL, "must be an absolute http(s) URL"))
	}

	if c.MaxRetries < 0 {
		return errors.NewConfigError("max_retries", "must not be negative",
			errors.NewValidationError("max_retries", c.MaxRetries, "must not be negative"))
	}
	if c.RetryDelay < 0 {
		return errors.NewConfigError("retry_delay", "must not be negative",
			errors.NewValidationError("retry_delay", c.RetryDelay, "must not be negative"))
	}
	if c.HTTPTimeout < 0 {
		return errors.NewConfigError("http_timeout", "must not be negative",
			errors.NewValidationError("http_timeout", c.HTTPTimeout, "must not be negative"))
	}
	return nil
}

// Validate checks every setting of a sync run.
func (c Config) Validate() error {
	if err := c.ValidateRemote(); err != nil {
		return err
	}

	switch c.Mode {
	case constants.SyncModeChanged, constants.SyncModeFull:
	default:
		return errors.NewConfigError("mode",
			fmt.Sprintf("unknown sync mode %q", c.Mode),
			errors.NewValidationError("mode", c.Mode, "must be one of: changed, full"))
	}

	if _, err := c.Filter(); err != nil {
		return err
	}
	return nil
}

// Filter compiles the include and exclude patterns. Patterns are globs unless
// prefixed with "regex:" or "auto:".
func (c Config) Filter() (*matcher.Filter, error) {
	f, err := matcher.NewFilter([]string{c.Include}, c.Exclude, &matcher.Options{CaseInsensitive: c.IgnoreCase})
	if err != nil {
		return nil, errors.NewConfigError("pattern", err.Error(), errors.WrapValidation("pattern", err))
	}
	return f, nil
}
