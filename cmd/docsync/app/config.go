package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/sync"
)

// Config holds the application configuration loaded from config files,
// environment variables and .env files. Flags are applied on top by the
// commands.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Remote service
	APIKey       string
	AuthHeader   string
	BaseURL      string
	CollectionID string
	Publish      bool
	MaxRetries   int
	RetryDelay   time.Duration
	HTTPTimeout  time.Duration

	// Change set selection
	Mode          string
	BaseRef       string
	EventName     string
	Dir           string
	FilePattern   string
	Exclude       []string
	IgnoreCase    bool
	DeleteRemoved bool
	DryRun        bool

	// Pipeline output file
	OutputFile string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// envBindings maps config keys to the environment variables they are read from.
var envBindings = map[string]string{
	"api_key":          "OUTLINE_API_KEY",
	"auth_header":      "OUTLINE_AUTH_HEADER",
	"base_url":         "OUTLINE_BASE_URL",
	"collection_id":    "COLLECTION_ID",
	"mode":             "SYNC_MODE",
	"delete_removed":   "DELETE_REMOVED",
	"file_pattern":     "FILE_PATTERN",
	"exclude_patterns": "EXCLUDE_PATTERNS",
	"ignore_case":      "PATTERN_IGNORE_CASE",
	"base_ref":         "GITHUB_BASE_REF",
	"event_name":       "GITHUB_EVENT_NAME",
	"output_file":      "GITHUB_OUTPUT",
	"dry_run":          "DRY_RUN",
	"publish":          "PUBLISH",
	"max_retries":      "MAX_RETRIES",
	"retry_base_delay": "RETRY_BASE_DELAY",
	"http_timeout":     "HTTP_TIMEOUT",
	"log_level":        "LOG_LEVEL",
	"log_format":       "LOG_FORMAT",
	"log_output":       "LOG_OUTPUT",
	"no_color":         "NO_COLOR",
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (./.docsync.yaml, ~/.docsync.yaml or configFile)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	// Load .env files first; they never override the real environment
	loadEnvFiles()

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.NewConfigError(key, "failed to bind "+env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigType("yaml")
		v.SetConfigName(".docsync")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit config file must exist and parse
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("config", fmt.Sprintf("failed to read config file: %v", err), err)
		}
	}

	config := &Config{
		ConfigFile: v.ConfigFileUsed(),
		NoColor:    v.GetString("no_color") != "",

		APIKey:       strings.TrimSpace(v.GetString("api_key")),
		AuthHeader:   strings.TrimSpace(v.GetString("auth_header")),
		BaseURL:      v.GetString("base_url"),
		CollectionID: strings.TrimSpace(v.GetString("collection_id")),
		Publish:      v.GetBool("publish"),
		MaxRetries:   v.GetInt("max_retries"),
		RetryDelay:   v.GetDuration("retry_base_delay"),
		HTTPTimeout:  v.GetDuration("http_timeout"),

		Mode:          strings.ToLower(v.GetString("mode")),
		BaseRef:       v.GetString("base_ref"),
		EventName:     v.GetString("event_name"),
		Dir:           ".",
		FilePattern:   v.GetString("file_pattern"),
		Exclude:       patternList(v.Get("exclude_patterns")),
		IgnoreCase:    v.GetBool("ignore_case"),
		DeleteRemoved: parseEnabled(v.GetString("delete_removed")),
		DryRun:        v.GetBool("dry_run"),

		OutputFile: v.GetString("output_file"),

		// LogLevel stays empty unless set so -v/-q can apply
		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}

	return config, nil
}

// setDefaults registers the default value of every key.
func setDefaults(v *viper.Viper) {
	d := sync.Defaults()
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("mode", d.Mode)
	v.SetDefault("delete_removed", "true")
	v.SetDefault("file_pattern", d.Include)
	v.SetDefault("publish", d.Publish)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("retry_base_delay", d.RetryDelay)
	v.SetDefault("http_timeout", d.HTTPTimeout)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// UpdateFromFlags updates config values from parsed global flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = c.NoColor || noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// SyncConfig converts the loaded configuration into a run configuration.
// The base ref is kept only when changed mode may diff against it.
func (c *Config) SyncConfig() sync.Config {
	return sync.Defaults().With(
		sync.WithCredentials(c.APIKey, c.CollectionID),
		sync.WithAuthHeader(c.AuthHeader),
		sync.WithBaseURL(c.BaseURL),
		sync.WithMode(c.Mode, EffectiveBaseRef(c.BaseRef, c.EventName, false)),
		sync.WithDir(c.Dir),
		sync.WithPatterns(c.FilePattern, c.Exclude...),
		sync.WithIgnoreCase(c.IgnoreCase),
		sync.WithDeleteRemoved(c.DeleteRemoved),
		sync.WithDryRun(c.DryRun),
		sync.WithPublish(c.Publish),
		sync.WithRetry(c.MaxRetries, c.RetryDelay),
		sync.WithHTTPTimeout(c.HTTPTimeout),
	)
}

// EffectiveBaseRef returns the ref changed mode diffs against. A ref given
// explicitly on the command line is always used; one taken from the CI
// environment only applies to pull request events.
func EffectiveBaseRef(ref, eventName string, explicit bool) string {
	if ref == "" || explicit {
		return ref
	}
	switch eventName {
	case "pull_request", "pull_request_target":
		return ref
	default:
		return ""
	}
}

// parseEnabled treats every value except "false" as enabled.
func parseEnabled(value string) bool {
	return !strings.EqualFold(strings.TrimSpace(value), "false")
}

// patternList reads exclude patterns from a comma separated string or a
// YAML list.
func patternList(raw any) []string {
	switch v := raw.(type) {
	case string:
		return SplitPatterns(v)
	case []string:
		return SplitPatterns(strings.Join(v, ","))
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, SplitPatterns(s)...)
			}
		}
		return out
	default:
		return nil
	}
}

// SplitPatterns splits a comma separated pattern list. Commas inside braces
// belong to the pattern, so "docs/*.{md,mdx},drafts/**" is two patterns.
func SplitPatterns(s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	add := func(p string) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	for i, r := range s {
		switch r {
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				add(s[start:i])
				start = i + 1
			}
		}
	}
	add(s[start:])
	return out
}

// loadEnvFiles loads environment variables from .env files.
func loadEnvFiles() {
	// .env.local is loaded second; godotenv never overrides a set variable,
	// so values from .env win over .env.local
	envFiles := []string{
		".env",
		".env.local",
	}

	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}
