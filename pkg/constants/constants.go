// Package constants provides shared constants used throughout docsync:
// remote API defaults, retry budget, pagination and file permissions.
package constants

import "time"

// Remote service defaults
const (
	// DefaultBaseURL is the hosted Outline endpoint used when no base URL is configured
	DefaultBaseURL = "https://app.getoutline.com"

	// APIPathPrefix is prepended to every endpoint name under the base URL
	APIPathPrefix = "/api/"
)

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the per-attempt timeout for remote API requests
	DefaultHTTPTimeout = 30 * time.Second

	// ShutdownTimeout bounds cleanup after a failed command
	ShutdownTimeout = 5 * time.Second

	// RetryBackoff is the base backoff duration for retries
	RetryBackoff = 1 * time.Second
)

// Limit constants
const (
	// MaxRetries is the number of additional attempts after the first one fails transiently
	MaxRetries = 3

	// DefaultPageSize is the number of documents requested per listing page
	DefaultPageSize = 100

	// MaxErrorBodyBytes caps how much of an error response body is kept in an APIError
	MaxErrorBodyBytes = 4096
)

// Local sync defaults
const (
	// DefaultFilePattern matches every markdown file in the tree
	DefaultFilePattern = "**/*.md"

	// SyncModeChanged diffs against a base ref
	SyncModeChanged = "changed"

	// SyncModeFull scans every matching file
	SyncModeFull = "full"
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)
