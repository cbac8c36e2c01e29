// Package app provides the application context and dependency management
// for the docsync CLI: configuration, logging, output and the commands that
// use them.
package app

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/agentstation/docsync/internal/transport"
	"github.com/agentstation/docsync/pkg/errors"
	"github.com/agentstation/docsync/pkg/sync"
)

// App represents the docsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config

	logger       *zerolog.Logger
	customLogger bool

	// fs receives the pipeline output file
	fs     afero.Fs
	stdout io.Writer

	runOpts       []sync.RunOption
	transportOpts []transport.Option
}

// New creates a new App instance with the given version information.
// Configuration is loaded from the environment unless WithConfig is given.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		fs:      afero.NewOsFs(),
		stdout:  os.Stdout,
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.config == nil {
		config, err := LoadConfig("")
		if err != nil {
			return nil, errors.WrapResource("load", "config", "", err)
		}
		app.config = config
	}

	if app.logger == nil {
		logger := NewLogger(app.config)
		app.logger = &logger
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Shutdown flushes what a failed run leaves behind. Nothing in a run holds
// resources past its return, so this only logs.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Debug().Msg("Shutting down")
	return ctx.Err()
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration instead of loading one.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		if config == nil {
			return errors.NewConfigError("config", "config must not be nil", nil)
		}
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger. Flags do not replace it.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		a.customLogger = true
		return nil
	}
}

// WithFs sets the filesystem the pipeline output file is written to.
func WithFs(fs afero.Fs) Option {
	return func(a *App) error {
		a.fs = fs
		return nil
	}
}

// WithOutput sets where reports are written.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.stdout = w
		return nil
	}
}

// WithRunOptions appends options for every sync run.
func WithRunOptions(opts ...sync.RunOption) Option {
	return func(a *App) error {
		a.runOpts = append(a.runOpts, opts...)
		return nil
	}
}

// WithTransportOptions appends options for the HTTP transport.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(a *App) error {
		a.transportOpts = append(a.transportOpts, opts...)
		return nil
	}
}
