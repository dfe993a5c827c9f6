// Package app wires configuration, logging, and the sync pipeline into the
// starsync CLI. It centralizes dependency construction so commands stay
// thin.
package app

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/starsync/internal/sources/github"
	"github.com/agentstation/starsync/internal/state"
	"github.com/agentstation/starsync/internal/targets/notion"
	"github.com/agentstation/starsync/pkg/logging"
	syncpkg "github.com/agentstation/starsync/pkg/sync"
)

// App holds the CLI's dependencies.
type App struct {
	version string
	commit  string
	date    string

	config *Config
	logger *zerolog.Logger
}

// New creates an App with the given version information. Configuration is
// loaded from the environment and .env files immediately; credential
// presence is checked later, per command, so help and version work without
// tokens.
func New(version, commit, date string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version string.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// githubClient builds the source client from config.
func (a *App) githubClient() *github.Client {
	return github.NewClient(a.config.GitHubToken)
}

// notionClient builds the target client from config.
func (a *App) notionClient() *notion.Client {
	return notion.NewClient(a.config.NotionToken, a.config.NotionDatabaseID)
}

// syncer builds the full pipeline from config.
func (a *App) syncer(dryRun, allowEmpty bool) *syncpkg.Syncer {
	return syncpkg.New(
		a.githubClient(),
		a.notionClient(),
		state.NewStore(a.config.StatePath),
		syncpkg.WithDryRun(dryRun),
		syncpkg.WithAllowEmpty(allowEmpty),
	)
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// applyLogger installs the app logger as the package default so library
// code logs through the same sink.
func (a *App) applyLogger() {
	logging.SetDefault(*a.logger)
}
