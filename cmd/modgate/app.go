// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/modgate/modgate/internal/config"
	"github.com/modgate/modgate/internal/issue"
	"github.com/modgate/modgate/internal/logging"
	"github.com/modgate/modgate/pkg/policy"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and reads configuration through it.
	App struct {
		Config ConfigProvider
		stdout io.Writer
		stderr io.Writer
		flags  rootFlags
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Stdout io.Writer
		Stderr io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	rootFlags struct {
		configPath string
		verbose    bool
		logLevel   string
		logFormat  string
	}
)

// NewApp creates an App with production defaults for nil dependencies.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// loadConfig loads configuration honoring --config, then applies the
// logging flags on top of the file values.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.flags.configPath})
	if err != nil {
		return nil, err
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	} else if a.flags.verbose {
		cfg.Log.Level = logging.LevelDebug
	}
	if a.flags.logFormat != "" {
		cfg.Log.Format = a.flags.logFormat
	}
	return cfg, nil
}

// logger builds the stderr logger for cfg.
func (a *App) logger(cfg *config.Config) (*log.Logger, error) {
	logger, err := logging.New(a.stderr, logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Prefix: config.AppName,
	})
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("configure logging").
			WithSuggestion("Use one of: debug, info, warn, error").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	return logger, nil
}

// buildPolicy derives the effective policy, optionally overriding the
// extra policy file.
func buildPolicy(cfg *config.Config, policyFile string) (*policy.Policy, error) {
	pc := cfg.Policy
	if policyFile != "" {
		pc.File = policyFile
	}
	pol, err := pc.Build()
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("build security policy").
			WithResource(pc.File).
			WithSuggestion("Run 'modgate policy' with the default configuration to compare").
			WithIssue(issue.PolicyInvalidId).
			Wrap(err).
			BuildError()
	}
	return pol, nil
}
