// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the modgate CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/modgate/modgate/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree for app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "modgate",
		Short: "Scan and load game mods behind a security policy",
		Long: TitleStyle.Render("modgate") + SubtitleStyle.Render(" - scan and load game mods behind a security policy") + `

modgate inspects compiled mod modules without running them and rejects any
module that references a dangerous type or method, such as file, network,
process or reflection APIs. Accepted modules are instantiated and
registered by mod identifier.

` + SubtitleStyle.Render("Examples:") + `
  modgate scan ./mods/*.modimg   Scan files and print each verdict
  modgate check                  Admit every file in the mods directory
  modgate policy --markdown      Show the effective denylist
  modgate audit --limit 20       Show recent admission verdicts`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output and debug logging")
	pf.StringVar(&app.flags.configPath, "config", "", "config file (default is <config dir>/modgate/config.cue)")
	pf.StringVar(&app.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&app.flags.logFormat, "log-format", "", "log format: text, json or logfmt")

	rootCmd.AddCommand(
		newScanCommand(app),
		newCheckCommand(app),
		newPolicyCommand(app),
		newAuditCommand(app),
		newConfigCommand(app),
		newVersionCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process with the resulting code.
func Execute() {
	app := NewApp(Dependencies{})
	rootCmd := NewRootCommand(app)

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		if app.flags.verbose {
			fmt.Fprintln(app.stderr, formatErrorForDisplay(err, true))
			renderIssue(app.stderr, err)
		}
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// formatErrorForDisplay uses ActionableError.Format when available.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

// renderIssue prints the catalog guidance linked to err, if any.
func renderIssue(w io.Writer, err error) {
	renderGuidance(w, issue.IssueOf(err))
}

func renderGuidance(w io.Writer, entry *issue.Issue) {
	if entry == nil {
		return
	}
	out, err := entry.Render("auto")
	if err != nil {
		return
	}
	fmt.Fprintln(w, out)
}

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the modgate version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(app.stdout, "modgate "+getVersionString())
			return err
		},
	}
}
