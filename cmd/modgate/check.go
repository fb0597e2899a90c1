// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/modgate/modgate/internal/audit"
	"github.com/modgate/modgate/internal/config"
	"github.com/modgate/modgate/internal/issue"
	"github.com/modgate/modgate/pkg/modloader"
	"github.com/modgate/modgate/pkg/scanner"
)

const tracerName = "github.com/modgate/modgate/cmd/modgate"

// diagnosticIssues links non-fatal diagnostics to catalog guidance. Rejections
// are linked through the exit error instead.
var diagnosticIssues = map[string]issue.Id{
	modloader.CodeContractUnsatisfied: issue.InstantiationFailureId,
	modloader.CodeInstantiationFailed: issue.InstantiationFailureId,
	modloader.CodeAuditFailed:         issue.AuditStoreFailedId,
}

type checkFlags struct {
	dir        string
	policyFile string
	metrics    bool
}

func newCheckCommand(app *App) *cobra.Command {
	var flags checkFlags

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Admit every module file in the mods directory",
		Long: `Enumerate the mods directory and scan every candidate file in parallel,
exactly as a load would, without instantiating any mod. Verdicts are written to
the audit store when auditing is enabled. The command exits with status 1 when
any file is rejected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), app, flags)
		},
	}
	checkCmd.Flags().StringVar(&flags.dir, "dir", "", "mods directory (overrides mods.dir)")
	checkCmd.Flags().StringVar(&flags.policyFile, "policy", "", "extra policy file (.cue, .json, .yaml)")
	checkCmd.Flags().BoolVar(&flags.metrics, "metrics", false, "print loader metrics in Prometheus text format")
	return checkCmd
}

func runCheck(ctx context.Context, app *App, flags checkFlags) (err error) {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	logger, err := app.logger(cfg)
	if err != nil {
		return err
	}
	if !cfg.Mods.Enabled {
		logger.Info("mod loading is disabled; nothing to check")
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("mod loading is disabled (mods.enabled: false)"))
		return nil
	}

	pol, err := buildPolicy(cfg, flags.policyFile)
	if err != nil {
		return err
	}
	dir := flags.dir
	if dir == "" {
		if dir, err = cfg.ModsDir(); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	opts := []modloader.Option{
		modloader.WithPolicy(pol),
		modloader.WithLogger(logger),
		modloader.WithExtension(cfg.Mods.Extension),
		modloader.WithWorkers(cfg.Mods.Workers),
		modloader.WithMaxFileSize(cfg.Mods.MaxFileSize),
		modloader.WithParseTimeout(cfg.Mods.ParseTimeout),
		modloader.WithMetrics(modloader.NewMetrics(reg)),
		modloader.WithTracer(otel.Tracer(tracerName)),
	}

	if cfg.Audit.Enabled {
		store, closeStore, aerr := openAuditStore(ctx, cfg)
		if aerr != nil {
			return aerr
		}
		defer func() { err = errors.Join(err, closeStore()) }()
		opts = append(opts, modloader.WithAuditor(store))
	}

	loader, err := modloader.New(dir, opts...)
	if err != nil {
		return err
	}
	report, err := loader.Admit(ctx)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("admit mods").
			WithResource(dir).
			WithSuggestion("Check that the mods directory exists and is readable").
			WithIssue(issue.ModsDirUnavailableId).
			Wrap(err).
			BuildError()
	}

	printReport(app.stdout, report, app.flags.verbose)
	if flags.metrics {
		if err := writeMetrics(app.stdout, reg); err != nil {
			return err
		}
	}

	if files := report.Rejected(); len(files) > 0 {
		verdicts := make([]scanner.Verdict, len(files))
		for i, f := range files {
			verdicts[i] = f.Verdict
		}
		return newRejectedError("admit mods", verdicts, len(report.Files))
	}
	return nil
}

func openAuditStore(ctx context.Context, cfg *config.Config) (*audit.Store, func() error, error) {
	path, err := cfg.AuditPath()
	if err != nil {
		return nil, nil, err
	}
	store, err := audit.Open(ctx, path)
	if err != nil {
		return nil, nil, issue.NewErrorContext().
			WithOperation("open audit store").
			WithResource(path).
			WithIssue(issue.AuditStoreFailedId).
			Wrap(err).
			BuildError()
	}
	return store, store.Close, nil
}

func printReport(w io.Writer, report *modloader.Report, verbose bool) {
	fmt.Fprintln(w, TitleStyle.Render("Admission report")+" "+SubtitleStyle.Render(report.Dir))
	for _, f := range report.Files {
		printVerdict(w, f.Path, f.Module, f.Verdict)
	}
	if verbose {
		linked := map[issue.Id]bool{}
		for _, d := range report.Diagnostics {
			printDiagnostic(w, d)
			if id, ok := diagnosticIssues[d.Code]; ok {
				linked[id] = true
			}
		}
		for _, id := range slices.Sorted(maps.Keys(linked)) {
			renderGuidance(w, issue.Get(id))
		}
	}
	fmt.Fprintf(w, "\n%d accepted, %d rejected %s\n",
		len(report.Accepted()), len(report.Rejected()),
		SubtitleStyle.Render("(run "+report.RunID+", policy "+shortDigest(report.Policy)+")"))
}

func printDiagnostic(w io.Writer, d modloader.Diagnostic) {
	style := WarningStyle
	if d.Severity == modloader.SeverityError {
		style = ErrorStyle
	}
	fmt.Fprintln(w, sectionStyle.Render(style.Render(string(d.Severity))+" "+d.Code+": "+d.Message))
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	fmt.Fprintln(w)
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}

func shortDigest(s string) string {
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
