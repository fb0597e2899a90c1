// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/modgate/modgate/pkg/metadata"
	"github.com/modgate/modgate/pkg/policy"
	"github.com/modgate/modgate/pkg/scanner"
)

type scanFlags struct {
	banAll     bool
	policyFile string
}

func newScanCommand(app *App) *cobra.Command {
	var flags scanFlags

	scanCmd := &cobra.Command{
		Use:   "scan FILE...",
		Short: "Scan module images and print each verdict",
		Long: `Scan module images against the effective security policy without
loading them. The command exits with status 1 when any file is rejected or
cannot be read.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, app, flags, args)
		},
	}
	scanCmd.Flags().BoolVar(&flags.banAll, "ban-all", true, "reject any use of a dangerous type, not only denylisted methods")
	scanCmd.Flags().StringVar(&flags.policyFile, "policy", "", "extra policy file (.cue, .json, .yaml)")
	return scanCmd
}

func runScan(cmd *cobra.Command, app *App, flags scanFlags, paths []string) error {
	ctx := cmd.Context()
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	logger, err := app.logger(cfg)
	if err != nil {
		return err
	}
	pol, err := buildPolicy(cfg, flags.policyFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("ban-all") {
		if pol, err = pol.With(policy.WithBanAllInNamespace(flags.banAll)); err != nil {
			return err
		}
	}

	sc := scanner.New(pol)
	reader := metadata.ImageReader{MaxSize: cfg.Mods.MaxFileSize}

	var rejected []scanner.Verdict
	for _, path := range paths {
		module, verdict := scanPath(ctx, sc, reader, path, cfg.Mods.ParseTimeout)
		name := ""
		if module != nil {
			name = module.Name
		}
		printVerdict(app.stdout, path, name, verdict)
		if !verdict.Accepted {
			rejected = append(rejected, verdict)
			logger.Debug("scan rejected", "file", path, "reason", verdict.FirstReason())
		}
	}

	fmt.Fprintf(app.stdout, "\n%d scanned, %d rejected\n", len(paths), len(rejected))
	if len(rejected) > 0 {
		return newRejectedError("scan modules", rejected, len(paths))
	}
	return nil
}

func scanPath(ctx context.Context, sc *scanner.Scanner, r metadata.Reader, path string, timeout time.Duration) (*metadata.Module, scanner.Verdict) {
	f, err := os.Open(path)
	if err != nil {
		return nil, scanner.Unreadable(metadata.Unreadable(path, err))
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return sc.ScanReader(ctx, r, path, f)
}

func printVerdict(w io.Writer, path, module string, v scanner.Verdict) {
	switch {
	case v.Accepted:
		if module != "" {
			module = " " + SubtitleStyle.Render("("+module+")")
		}
		fmt.Fprintf(w, "%s %s%s\n", SuccessStyle.Render("✓"), PathStyle.Render(path), module)
	case v.Unreadable():
		fmt.Fprintf(w, "%s %s: %s\n", WarningStyle.Render("?"), PathStyle.Render(path), v.FirstReason())
	default:
		fmt.Fprintf(w, "%s %s: %s\n", ErrorStyle.Render("✗"), PathStyle.Render(path), v.FirstReason())
	}
}
