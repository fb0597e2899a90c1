// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newAuditCommand(app *App) *cobra.Command {
	var limit int

	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent admission verdicts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return err
			}
			store, closeStore, err := openAuditStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, closeStore()) }()

			records, err := store.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("no admissions recorded"))
				return nil
			}
			for _, r := range records {
				verdict := SuccessStyle.Render("accepted")
				switch {
				case r.Unreadable:
					verdict = WarningStyle.Render("unreadable")
				case !r.Accepted:
					verdict = ErrorStyle.Render("rejected")
				}
				fmt.Fprintf(app.stdout, "%s  %-10s %s %s\n",
					r.ScannedAt.Local().Format(time.DateTime), verdict, PathStyle.Render(r.Path),
					SubtitleStyle.Render(shortDigest(r.SHA256)))
				if len(r.Reasons) > 0 {
					fmt.Fprintln(app.stdout, sectionStyle.Render(r.Reasons[0]))
				}
			}
			return nil
		},
	}
	auditCmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries (0 for all)")
	return auditCmd
}
