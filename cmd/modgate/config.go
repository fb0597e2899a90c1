// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/modgate/modgate/internal/config"
)

func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as CUE",
		Long: `Print the effective configuration as CUE.

Configuration is stored in:
  - Linux: ~/.config/modgate/config.cue
  - macOS: ~/Library/Application Support/modgate/config.cue
  - Windows: %APPDATA%\modgate\config.cue

MODGATE_* environment variables override file values, e.g. MODGATE_MODS_DIR.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			_, err = io.WriteString(app.stdout, config.GenerateCUE(cfg))
			return err
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, created, err := config.CreateDefaultConfig()
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("config already exists: ")+PathStyle.Render(path))
				return nil
			}
			fmt.Fprintln(app.stdout, SuccessStyle.Render("✓")+" wrote "+PathStyle.Render(path))
			return nil
		},
	})
	return cfgCmd
}
