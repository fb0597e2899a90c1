// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/modgate/modgate/pkg/policy"
)

type policyFlags struct {
	policyFile string
	markdown   bool
	style      string
}

func newPolicyCommand(app *App) *cobra.Command {
	var flags policyFlags

	policyCmd := &cobra.Command{
		Use:   "policy",
		Short: "Show the effective security policy",
		Long: `Show the denylist that scans run with: the built-in defaults combined with
the policy section of the configuration and the optional policy file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			pol, err := buildPolicy(cfg, flags.policyFile)
			if err != nil {
				return err
			}
			if flags.markdown {
				out, err := glamour.Render(policyMarkdown(pol), flags.style)
				if err != nil {
					return fmt.Errorf("render policy: %w", err)
				}
				_, err = io.WriteString(app.stdout, out)
				return err
			}
			printPolicy(app.stdout, pol)
			return nil
		},
	}
	policyCmd.Flags().StringVar(&flags.policyFile, "policy", "", "extra policy file (.cue, .json, .yaml)")
	policyCmd.Flags().BoolVar(&flags.markdown, "markdown", false, "render the policy as Markdown")
	policyCmd.Flags().StringVar(&flags.style, "style", "auto", "glamour style for --markdown (auto, dark, light, notty)")
	return policyCmd
}

func printPolicy(w io.Writer, p *policy.Policy) {
	mode := "dangerous methods only"
	if p.BanAllInNamespace() {
		mode = "any use of a dangerous type"
	}
	fmt.Fprintln(w, TitleStyle.Render("Security policy")+" "+SubtitleStyle.Render(shortDigest(p.Fingerprint())))
	fmt.Fprintf(w, "%s %s\n", SubtitleStyle.Render("rejects:"), mode)

	section := func(title string, entries []string) {
		fmt.Fprintf(w, "\n%s %s\n", TitleStyle.Render(title), SubtitleStyle.Render(fmt.Sprintf("(%d)", len(entries))))
		for _, e := range entries {
			fmt.Fprintln(w, sectionStyle.Render(e))
		}
	}
	section("Namespaces", p.Namespaces())
	section("Types", p.Types())
	section("Methods", p.Methods())
}

func policyMarkdown(p *policy.Policy) string {
	var sb strings.Builder
	sb.WriteString("# Security policy\n\n")
	fmt.Fprintf(&sb, "Fingerprint: `%s`\n\n", p.Fingerprint())
	if p.BanAllInNamespace() {
		sb.WriteString("Any reference to a dangerous type is rejected.\n")
	} else {
		sb.WriteString("Only calls to dangerous methods on dangerous types are rejected.\n")
	}

	list := func(title string, entries []string) {
		fmt.Fprintf(&sb, "\n## %s\n\n", title)
		if len(entries) == 0 {
			sb.WriteString("_none_\n")
			return
		}
		for _, e := range entries {
			fmt.Fprintf(&sb, "- `%s`\n", e)
		}
	}
	list("Namespaces", p.Namespaces())
	list("Types", p.Types())
	list("Methods", p.Methods())
	return sb.String()
}
