package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fedgate/internal/federation"
)

var targetsListQuiet bool

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Inspect the federation configuration",
	Long: `Inspect the federation configuration fedgate would use for gating.

Examples:
  # Show the normalized targets and any configuration diagnostics
  fedgate targets list
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var targetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the normalized federation targets",
	Long: `Parse the federation configuration and print every target with its
repository scopes and path roots, followed by any diagnostics for entries
that were dropped or defaulted during normalization.

Examples:
  fedgate targets list
  fedgate targets list --config-file federation.json
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		log := buildLogger(cfg.Runtime.Verbose)
		defer func() { _ = log.Sync() }()

		source, err := buildConfigSource(cfg, log)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Runtime.Timeout)
		defer cancel()

		fedCfg, diags := federation.Parse(source.Text(ctx))
		printFederation(cmd.OutOrStdout(), fedCfg, diags)
		return nil
	},
}

func printFederation(w io.Writer, cfg federation.Config, diags []federation.Diagnostic) {
	header := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(w, "%s %s\n", header("Action:"), cfg.Action)
	if len(cfg.Targets) == 0 {
		fmt.Fprintln(w, "No federation targets configured.")
	}
	for _, t := range cfg.Targets {
		if targetsListQuiet {
			fmt.Fprintln(w, t.URL)
			continue
		}
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintf(w, "%s %s\n", header("TARGET:"), t.URL)
		if len(t.Repos) == 0 {
			fmt.Fprintln(w, "  (matches the uploading repository, no path restriction)")
			continue
		}
		for _, r := range t.Repos {
			if len(r.PathRoots) == 0 {
				fmt.Fprintf(w, "  repo %s (whole repository)\n", r.Name)
			} else {
				fmt.Fprintf(w, "  repo %s under %s\n", r.Name, strings.Join(r.PathRoots, ", "))
			}
		}
	}

	if len(diags) > 0 && !targetsListQuiet {
		fmt.Fprintln(w, strings.Repeat("-", 40))
		warn := color.New(color.FgYellow).SprintFunc()
		for _, d := range diags {
			fmt.Fprintf(w, "%s %s\n", warn("diagnostic:"), d.String())
		}
	}
}

func init() {
	targetsListCmd.Flags().BoolVar(&targetsListQuiet, "quiet", false, "Only print target URLs")
	targetsCmd.AddCommand(targetsListCmd)
	rootCmd.AddCommand(targetsCmd)
}
