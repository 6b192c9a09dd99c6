package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fedgate/internal/flags"
	"fedgate/internal/scan"
)

var (
	scanRepo string
	scanPath string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Audit a repository for artifacts duplicated in the federation",
	Long: `Walk a repository on the local deployment and evaluate every artifact
against the federation, as if each were being uploaded now.

The scan reads the federation configuration once, walks the repository's
directory listing, and runs one federated existence query per artifact.

Output:
	Console output is controlled by --console-format (default: text).
	Structured outputs can be written via:
	- --out / --out-format: write an aggregate JSON array or NDJSON stream to a file
	- --report: write a Markdown duplicate report
	- --no-console: suppress the console sink (use with --out for machine output)

	NDJSON mode emits one JSON object per line: lifecycle Events with a "type"
	field (scan.started, finding, scan.finished).

Exit codes:
	0 = clean scan, no duplicates
	1 = duplicates found under action "warn"
	2 = duplicates found that would be blocked
	3 = fatal error (scan did not run)

Examples:
	fedgate scan --repo libs-release
	fedgate scan --repo libs-release --path immutable --report dupes.md
	fedgate scan --repo libs-release --no-console --out findings.ndjson
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(scan.ExitFatal)
		}

		log := buildLogger(cfg.Runtime.Verbose)
		defer func() { _ = log.Sync() }()

		source, err := buildConfigSource(cfg, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(scan.ExitFatal)
		}
		client, err := localClient(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(scan.ExitFatal)
		}
		outMgr, err := setupOutputManager(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(scan.ExitFatal)
		}

		scanner, err := scan.NewScanner(source, buildSearcher(cfg, log), client, outMgr, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(scan.ExitFatal)
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Runtime.Timeout)
		defer cancel()

		code := scanner.Run(ctx, scanRepo, scanPath)
		if err := outMgr.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if code == scan.ExitClean {
				code = scan.ExitFatal
			}
		}
		os.Exit(code)
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanRepo, flags.FlagRepo, "", "Repository key on the local deployment to audit (required)")
	scanCmd.Flags().StringVar(&scanPath, flags.FlagPath, "", "Only audit artifacts under this path prefix")
	scanCmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json|ndjson")
	scanCmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this file")
	scanCmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Format for --out: json|ndjson (default: inferred from extension)")
	scanCmd.Flags().StringVar(&cfg.Output.Report, flags.FlagReport, "", "Write a Markdown duplicate report to this file")
	scanCmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress the console sink")
	_ = scanCmd.MarkFlagRequired(flags.FlagRepo)
	rootCmd.AddCommand(scanCmd)
}
