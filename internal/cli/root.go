package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fedgate/internal/config"
	"fedgate/internal/flags"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var cfg = config.New()

var rootCmd = &cobra.Command{
	Use:   "fedgate",
	Short: "Gate artifact uploads against duplicates in a federation of platform deployments",
	Long: `Fedgate checks whether an artifact already exists anywhere in a configured
federation of platform deployments (JPDs) and turns the finding into an
upload-gating decision: PROCEED, STOP, or WARN.

The federation is described by a JSON document listing target deployments,
their repositories, and optional path roots, plus the gating action:

  {"jpds": [{"url": "https://edge1.example.com/artifactory",
             "repos": ["libs-release",
                       {"name": "docker-local", "paths": ["immutable"]}]}],
   "action": "block"}

Examples:
	# Gate one upload from the CLI
	fedgate check --repo libs-release --path immutable/x/app.jar

	# Audit a whole repository for duplicates
	fedgate scan --repo libs-release --report report.md

	# Serve the gate over HTTP for platform hooks
	fedgate serve --listen :8045

	# Show the normalized federation configuration
	fedgate targets list

Output:
	By default, commands write human-readable output to stdout.
	Structured output is available via --console-format, --out and --report
	(see each command's --help).`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, "verbose", false, "Enable verbose logging (prints every deployment API call and full error details)")
	rootCmd.PersistentFlags().StringVar(&cfg.Platform.URL, flags.FlagURL, "", "Base URL of the local platform deployment (or FEDGATE_URL)")
	rootCmd.PersistentFlags().StringVar(&cfg.Platform.ConfigRepoPath, flags.FlagConfig, "", "Federation configuration location on the local deployment as repo/path.json (or FEDGATE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&cfg.Platform.ConfigFile, flags.FlagConfigFile, "", "Read the federation configuration from a local file instead of the deployment")
	rootCmd.PersistentFlags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Parallel existence queries against federation targets")
	rootCmd.PersistentFlags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Wall-clock budget for one evaluation or scan")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	// Environment first; flags parsed by Execute override it.
	if err := cfg.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(3)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
