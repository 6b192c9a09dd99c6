package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fedgate/internal/flags"
	"fedgate/internal/policy"
	"fedgate/internal/scope"
)

var (
	checkRepo string
	checkPath string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Gate one artifact upload against the federation",
	Long: `Check whether an artifact matching the given repository and path already
exists anywhere in the configured federation, and print the gating decision.

The federation configuration is read fresh on every check, so configuration
changes take effect immediately.

Authentication:
	Fedgate uses one access token for every deployment in the federation,
	taken from the FEDGATE_TOKEN environment variable. An empty token means
	anonymous access.

Exit codes:
	0 = PROCEED (no duplicate found, or upload outside all configured scopes)
	1 = WARN    (duplicate found, configured action is "warn")
	2 = STOP    (duplicate found and blocked, or invalid upload identity)
	3 = fatal error (check did not run)

Examples:
	export FEDGATE_TOKEN="<your_token>"
	fedgate check --url https://jpd.example.com/artifactory \
	  --config conf-repo/gate/federation.json \
	  --repo libs-release --path immutable/x/app.jar

	# Development: federation config from a local file
	fedgate check --config-file federation.json --repo libs-release --path a/f.txt
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}

		log := buildLogger(cfg.Runtime.Verbose)
		defer func() { _ = log.Sync() }()

		g, err := buildGate(cfg, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Runtime.Timeout)
		defer cancel()

		resp := g.Check(ctx, scope.UploadEvent{RepoKey: checkRepo, Path: checkPath})
		printDecision(resp.Status, resp.Message)
		os.Exit(exitCodeForStatus(resp.Status))
	},
}

func printDecision(status policy.Status, message string) {
	var paint func(a ...interface{}) string
	switch status {
	case policy.StatusStop:
		paint = color.New(color.FgRed, color.Bold).SprintFunc()
	case policy.StatusWarn:
		paint = color.New(color.FgYellow, color.Bold).SprintFunc()
	default:
		paint = color.New(color.FgGreen, color.Bold).SprintFunc()
	}
	fmt.Printf("%s %s\n", paint(string(status)), message)
}

func exitCodeForStatus(status policy.Status) int {
	switch status {
	case policy.StatusProceed:
		return 0
	case policy.StatusWarn:
		return 1
	default:
		return 2
	}
}

func init() {
	checkCmd.Flags().StringVar(&checkRepo, flags.FlagRepo, "", "Repository key the artifact is being uploaded into (required)")
	checkCmd.Flags().StringVar(&checkPath, flags.FlagPath, "", "Artifact path within the repository, file name last (required)")
	_ = checkCmd.MarkFlagRequired(flags.FlagRepo)
	_ = checkCmd.MarkFlagRequired(flags.FlagPath)
	rootCmd.AddCommand(checkCmd)
}
