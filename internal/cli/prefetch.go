package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fedgate/internal/federation"
	"fedgate/internal/flags"
	"fedgate/internal/jfrog"
	"fedgate/internal/prefetch"
)

var (
	prefetchRepo     string
	prefetchPath     string
	prefetchDest     string
	prefetchInterval time.Duration
)

var prefetchCmd = &cobra.Command{
	Use:   "prefetch",
	Short: "Pull federation artifacts into a local directory ahead of need",
	Long: `Walk every federation target and download artifacts under the given
repository and path prefix into a local directory, skipping files that are
already present. Files are laid out as DEST/<repo>/<path>.

With --interval the prefetch repeats until interrupted, which makes it
suitable for running as a scheduled warm-cache job.

Examples:
	fedgate prefetch --repo libs-release --path immutable --dest /var/cache/fedgate
	fedgate prefetch --repo libs-release --dest ./cache --interval 15m
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}

		log := buildLogger(cfg.Runtime.Verbose)
		defer func() { _ = log.Sync() }()

		source, err := buildConfigSource(cfg, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}

		clients := func(target federation.Target) (prefetch.Client, error) {
			return jfrog.NewClient(target.URL, cfg.Platform.Token,
				jfrog.WithVerbose(cfg.Runtime.Verbose, nil),
				jfrog.WithTimeout(cfg.Runtime.Timeout))
		}
		p, err := prefetch.New(clients, prefetchDest, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}

		runOnce := func() error {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Runtime.Timeout)
			defer cancel()
			// Re-read the configuration each round so target changes are
			// picked up by long-running jobs.
			fedCfg, diags := federation.Parse(source.Text(ctx))
			for _, d := range diags {
				log.Warn("federation configuration diagnostic",
					zap.String("path", d.Path), zap.String("reason", d.Reason))
			}
			n, err := p.Run(ctx, fedCfg, prefetchRepo, prefetchPath)
			if err != nil {
				return err
			}
			fmt.Printf("prefetched %d artifacts into %s\n", n, prefetchDest)
			return nil
		}

		if err := runOnce(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}
		if prefetchInterval <= 0 {
			return
		}
		ticker := time.NewTicker(prefetchInterval)
		defer ticker.Stop()
		for range ticker.C {
			if err := runOnce(); err != nil {
				log.Error("scheduled prefetch failed", zap.Error(err))
			}
		}
	},
}

func init() {
	prefetchCmd.Flags().StringVar(&prefetchRepo, flags.FlagRepo, "", "Repository key to prefetch (required)")
	prefetchCmd.Flags().StringVar(&prefetchPath, flags.FlagPath, "", "Only prefetch artifacts under this path prefix")
	prefetchCmd.Flags().StringVar(&prefetchDest, flags.FlagDest, "", "Local destination directory (required)")
	prefetchCmd.Flags().DurationVar(&prefetchInterval, flags.FlagInterval, 0, "Repeat the prefetch on this interval (0 runs once)")
	_ = prefetchCmd.MarkFlagRequired(flags.FlagRepo)
	_ = prefetchCmd.MarkFlagRequired(flags.FlagDest)
	rootCmd.AddCommand(prefetchCmd)
}
