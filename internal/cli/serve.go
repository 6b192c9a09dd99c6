package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fedgate/internal/flags"
	"fedgate/internal/server"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload gate over HTTP",
	Long: `Run fedgate as an HTTP service so platform upload hooks and CI jobs can
request gating decisions.

Endpoints:
	POST /api/v1/gate  body {"repo_key": "...", "path": "..."}
	                   responds with {"status", "message", "identity", "headers"}
	GET  /healthz      liveness probe

The federation configuration is re-read on every request, so configuration
changes take effect without a restart.

Examples:
	fedgate serve --listen :8045
	curl -s -X POST localhost:8045/api/v1/gate \
	  -d '{"repo_key":"libs-release","path":"immutable/x/app.jar"}'
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

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(g, cfg.Runtime.Timeout, log)
		if err := srv.ListenAndServe(ctx, serveListen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, flags.FlagListen, ":8045", "Address to listen on")
	rootCmd.AddCommand(serveCmd)
}
