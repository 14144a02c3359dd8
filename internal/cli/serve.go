package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/claimscope/claimscope/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve exposes the analysis pipeline, claim verification, collections,
and chat over an HTTP API. Long-running operations stream progress as
server-sent events.

Example:
  claimscope serve
  claimscope serve --addr :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if serveAddr != "" {
		a.cfg.Server.Addr = serveAddr
	}

	srv := server.New(
		a.cfg.Server, a.log,
		a.orchestrator, a.verifier,
		a.analyses, a.reviews, a.verifs,
		a.vectors, a.chat,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return srv.Run(ctx)
}
