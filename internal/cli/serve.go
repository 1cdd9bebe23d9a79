package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/api"
)

var (
	serveAddr     string
	serveNoWarmup bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Ingest the corpus if needed and serve the HTTP API",
	Long: `Serve starts the retrieval service:
- Ingests the corpus into the index when no index exists yet
- Issues one background warm-up question
- Serves GET /health/ and POST /chat/

Example:
  qna serve
  qna serve --addr :9000 --build prod`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().BoolVar(&serveNoWarmup, "no-warmup", false, "skip the startup warm-up question")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := mustConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveNoWarmup {
		cfg.Warmup.Enabled = false
	}

	a, err := buildApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.service.Start(ctx); err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	server := api.New(a.service, cfg.APIVersion, log)
	return server.ListenAndServe(ctx, cfg.Server)
}
