package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/logging"
	"github.com/skraidantysagurkai/qna-agent-poc/internal/tui"
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive terminal chat",
	Long: `Chat runs startup and opens a full-screen terminal session for asking
questions one after another. Logs go to qna-chat.log in the data directory
so they do not disturb the screen.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, _, err := mustConfig()
	if err != nil {
		return err
	}

	logOut := io.Discard
	if err := os.MkdirAll(cfg.DataDir, 0o755); err == nil {
		if f, err := os.OpenFile(filepath.Join(cfg.DataDir, "qna-chat.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			defer func() { _ = f.Close() }()
			logOut = f
		}
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format, logOut)

	a, err := buildApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(os.Stderr, "Starting up...")
	if err := a.service.Start(ctx); err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	title := fmt.Sprintf("QnA chat (%s, %d chunks indexed)", a.llm.ProviderName(), a.index.Count())
	return tui.Run(ctx, a.service.Chat, title)
}
