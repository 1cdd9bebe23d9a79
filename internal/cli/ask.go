package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	askJSON    bool
	askTimeout time.Duration
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and exit",
	Long: `Ask runs startup (ingesting the corpus if no index exists yet) and
answers a single question from the indexed documentation.

Example:
  qna ask "How do I use proxies in China?"
  qna ask --json "What is the residential proxy endpoint?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the raw JSON response")
	askCmd.Flags().DurationVar(&askTimeout, "timeout", 5*time.Minute, "overall timeout, including ingestion")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	cfg, log, err := mustConfig()
	if err != nil {
		return err
	}
	cfg.Warmup.Enabled = false

	a, err := buildApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	if err := a.service.Start(ctx); err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Asking %s (%s)...\n", a.llm.ProviderName(), cfg.LLM.Model)
	}

	resp, err := a.service.Chat(ctx, question)
	if err != nil {
		return err
	}

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, src := range resp.Sources {
			fmt.Printf("  - %s\n", src)
		}
	}
	return nil
}
