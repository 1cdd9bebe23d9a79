package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skraidantysagurkai/qna-agent-poc/internal/preprocess"
)

var ingestCorpus string

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Preprocess a corpus file and append it to the index",
	Long: `Ingest reads a corpus file (a JSON array of {"url", "content"} records),
cleans and titles every record, and adds the result to the index. Existing
entries are kept; records are not deduplicated.

Example:
  qna ingest
  qna ingest --corpus data/extra_pages.json`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestCorpus, "corpus", "", "corpus file (default from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, log, err := mustConfig()
	if err != nil {
		return err
	}
	if ingestCorpus != "" {
		cfg.CorpusPath = ingestCorpus
	}

	idx, err := buildIndex(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = idx.Close() }()

	units, err := preprocess.New(log).ProcessFile(cfg.ResolvedCorpusPath())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	before := idx.Count()
	if err := idx.Add(ctx, units); err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Printf("✓ Ingested %d units (%d chunks) into %s\n", len(units), idx.Count()-before, cfg.ResolvedIndexDir())
	return nil
}
