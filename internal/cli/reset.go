package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetYes bool

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the persisted index",
	Long: `Reset removes every stored chunk and the index directory. The next
serve, ask or chat run ingests the corpus again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := mustConfig()
		if err != nil {
			return err
		}

		if !resetYes {
			return fmt.Errorf("refusing to delete %s without --yes", cfg.ResolvedIndexDir())
		}

		idx, err := buildIndex(cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = idx.Close() }()

		if err := idx.Reset(); err != nil {
			return err
		}

		fmt.Printf("✓ Removed index at %s\n", cfg.ResolvedIndexDir())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "confirm deletion")
}
