package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the vector index from stored chunks",
	Long: `Drops the vector index and reloads every stored chunk into it,
re-embedding chunks whose stored embedding is missing or was produced by
a model of a different size. Run it after changing the embedding model or
after an ingestion whose store commit failed.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	n, err := svc.Index.Rebuild(cmd.Context())
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	cmd.Printf("Reindexed %d chunks\n", n)
	return nil
}
