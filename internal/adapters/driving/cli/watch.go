package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pulseiq/pulseiq-rag/internal/adapters/driving/inbox"
)

var watchSettle time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest documents dropped into an inbox directory",
	Long: `Watches an inbox directory and ingests every file placed in it:

  <dir>/users/<user_id>/<file>        personal medical record
  <dir>/global/<disease_name>/<file>  shared reference document

Ingested files move to <dir>/.processed and rejected ones to <dir>/.failed.
Files already in the inbox are ingested on start.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", inbox.DefaultSettle, "quiet period before a written file is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	w, err := inbox.New(args[0], svc.Ingestion, inbox.WithSettle(watchSettle))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if svc.Warm != nil {
		if err := svc.Warm(ctx); err != nil {
			return fmt.Errorf("warming index: %w", err)
		}
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", w.Root())
	return w.Run(ctx)
}
