package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history [user]",
	Short: "List a user's chat history",
	Long:  `Lists the user's most recent chat exchanges, newest first.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", driving.DefaultHistoryLimit, "maximum number of exchanges")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output history as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	entries, err := svc.History.History(cmd.Context(), args[0], historyLimit)
	if err != nil {
		return fmt.Errorf("chat history failed: %w", err)
	}

	if historyJSON {
		chats := make([]map[string]any, len(entries))
		for i, e := range entries {
			chats[i] = map[string]any{
				"id":                e.ID,
				"question":          e.Question,
				"response":          e.Response,
				"personalized_mode": e.PersonalizedMode,
				"created_at":        e.CreatedAt.UTC().Format(time.RFC3339Nano),
			}
		}
		return printJSON(cmd, map[string]any{
			"user_id":     args[0],
			"total_chats": len(chats),
			"chats":       chats,
		})
	}

	if len(entries) == 0 {
		cmd.Println("No chat history found.")
		return nil
	}

	for i, e := range entries {
		cmd.Printf("[%d] %s\n", i+1, e.CreatedAt.Local().Format("2006-01-02 15:04"))
		cmd.Printf("    Q: %s\n", e.Question)
		cmd.Printf("    A: %s\n", truncate(e.Response, 200))
	}
	return nil
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
