package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var twinJSON bool

var twinCmd = &cobra.Command{
	Use:   "twin [user]",
	Short: "Show a user's digital twin risk assessment",
	Long: `Summarises the user's recent chat history into a risk level
(None, Low, Moderate, High, Critical) and a short summary.`,
	Args: cobra.ExactArgs(1),
	RunE: runTwin,
}

func init() {
	twinCmd.Flags().BoolVar(&twinJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(twinCmd)
}

func runTwin(cmd *cobra.Command, args []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	report, err := svc.Twin.Report(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("digital twin failed: %w", err)
	}

	var lastChat any
	if report.LastChat != nil {
		lastChat = report.LastChat.UTC().Format(time.RFC3339)
	}

	if twinJSON {
		return printJSON(cmd, map[string]any{
			"user_id":     report.UserID,
			"risk_level":  report.Assessment.Level.String(),
			"summary":     report.Assessment.Summary,
			"show_alert":  report.Assessment.ShowAlert,
			"total_chats": report.TotalChats,
			"last_chat":   lastChat,
		})
	}

	cmd.Printf("User:        %s\n", report.UserID)
	cmd.Printf("Risk level:  %s\n", report.Assessment.Level)
	cmd.Printf("Summary:     %s\n", report.Assessment.Summary)
	cmd.Printf("Alert:       %t\n", report.Assessment.ShowAlert)
	cmd.Printf("Total chats: %d\n", report.TotalChats)
	if lastChat != nil {
		cmd.Printf("Last chat:   %s\n", lastChat)
	}
	return nil
}
