package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pulseiq/pulseiq-rag/internal/adapters/driving/tui"
	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

var (
	chatUser   string
	chatWatch  string
	chatNoSave bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Opens a terminal chat with the medical assistant. Every exchange is
appended to the user's chat log unless --no-save is given.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "", "user to chat as (required)")
	chatCmd.Flags().StringVarP(&chatWatch, "watch", "w", "", "wearable readings as JSON, attached to every question")
	chatCmd.Flags().BoolVar(&chatNoSave, "no-save", false, "do not record exchanges in the chat log")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if chatUser == "" {
		return errors.New("--user is required")
	}

	session := tui.Session{UserID: chatUser}
	if chatWatch != "" {
		var t domain.Telemetry
		if err := json.Unmarshal([]byte(chatWatch), &t); err != nil {
			return fmt.Errorf("parsing --watch: %w", err)
		}
		session.Telemetry = &t
	}

	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	ports := &tui.Ports{Chat: svc.Chat}
	if !chatNoSave {
		ports.History = svc.History
	}

	app, err := tui.NewApp(ports, session)
	if err != nil {
		return err
	}
	return app.WithContext(cmd.Context()).Run()
}
