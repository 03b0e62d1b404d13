package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

var (
	askUser  string
	askWatch string
	askSave  bool
	askJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a medical question",
	Long: `Answers a question from the user's medical records and the shared
reference documents. Live wearable readings can be passed as JSON with
--watch, using the keys heartRate, steps, calories, sleep, bloodPressure,
spO2 and temperature.

Example:
  pulseiq ask --user alice --watch '{"heartRate": 96}' "Why do I feel dizzy?"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askUser, "user", "u", "", "user asking the question (required)")
	askCmd.Flags().StringVarP(&askWatch, "watch", "w", "", "wearable readings as JSON")
	askCmd.Flags().BoolVar(&askSave, "save", false, "append the exchange to the chat log")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askUser == "" {
		return errors.New("--user is required")
	}

	req := domain.ChatRequest{UserID: askUser, Question: args[0]}
	if askWatch != "" {
		var t domain.Telemetry
		if err := json.Unmarshal([]byte(askWatch), &t); err != nil {
			return fmt.Errorf("parsing --watch: %w", err)
		}
		req.Telemetry = &t
	}

	svc, err := requireServices(cmd)
	if err != nil {
		return err
	}

	answer, err := svc.Chat.Chat(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	if askSave {
		_, err := svc.History.SaveChat(cmd.Context(), domain.ChatEntry{
			UserID:           answer.UserID,
			Question:         req.Question,
			Response:         answer.Response,
			PersonalizedMode: answer.Personalized,
		})
		if err != nil {
			return fmt.Errorf("saving chat: %w", err)
		}
	}

	if askJSON {
		return printJSON(cmd, map[string]any{
			"user_id":           answer.UserID,
			"personalized_mode": answer.Personalized,
			"final_response":    answer.Response,
		})
	}

	if answer.Personalized {
		cmd.Println("(personalized with your medical records)")
		cmd.Println()
	}
	cmd.Println(answer.Response)
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
