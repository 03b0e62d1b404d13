package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and provider connectivity",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices(cmd)
	if err != nil {
		cmd.Printf("[FAIL] configuration: %v\n", err)
		return err
	}
	cmd.Println("[ OK ] configuration")

	failed := 0
	for _, check := range svc.Checks {
		if err := check.Run(cmd.Context()); err != nil {
			failed++
			cmd.Printf("[FAIL] %s: %v\n", check.Name, err)
			continue
		}
		cmd.Printf("[ OK ] %s\n", check.Name)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(svc.Checks))
	}
	return nil
}
