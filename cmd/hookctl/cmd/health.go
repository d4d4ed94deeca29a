package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the hookflow worker",
	Long:  `Check the health status of the hookflow worker, including its database connection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := makeRequest("GET", "/healthz", nil)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}

		var out struct {
			OK       bool   `json:"ok"`
			Message  string `json:"message"`
			Database bool   `json:"database"`
		}
		if err := decodeResponse(resp, &out); err != nil {
			fmt.Printf("✗ Worker is unhealthy: %v\n", err)
			return nil
		}

		if outputJSON {
			printOutput(out)
			return nil
		}
		if out.OK {
			fmt.Println("✓ Worker is healthy")
		} else {
			fmt.Printf("✗ Worker is unhealthy: %s\n", out.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
