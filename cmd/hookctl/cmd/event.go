package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

// eventCmd represents the event command
var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Manage webhook events",
	Long:  `Emit webhook events into the delivery pipeline.`,
}

// emitCmd represents the emit command
var emitCmd = &cobra.Command{
	Use:   "emit [tenant-id] [event-type] [data-json]",
	Short: "Emit a webhook event",
	Long: `Emit a webhook event with a JSON data payload.

Example:
  hookctl event emit tn_123 client.created '{"id":"cl_789","name":"Acme"}'`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		tenantID := args[0]
		eventType := args[1]
		dataJSON := args[2]

		sync, _ := cmd.Flags().GetBool("sync")
		metadataJSON, _ := cmd.Flags().GetString("metadata")

		var data map[string]any
		if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
			return fmt.Errorf("invalid data JSON: %w", err)
		}
		var metadata map[string]any
		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
				return fmt.Errorf("invalid metadata JSON: %w", err)
			}
		}

		async := !sync
		resp, err := makeRequest(http.MethodPost, "/v1/events", map[string]any{
			"type":      eventType,
			"tenant_id": tenantID,
			"data":      data,
			"metadata":  metadata,
			"async":     &async,
		})
		if err != nil {
			return fmt.Errorf("failed to emit event: %w", err)
		}

		var out struct {
			EventID string `json:"event_id"`
		}
		if err := decodeResponse(resp, &out); err != nil {
			return fmt.Errorf("failed to emit event: %w", err)
		}

		if outputJSON {
			printOutput(out)
		} else {
			fmt.Printf("Emitted event: %s\n", out.EventID)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventCmd)
	eventCmd.AddCommand(emitCmd)

	// Flags for emit
	emitCmd.Flags().Bool("sync", false, "deliver synchronously instead of enqueueing")
	emitCmd.Flags().String("metadata", "", "metadata JSON attached to the event")
}
