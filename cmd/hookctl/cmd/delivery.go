package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// deliveryCmd represents the delivery command
var deliveryCmd = &cobra.Command{
	Use:   "delivery",
	Short: "Inspect and manage deliveries",
	Long:  `List delivery attempts for an endpoint and requeue failed deliveries.`,
}

type attemptView struct {
	ID             string    `json:"id"`
	DeliveryID     string    `json:"delivery_id"`
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	AttemptNumber  int       `json:"attempt_number"`
	ResponseStatus int       `json:"response_status"`
	Status         string    `json:"status"`
	ErrorMessage   string    `json:"error_message"`
	DurationMS     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

type deliveriesView struct {
	EndpointID string `json:"endpoint_id"`
	Stats      struct {
		TotalAttempts int64      `json:"total_attempts"`
		SuccessCount  int64      `json:"success_count"`
		FailureCount  int64      `json:"failure_count"`
		LastAttemptAt *time.Time `json:"last_attempt_at"`
	} `json:"stats"`
	Attempts []attemptView `json:"attempts"`
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list [endpoint-id]",
	Short: "List delivery attempts for an endpoint",
	Long: `List recorded delivery attempts for an endpoint, newest first.

Example:
  hookctl delivery list 2b1c9a0e-4f3d-4f3a-9a4e-8f0d2ab4c111 --limit 20`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		endpointID := args[0]
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		path := fmt.Sprintf("/v1/endpoints/%s/deliveries?limit=%d&offset=%d", endpointID, limit, offset)
		resp, err := makeRequest(http.MethodGet, path, nil)
		if err != nil {
			return fmt.Errorf("failed to list deliveries: %w", err)
		}

		var out deliveriesView
		if err := decodeResponse(resp, &out); err != nil {
			return fmt.Errorf("failed to list deliveries: %w", err)
		}

		if outputJSON {
			printOutput(out)
			return nil
		}

		fmt.Printf("Endpoint %s: %d attempts, %d delivered, %d failed\n",
			out.EndpointID, out.Stats.TotalAttempts, out.Stats.SuccessCount, out.Stats.FailureCount)
		for _, a := range out.Attempts {
			line := fmt.Sprintf("  #%d %-10s %s event=%s http=%d %dms",
				a.AttemptNumber, a.Status, a.CreatedAt.Format(time.RFC3339), a.EventID, a.ResponseStatus, a.DurationMS)
			if a.ErrorMessage != "" {
				line += " error=" + a.ErrorMessage
			}
			fmt.Println(line)
		}

		return nil
	},
}

// retryCmd represents the retry command
var retryCmd = &cobra.Command{
	Use:   "retry [delivery-id]",
	Short: "Requeue a failed delivery",
	Long: `Requeue a delivery for another attempt. Delivered chains cannot be
requeued; failed and retrying chains can.

Example:
  hookctl delivery retry 7f6a1c2d-0b9e-4d3c-8a4f-1e2d3c4b5a69`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deliveryID := args[0]

		resp, err := makeRequest(http.MethodPost, "/v1/deliveries/"+deliveryID+"/retry", nil)
		if err != nil {
			return fmt.Errorf("failed to requeue delivery: %w", err)
		}

		var out struct {
			Requeued bool `json:"requeued"`
		}
		if err := decodeResponse(resp, &out); err != nil {
			return fmt.Errorf("failed to requeue delivery: %w", err)
		}

		if outputJSON {
			printOutput(out)
		} else {
			fmt.Printf("Requeued delivery: %s\n", deliveryID)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(deliveryCmd)
	deliveryCmd.AddCommand(listCmd)
	deliveryCmd.AddCommand(retryCmd)

	// Flags for list
	listCmd.Flags().Int("limit", 50, "max attempts to return")
	listCmd.Flags().Int("offset", 0, "attempts to skip")
}
