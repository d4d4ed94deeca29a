package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

// signatureCmd represents the signature command
var signatureCmd = &cobra.Command{
	Use:   "signature",
	Short: "Debug payload signatures",
	Long:  `Verify webhook payload signatures against a shared secret.`,
}

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [payload] [secret] [signature]",
	Short: "Verify a payload signature",
	Long: `Verify that a signature matches a payload under a secret. The
signature must use the sha256=<hex> format sent in X-Webhook-Signature.

Example:
  hookctl signature verify '{"id":42}' my-secret sha256=ab12...`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := makeRequest(http.MethodPost, "/v1/signatures/verify", map[string]string{
			"payload":   args[0],
			"secret":    args[1],
			"signature": args[2],
		})
		if err != nil {
			return fmt.Errorf("failed to verify signature: %w", err)
		}

		var out struct {
			Valid bool `json:"valid"`
		}
		if err := decodeResponse(resp, &out); err != nil {
			return fmt.Errorf("failed to verify signature: %w", err)
		}

		if outputJSON {
			printOutput(out)
		} else if out.Valid {
			fmt.Println("Signature is valid")
		} else {
			fmt.Println("Signature is NOT valid")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(signatureCmd)
	signatureCmd.AddCommand(verifyCmd)
}
