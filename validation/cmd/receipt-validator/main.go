package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloudx-io/uniformauction/auctionapi"
	"github.com/cloudx-io/uniformauction/core"
	"github.com/cloudx-io/uniformauction/validation"
)

// exitError carries a process exit code out of cobra's RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if ee, ok := err.(*exitError); ok {
			if ee.err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", ee.err)
			}
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

func newRootCommand() *cobra.Command {
	var (
		receiptInput   string
		publicKeyInput string
		bidder         string
		isWinner       bool
		units          int64
		clearingPrice  string
		outputFormat   string
	)

	cmd := &cobra.Command{
		Use:   "receipt-validator --receipt <gzip-b64|file> --public-key <pem|file> [options]",
		Short: "Validate a signed auction settlement receipt",
		Long: `Validates a settlement receipt issued by auctiond.

Checks the ES256 signature, recomputes the uniform-price allocation from the
revealed bids, and verifies every wei held by the auction is paid out once.

Exit Codes:
  0 - Validation passed
  1 - Validation failed
  2 - Invalid input or runtime error`,
		Example: `  # Check a receipt and that bidder won 2 units at 0.2 ETH
  receipt-validator \
    --receipt receipt.txt \
    --public-key receipt_signing.pub \
    --bidder 0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC \
    --winner --units 2 --clearing-price 0.2`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			receiptGzip, err := normalizeReceipt(strings.TrimSpace(readInput(receiptInput)))
			if err != nil {
				return &exitError{code: 2, err: err}
			}
			input := &validation.ReceiptValidationInput{
				ReceiptCOSEGzip: receiptGzip,
				PublicKeyPEM:    readInput(publicKeyInput),
				Bidder:          bidder,
				IsWinner:        isWinner,
			}
			if units >= 0 {
				u := uint64(units)
				input.ExpectedUnits = &u
			}
			if clearingPrice != "" {
				wei, err := core.ParseEther(clearingPrice)
				if err != nil {
					return &exitError{code: 2, err: fmt.Errorf("parse --clearing-price: %w", err)}
				}
				input.ExpectedClearingPrice = wei.Dec()
			}

			result, err := validation.ValidateReceipt(input)
			if err != nil {
				return &exitError{code: 2, err: fmt.Errorf("validation error: %w", err)}
			}

			if outputFormat == "json" {
				if err := outputJSON(result); err != nil {
					return &exitError{code: 2, err: err}
				}
			} else {
				outputText(result)
			}

			if !result.IsValid() {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&receiptInput, "receipt", "", "Receipt as gzip+base64url or plain base64 (file path or inline)")
	flags.StringVar(&publicKeyInput, "public-key", "", "Receipt signing public key PEM (file path or inline)")
	flags.StringVar(&bidder, "bidder", "", "Bidder address to check")
	flags.BoolVar(&isWinner, "winner", false, "Expect --bidder to have won units")
	flags.Int64Var(&units, "units", -1, "Expected units won by --bidder (-1 skips)")
	flags.StringVar(&clearingPrice, "clearing-price", "", "Expected clearing price in ETH")
	flags.StringVar(&outputFormat, "format", "text", "Output format: text or json")
	_ = cmd.MarkFlagRequired("receipt")
	_ = cmd.MarkFlagRequired("public-key")

	return cmd
}

func readInput(input string) string {
	// Try reading as file first
	if data, err := os.ReadFile(input); err == nil {
		return string(data)
	}
	return input
}

// normalizeReceipt accepts the compressed form bidders are sent, the plain
// base64 form of a finalize response, and URL-safe base64.
func normalizeReceipt(s string) (auctionapi.ReceiptCOSEGzip, error) {
	// base64url of the gzip magic bytes 1f 8b 08
	if strings.HasPrefix(s, "H4sI") {
		return auctionapi.ReceiptCOSEGzip(s), nil
	}
	if strings.ContainsAny(s, "-_") || len(s)%4 != 0 {
		raw, err := auctionapi.ReceiptCOSEURLBase64(s).Decode()
		if err != nil {
			return "", err
		}
		return raw.CompressGzip()
	}
	return auctionapi.ReceiptCOSEBase64(s).CompressGzip()
}

func outputText(result *validation.ReceiptValidationResult) {
	fmt.Println("Auction Settlement Receipt Validator")
	fmt.Println("====================================")
	fmt.Println()

	if r := result.Receipt; r != nil {
		fmt.Println("Receipt:")
		fmt.Printf("  Auction:                 %s\n", r.AuctionID)
		fmt.Printf("  Units Sold:              %d of %d\n", r.TotalUnitsSold, r.Config.K)
		fmt.Printf("  Clearing Price (wei):    %s\n", r.ClearingPrice)
		fmt.Printf("  Finalizer:               %s\n", r.Finalizer)
		fmt.Println()
	}

	fmt.Println("Summary:")
	fmt.Printf("  Signature Valid:         %v\n", result.SignatureValid)
	fmt.Printf("  Conservation Valid:      %v\n", result.ConservationValid)
	fmt.Printf("  Allocation Valid:        %v\n", result.AllocationValid)
	fmt.Printf("  Reward Valid:            %v\n", result.RewardValid)
	fmt.Printf("  Bidder Valid:            %v\n", result.BidderValid)

	fmt.Println()
	fmt.Println("Details:")
	for _, detail := range result.ValidationDetails {
		fmt.Printf("  - %s\n", detail)
	}

	fmt.Println()
	fmt.Println("====================================")
	if result.IsValid() {
		fmt.Println("VALIDATION: ✓ PASSED")
		fmt.Println("Exit Code: 0")
	} else {
		fmt.Println("VALIDATION: ✗ FAILED")
		fmt.Println("Exit Code: 1")
	}
}

func outputJSON(result *validation.ReceiptValidationResult) error {
	output := map[string]any{
		"valid":              result.IsValid(),
		"signature_valid":    result.SignatureValid,
		"conservation_valid": result.ConservationValid,
		"allocation_valid":   result.AllocationValid,
		"reward_valid":       result.RewardValid,
		"bidder_valid":       result.BidderValid,
		"details":            result.ValidationDetails,
		"receipt":            result.Receipt,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
