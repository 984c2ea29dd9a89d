package validation

import (
	"fmt"

	"github.com/cloudx-io/uniformauction/auctionapi"
)

// ReceiptValidationResult holds the outcome of each receipt check.
type ReceiptValidationResult struct {
	SignatureValid    bool
	ConservationValid bool
	AllocationValid   bool
	RewardValid       bool
	BidderValid       bool
	ValidationDetails []string

	Receipt *auctionapi.SettlementReceipt `json:",omitempty"`
}

// IsValid returns true if all receipt checks passed
func (r *ReceiptValidationResult) IsValid() bool {
	return r.SignatureValid && r.ConservationValid && r.AllocationValid && r.RewardValid && r.BidderValid
}

func (r *ReceiptValidationResult) addDetail(format string, args ...any) {
	r.ValidationDetails = append(r.ValidationDetails, fmt.Sprintf(format, args...))
}
