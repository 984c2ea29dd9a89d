package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Commitment is a bidder's sealed bid as recorded during the commit window.
type Commitment struct {
	Hash     common.Hash
	Deposit  uint256.Int
	Revealed bool
}

// RevealedBid is a bid opened during the reveal window.
type RevealedBid struct {
	Bidder   common.Address
	Qty      uint64
	Price    uint256.Int
	RandPart common.Hash // accepted at reveal, never checked against the commitment
	Seq      int         // reveal order, breaks price ties
}

// Escrow returns price*qty, or false on overflow.
func (b *RevealedBid) Escrow() (*uint256.Int, bool) {
	return EscrowFor(b.Qty, &b.Price)
}

// EscrowFor returns price*qty, or false when the product overflows 256 bits.
func EscrowFor(qty uint64, price *uint256.Int) (*uint256.Int, bool) {
	v, overflow := new(uint256.Int).MulOverflow(price, uint256.NewInt(qty))
	return v, !overflow
}

// Allocation is the units assigned to one bidder at finalize.
type Allocation struct {
	Bidder   common.Address
	UnitsWon uint64
}

// AllocationResult is the outcome of rationing k units among revealed bids.
type AllocationResult struct {
	// ClearingPrice is the price of the lowest bid that received units.
	// Zero when Sold is false.
	ClearingPrice  uint256.Int
	TotalUnitsSold uint64
	Sold           bool

	// Winners lists bidders with nonzero allocations in allocation order.
	Winners []Allocation

	// UnitsWon has an entry for every revealed bidder, including losers.
	UnitsWon map[common.Address]uint64
}

// Payout is a single transfer out of the auction account.
type Payout struct {
	To     common.Address
	Amount uint256.Int
	Reason PayoutReason
}

// PayoutReason labels why funds leave the auction.
type PayoutReason string

const (
	PayoutDepositRefund PayoutReason = "deposit_refund"
	PayoutEscrowRefund  PayoutReason = "escrow_refund"
	PayoutSellerProceed PayoutReason = "seller_proceeds"
	PayoutFinalizer     PayoutReason = "finalizer_reward"
)
