package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"
)

// ForfeitedDeposit is the deposit of a bidder who committed but never revealed.
type ForfeitedDeposit struct {
	Bidder  common.Address
	Deposit uint256.Int
}

// SettlementInput is a snapshot of everything finalize needs.
type SettlementInput struct {
	Config     *Config
	Caller     common.Address
	Revealed   []RevealedBid      // in reveal order
	Unrevealed []ForfeitedDeposit // in commit order
}

// BidderSettlement is the outcome for one revealed bidder.
type BidderSettlement struct {
	Bidder   common.Address
	Qty      uint64
	Price    uint256.Int
	UnitsWon uint64
	Cost     uint256.Int
	Refund   uint256.Int
}

// Settlement is the full payout plan of a finalize call. Applying Payouts
// drains exactly Held from the auction account.
type Settlement struct {
	Allocation    *AllocationResult
	Bidders       []BidderSettlement
	Held          uint256.Int // escrows plus forfeited deposits
	SlashedPool   uint256.Int
	Forfeited     []ForfeitedDeposit
	TotalProceeds uint256.Int
	Finalizer     common.Address
	Reward        uint256.Int
	SellerPayout  uint256.Int
	Payouts       []Payout
}

// Settle computes allocation and payouts. It is pure: the same input always
// yields the same plan, and nothing is transferred until the caller applies it.
func Settle(in SettlementInput) (*Settlement, error) {
	cfg := in.Config
	alloc := Allocate(in.Revealed, cfg.K, &cfg.ReservePrice)

	s := &Settlement{
		Allocation: alloc,
		Bidders:    make([]BidderSettlement, 0, len(in.Revealed)),
		Finalizer:  in.Caller,
		Payouts:    make([]Payout, 0, len(in.Revealed)+2),
	}

	var sales uint256.Int
	for _, bid := range in.Revealed {
		escrow, ok := bid.Escrow()
		if !ok {
			return nil, errors.Wrapf(ErrPayoutFailed, "escrow overflow for %s", bid.Bidder.Hex())
		}
		if err := addChecked(&s.Held, escrow); err != nil {
			return nil, err
		}

		units := alloc.UnitsWon[bid.Bidder]
		cost := new(uint256.Int).Mul(uint256.NewInt(units), &alloc.ClearingPrice)
		refund, underflow := new(uint256.Int).SubOverflow(escrow, cost)
		if underflow {
			return nil, errors.Wrapf(ErrPayoutFailed, "cost exceeds escrow for %s", bid.Bidder.Hex())
		}
		if err := addChecked(&sales, cost); err != nil {
			return nil, err
		}

		s.Bidders = append(s.Bidders, BidderSettlement{
			Bidder:   bid.Bidder,
			Qty:      bid.Qty,
			Price:    bid.Price,
			UnitsWon: units,
			Cost:     *cost,
			Refund:   *refund,
		})
		if !refund.IsZero() {
			s.Payouts = append(s.Payouts, Payout{To: bid.Bidder, Amount: *refund, Reason: PayoutEscrowRefund})
		}
	}

	s.Forfeited = append([]ForfeitedDeposit(nil), in.Unrevealed...)
	for _, f := range in.Unrevealed {
		if err := addChecked(&s.SlashedPool, &f.Deposit); err != nil {
			return nil, err
		}
	}
	if err := addChecked(&s.Held, &s.SlashedPool); err != nil {
		return nil, err
	}

	s.TotalProceeds.Add(&sales, &s.SlashedPool)
	if !cfg.IsSeller(in.Caller) {
		s.Reward = *uint256MinOf(&cfg.FinalizeReward, &s.TotalProceeds)
	}
	s.SellerPayout.Sub(&s.TotalProceeds, &s.Reward)

	if !s.Reward.IsZero() {
		s.Payouts = append(s.Payouts, Payout{To: in.Caller, Amount: s.Reward, Reason: PayoutFinalizer})
	}
	if !s.SellerPayout.IsZero() {
		s.Payouts = append(s.Payouts, Payout{To: cfg.Seller, Amount: s.SellerPayout, Reason: PayoutSellerProceed})
	}

	return s, nil
}

// TotalPaidOut sums every payout in the plan.
func (s *Settlement) TotalPaidOut() *uint256.Int {
	total := new(uint256.Int)
	for i := range s.Payouts {
		total.Add(total, &s.Payouts[i].Amount)
	}
	return total
}

func addChecked(acc *uint256.Int, v *uint256.Int) error {
	if _, overflow := acc.AddOverflow(acc, v); overflow {
		return errors.Wrap(ErrPayoutFailed, "settlement sum overflow")
	}
	return nil
}

func uint256MinOf(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int).Set(b)
}
