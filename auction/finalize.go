package auction

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/cloudx-io/uniformauction/bank"
	"github.com/cloudx-io/uniformauction/core"
)

// Result is the outcome of a successful finalize.
type Result struct {
	ClearingPrice  uint256.Int
	TotalUnitsSold uint64
	Sold           bool
	SellerPayout   uint256.Int
	Reward         uint256.Int
	Finalizer      common.Address
	SettledAt      time.Time

	Settlement *core.Settlement
}

// Finalize allocates the k units among revealed bids and pays everyone out
// in one batch. It succeeds at most once per auction.
func (a *Auction) Finalize(ctx context.Context, call Call) (*Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.settled {
		return nil, core.ErrAlreadySettled
	}
	_, committed := a.commits[call.From]
	if err := a.cfg.FinalizeAuthorization(call.At, call.From, committed).Err(); err != nil {
		return nil, err
	}

	plan, err := core.Settle(a.settlementInput(call.From))
	if err != nil {
		return nil, err
	}

	transfers := make([]bank.Transfer, len(plan.Payouts))
	for i, p := range plan.Payouts {
		transfers[i] = bank.Transfer{From: a.account, To: p.To, Amount: p.Amount}
	}
	if err := a.bank.Apply(ctx, transfers); err != nil {
		a.logger.Error("Payout batch rejected", zap.Error(err))
		return nil, &payoutError{cause: errors.Wrap(err, "apply payouts")}
	}

	alloc := plan.Allocation
	res := &Result{
		ClearingPrice:  alloc.ClearingPrice,
		TotalUnitsSold: alloc.TotalUnitsSold,
		Sold:           alloc.Sold,
		SellerPayout:   plan.SellerPayout,
		Reward:         plan.Reward,
		Finalizer:      call.From,
		SettledAt:      call.At,
		Settlement:     plan,
	}
	a.settled = true
	a.result = res

	for _, w := range alloc.Winners {
		a.emit(Event{Kind: EventWinner, At: call.At, Bidder: w.Bidder, Units: w.UnitsWon, Price: alloc.ClearingPrice})
	}
	a.emit(Event{Kind: EventFinalizedBy, At: call.At, Bidder: call.From, Amount: plan.Reward})
	a.emit(Event{
		Kind:   EventSettled,
		At:     call.At,
		Units:  alloc.TotalUnitsSold,
		Price:  alloc.ClearingPrice,
		Amount: plan.SellerPayout,
		Sold:   alloc.Sold,
	})

	a.logger.Info("Auction settled",
		zap.Stringer("finalizer", call.From),
		zap.Bool("sold", alloc.Sold),
		zap.String("clearing_price", alloc.ClearingPrice.Dec()),
		zap.Uint64("units_sold", alloc.TotalUnitsSold),
		zap.String("seller_payout", plan.SellerPayout.Dec()),
		zap.String("reward", plan.Reward.Dec()),
		zap.String("slashed", plan.SlashedPool.Dec()),
	)
	return res, nil
}

// settlementInput snapshots the reveal ledger and the forfeited deposits.
// Must be called with a.mu held.
func (a *Auction) settlementInput(caller common.Address) core.SettlementInput {
	revealed := make([]core.RevealedBid, len(a.reveals))
	copy(revealed, a.reveals)

	var forfeited []core.ForfeitedDeposit
	for _, bidder := range a.commitOrder {
		c := a.commits[bidder]
		if c.Revealed {
			continue
		}
		forfeited = append(forfeited, core.ForfeitedDeposit{Bidder: bidder, Deposit: c.Deposit})
	}

	return core.SettlementInput{
		Config:     &a.cfg,
		Caller:     caller,
		Revealed:   revealed,
		Unrevealed: forfeited,
	}
}

// payoutError is ErrPayoutFailed with the ledger's rejection as its cause.
type payoutError struct {
	cause error
}

func (e *payoutError) Error() string { return "payout failed: " + e.cause.Error() }
func (e *payoutError) Unwrap() error { return e.cause }

func (e *payoutError) Is(target error) bool { return target == error(core.ErrPayoutFailed) }

func (e *payoutError) As(target any) bool {
	if p, ok := target.(**core.Error); ok {
		*p = core.ErrPayoutFailed
		return true
	}
	return false
}
