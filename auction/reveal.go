package auction

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/cloudx-io/uniformauction/bank"
	"github.com/cloudx-io/uniformauction/core"
)

// RevealBid opens call.From's sealed bid. The call value must equal
// price*qty exactly and is held as escrow until finalize. On success the
// commit deposit goes straight back to the bidder, whatever the later
// outcome. randPart is recorded as given and is not checked against
// anything.
func (a *Auction) RevealBid(ctx context.Context, call Call, qty uint64, price *uint256.Int, salt, randPart common.Hash) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.cfg.IsRevealOpen(call.At) {
		return core.ErrRevealClosed
	}
	c, ok := a.commits[call.From]
	if !ok {
		return core.ErrNoCommitment
	}
	if c.Revealed {
		return core.ErrAlreadyRevealed
	}
	if core.CommitHash(qty, price, salt, call.From) != c.Hash {
		return core.ErrCommitMismatch
	}
	escrow, ok := core.EscrowFor(qty, price)
	if !ok || !call.Value.Eq(escrow) {
		return core.ErrBadEscrow
	}

	deposit := c.Deposit
	err := a.bank.Apply(ctx, []bank.Transfer{
		{From: call.From, To: a.account, Amount: call.Value},
		{From: a.account, To: call.From, Amount: deposit},
	})
	if err != nil {
		return errors.Wrap(err, "take escrow")
	}

	c.Revealed = true
	c.Deposit.Clear()
	a.revealIdx[call.From] = len(a.reveals)
	a.reveals = append(a.reveals, core.RevealedBid{
		Bidder:   call.From,
		Qty:      qty,
		Price:    *price,
		RandPart: randPart,
		Seq:      len(a.reveals),
	})

	a.emit(Event{Kind: EventRevealed, At: call.At, Bidder: call.From, Units: qty, Price: *price})
	a.logger.Info("Bid revealed",
		zap.Stringer("bidder", call.From),
		zap.Uint64("qty", qty),
		zap.String("price", price.Dec()),
		zap.String("deposit_refund", deposit.Dec()),
	)
	return nil
}
