package auction

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/cloudx-io/uniformauction/bank"
	"github.com/cloudx-io/uniformauction/core"
	"github.com/cloudx-io/uniformauction/merkle"
)

// CommitBid records a sealed bid for call.From. The call value is the
// deposit and moves into the auction account. proof is the whitelist
// inclusion proof and is ignored when the whitelist is off.
func (a *Auction) CommitBid(ctx context.Context, call Call, hash common.Hash, proof [][]byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.cfg.IsCommitOpen(call.At) {
		return core.ErrCommitClosed
	}
	if !merkle.VerifyAddress(call.From, proof, a.cfg.WhitelistRoot, a.cfg.WhitelistOn) {
		return core.ErrNotWhitelisted
	}
	// A repeat commit is rejected whatever value it carries.
	if _, ok := a.commits[call.From]; ok {
		return core.ErrAlreadyCommitted
	}
	if call.Value.Lt(&a.cfg.MinDeposit) {
		return core.ErrDepositTooSmall
	}

	err := a.bank.Apply(ctx, []bank.Transfer{
		{From: call.From, To: a.account, Amount: call.Value},
	})
	if err != nil {
		return errors.Wrap(err, "collect deposit")
	}

	a.commits[call.From] = &core.Commitment{Hash: hash, Deposit: call.Value}
	a.commitOrder = append(a.commitOrder, call.From)

	a.emit(Event{Kind: EventCommitted, At: call.At, Bidder: call.From, Hash: hash})
	a.logger.Info("Bid committed",
		zap.Stringer("bidder", call.From),
		zap.String("deposit", call.Value.Dec()),
	)
	return nil
}
