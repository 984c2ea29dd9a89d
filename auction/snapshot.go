package auction

import (
	"time"

	"github.com/cloudx-io/uniformauction/auctionapi"
)

// Snapshot returns a consistent view of the auction at now. AuctionID is
// left for the caller to fill in.
func (a *Auction) Snapshot(now time.Time) auctionapi.AuctionStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := auctionapi.AuctionStatus{
		Account:     a.account.Hex(),
		Config:      auctionapi.NewAuctionConfig(a.cfg),
		State:       a.cfg.State(now, a.settled).String(),
		Settled:     a.settled,
		AsOf:        now.Unix(),
		Commitments: make([]auctionapi.CommitmentStatus, 0, len(a.commitOrder)),
		Reveals:     make([]auctionapi.RevealStatus, 0, len(a.reveals)),
	}

	for _, bidder := range a.commitOrder {
		c := a.commits[bidder]
		st.Commitments = append(st.Commitments, auctionapi.CommitmentStatus{
			Bidder:   bidder.Hex(),
			Hash:     c.Hash.Hex(),
			Deposit:  c.Deposit.Dec(),
			Revealed: c.Revealed,
		})
	}
	for _, r := range a.reveals {
		st.Reveals = append(st.Reveals, auctionapi.RevealStatus{
			Bidder:   r.Bidder.Hex(),
			Qty:      r.Qty,
			Price:    r.Price.Dec(),
			RandPart: r.RandPart.Hex(),
			Seq:      r.Seq,
		})
	}

	if res := a.result; res != nil {
		st.Result = &auctionapi.ResultSummary{
			Sold:           res.Sold,
			ClearingPrice:  res.ClearingPrice.Dec(),
			TotalUnitsSold: res.TotalUnitsSold,
			SellerPayout:   res.SellerPayout.Dec(),
			Reward:         res.Reward.Dec(),
			Finalizer:      res.Finalizer.Hex(),
			SettledAt:      res.SettledAt.Unix(),
		}
	}
	return st
}
