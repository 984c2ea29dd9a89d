package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// BidMeetsReserve returns true if the bid price meets or exceeds the reserve.
func BidMeetsReserve(price, reserve *uint256.Int) bool {
	return !price.Lt(reserve)
}

// EnforceReservePrice filters bids priced below the reserve.
// Returns eligible bids in their original order and the bidders that were rejected.
func EnforceReservePrice(bids []RevealedBid, reserve *uint256.Int) (eligible []RevealedBid, rejected []common.Address) {
	eligible = make([]RevealedBid, 0, len(bids))
	rejected = make([]common.Address, 0)

	for _, bid := range bids {
		if BidMeetsReserve(&bid.Price, reserve) {
			eligible = append(eligible, bid)
		} else {
			rejected = append(rejected, bid.Bidder)
		}
	}

	return eligible, rejected
}
