package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Allocate rations k units among revealed bids and sets the uniform clearing price.
//
// Processing flow:
//  1. Drop bids priced below the reserve
//  2. Rank the rest by price descending, ties by reveal order
//  3. Walk the ranking, giving each bid min(qty, unitsLeft)
//  4. The clearing price is the price of the last bid that received units
//
// If nothing clears the reserve the result has Sold=false and a zero price.
func Allocate(bids []RevealedBid, k uint64, reserve *uint256.Int) *AllocationResult {
	result := &AllocationResult{
		Winners:  make([]Allocation, 0),
		UnitsWon: make(map[common.Address]uint64, len(bids)),
	}
	for _, bid := range bids {
		result.UnitsWon[bid.Bidder] = 0
	}

	eligible, _ := EnforceReservePrice(bids, reserve)
	ranked := RankRevealedBids(eligible)

	unitsLeft := k
	for _, bid := range ranked {
		if unitsLeft == 0 {
			break
		}
		units := min(bid.Qty, unitsLeft)
		if units == 0 {
			continue
		}
		unitsLeft -= units

		result.UnitsWon[bid.Bidder] = units
		result.Winners = append(result.Winners, Allocation{Bidder: bid.Bidder, UnitsWon: units})
		result.ClearingPrice = bid.Price
		result.Sold = true
	}

	result.TotalUnitsSold = k - unitsLeft
	return result
}
