package core

import (
	"sort"
)

// RankRevealedBids orders bids by price descending. Equal prices keep reveal
// order, earliest first, so the ranking is fully deterministic.
// The input slice is not modified.
func RankRevealedBids(bids []RevealedBid) []RevealedBid {
	ranked := make([]RevealedBid, len(bids))
	copy(ranked, bids)

	sort.SliceStable(ranked, func(i, j int) bool {
		if c := ranked[i].Price.Cmp(&ranked[j].Price); c != 0 {
			return c > 0
		}
		return ranked[i].Seq < ranked[j].Seq
	})

	return ranked
}
