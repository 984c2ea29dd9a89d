package auction

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// EventKind names a notification emitted by an auction.
type EventKind string

const (
	EventCommitted   EventKind = "committed"
	EventRevealed    EventKind = "revealed"
	EventWinner      EventKind = "winner"
	EventFinalizedBy EventKind = "finalized_by"
	EventSettled     EventKind = "settled"
)

// Event is one journal entry. Which fields are meaningful depends on Kind:
//
//	committed     Bidder, Hash
//	revealed      Bidder, Units (qty), Price
//	winner        Bidder, Units (won), Price (clearing)
//	finalized_by  Bidder (caller), Amount (reward)
//	settled       Units (total sold), Price (clearing), Amount (seller payout), Sold
type Event struct {
	Seq    uint64
	Kind   EventKind
	At     time.Time
	Bidder common.Address
	Hash   common.Hash
	Units  uint64
	Price  uint256.Int
	Amount uint256.Int
	Sold   bool
}

// EventSink receives events after the operation that produced them has
// committed. Publish is called with the instance lock held and must not call
// back into the auction.
type EventSink interface {
	Publish(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Publish(e Event) { f(e) }

// emit must be called with a.mu held.
func (a *Auction) emit(e Event) {
	e.Seq = uint64(len(a.journal))
	a.journal = append(a.journal, e)
	if a.sink != nil {
		a.sink.Publish(e)
	}
}
