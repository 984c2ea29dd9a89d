// Package auction runs one sealed-bid uniform-price auction instance against
// a host ledger. Every operation takes the instance lock, validates, applies
// its transfers as a single batch, and only then mutates state. A rejected
// call leaves the instance exactly as it was.
package auction

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/cloudx-io/uniformauction/bank"
	"github.com/cloudx-io/uniformauction/core"
)

// Bank executes transfer batches atomically. Either every transfer in the
// batch happens or none does.
type Bank interface {
	Apply(ctx context.Context, transfers []bank.Transfer) error
}

// Call carries the authenticated caller, the value attached to the call and
// the ledger time at which it executes.
type Call struct {
	From  common.Address
	Value uint256.Int
	At    time.Time
}

// Auction is a single auction instance. It is safe for concurrent use.
type Auction struct {
	mu sync.Mutex

	account common.Address
	cfg     core.Config
	bank    Bank
	sink    EventSink
	logger  *zap.Logger

	commits     map[common.Address]*core.Commitment
	commitOrder []common.Address
	reveals     []core.RevealedBid
	revealIdx   map[common.Address]int

	settled bool
	result  *Result
	journal []Event
}

// Option configures an Auction.
type Option func(*Auction)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(a *Auction) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithEventSink fans every emitted event out to sink in addition to the
// instance journal.
func WithEventSink(sink EventSink) Option {
	return func(a *Auction) {
		a.sink = sink
	}
}

// New creates an auction whose funds are held by account on b.
func New(account common.Address, cfg core.Config, b Bank, opts ...Option) *Auction {
	a := &Auction{
		account:   account,
		cfg:       cfg,
		bank:      b,
		logger:    zap.NewNop(),
		commits:   make(map[common.Address]*core.Commitment),
		revealIdx: make(map[common.Address]int),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(zap.String("auction", account.Hex()))
	return a
}

// Account is the ledger account that holds deposits and escrow.
func (a *Auction) Account() common.Address {
	return a.account
}

// Config returns the immutable auction configuration.
func (a *Auction) Config() core.Config {
	return a.cfg
}

func (a *Auction) HasCommit(addr common.Address) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.commits[addr]
	return ok
}

// CommitOf returns the commitment of addr.
func (a *Auction) CommitOf(addr common.Address) (core.Commitment, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.commits[addr]
	if !ok {
		return core.Commitment{}, false
	}
	return *c, true
}

// DepositOf returns the deposit currently held for addr. It reads zero once
// the deposit has been refunded on reveal.
func (a *Auction) DepositOf(addr common.Address) uint256.Int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.commits[addr]; ok {
		return c.Deposit
	}
	return uint256.Int{}
}

func (a *Auction) IsSettled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settled
}

// ClearingPrice is zero until the auction settles with a sale.
func (a *Auction) ClearingPrice() uint256.Int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.result == nil {
		return uint256.Int{}
	}
	return a.result.ClearingPrice
}

func (a *Auction) Revealed(addr common.Address) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.revealIdx[addr]
	return ok
}

// RevealOf returns the revealed bid of addr.
func (a *Auction) RevealOf(addr common.Address) (core.RevealedBid, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i, ok := a.revealIdx[addr]
	if !ok {
		return core.RevealedBid{}, false
	}
	return a.reveals[i], true
}

// State derives the phase at now.
func (a *Auction) State(now time.Time) core.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.State(now, a.settled)
}

// Result returns the finalize outcome once settled.
func (a *Auction) Result() (*Result, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result, a.result != nil
}

// Events returns a copy of the event journal in emission order.
func (a *Auction) Events() []Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Event, len(a.journal))
	copy(out, a.journal)
	return out
}
