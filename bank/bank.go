// Package bank is an in-memory host ledger: account balances plus atomic
// batches of transfers. It stands in for the chain the auction runs on.
package bank

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-faster/errors"
	"github.com/holiman/uint256"
)

// ErrInsufficientFunds is returned when a batch would overdraw an account.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Transfer moves Amount from From to To.
type Transfer struct {
	From   common.Address
	To     common.Address
	Amount uint256.Int
}

// Memory is a mutex-guarded balance table. Batches apply all-or-nothing.
type Memory struct {
	mu       sync.Mutex
	balances map[common.Address]uint256.Int
	failNext error
}

// NewMemory creates an empty ledger.
func NewMemory() *Memory {
	return &Memory{balances: make(map[common.Address]uint256.Int)}
}

// Mint credits amount to addr out of thin air. Used for genesis balances.
func (m *Memory) Mint(addr common.Address, amount *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bal := m.balances[addr]
	if _, overflow := bal.AddOverflow(&bal, amount); overflow {
		return errors.Errorf("mint to %s overflows", addr.Hex())
	}
	m.balances[addr] = bal
	return nil
}

// Balance returns the balance of addr.
func (m *Memory) Balance(addr common.Address) uint256.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[addr]
}

// FailNext makes the next Apply return err without touching balances.
// It lets tests exercise payout failure paths.
func (m *Memory) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// Apply executes transfers in order as one atomic batch. If any transfer
// would overdraw its source, no balance changes.
func (m *Memory) Apply(ctx context.Context, transfers []Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}

	staged := make(map[common.Address]uint256.Int)
	get := func(a common.Address) uint256.Int {
		if v, ok := staged[a]; ok {
			return v
		}
		return m.balances[a]
	}

	for i, tr := range transfers {
		from := get(tr.From)
		if _, underflow := from.SubOverflow(&from, &tr.Amount); underflow {
			return errors.Wrapf(ErrInsufficientFunds, "transfer %d of %s from %s", i, tr.Amount.Dec(), tr.From.Hex())
		}
		staged[tr.From] = from

		to := get(tr.To)
		if _, overflow := to.AddOverflow(&to, &tr.Amount); overflow {
			return errors.Errorf("transfer %d to %s overflows", i, tr.To.Hex())
		}
		staged[tr.To] = to
	}

	for a, v := range staged {
		m.balances[a] = v
	}
	return nil
}

// Total sums every balance. Transfers never change it; only Mint does.
func (m *Memory) Total() uint256.Int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total uint256.Int
	for _, v := range m.balances {
		total.Add(&total, &v)
	}
	return total
}
