package auction

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/peterldowns/testy/assert"

	"github.com/cloudx-io/uniformauction/bank"
	"github.com/cloudx-io/uniformauction/core"
)

var (
	seller         = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bidder1        = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	bidder2        = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	bidder3        = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
	nonParticipant = common.HexToAddress("0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65")
	escrowAccount  = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

	everyone = []common.Address{seller, bidder1, bidder2, bidder3, nonParticipant}

	testStart = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
)

func ether(s string) uint256.Int {
	return *core.MustParseEther(s)
}

// fixture is one auction on a fresh ledger where every test account starts
// with 100 ether.
type fixture struct {
	t    *testing.T
	ctx  context.Context
	cfg  core.Config
	bank *bank.Memory
	auc  *Auction
}

func newFixture(t *testing.T, opts ...func(*core.Params)) *fixture {
	t.Helper()

	p := core.Params{
		Seller:         seller,
		K:              5,
		CommitDuration: time.Hour,
		RevealDuration: time.Hour,
		ReservePrice:   ether("0.1"),
		MinDeposit:     ether("0.01"),
		FinalizeGrace:  10 * time.Minute,
		FinalizeReward: ether("0.005"),
	}
	for _, o := range opts {
		o(&p)
	}
	cfg, err := core.NewConfig(p, testStart)
	assert.NoError(t, err)

	b := bank.NewMemory()
	for _, a := range everyone {
		hundred := ether("100")
		assert.NoError(t, b.Mint(a, &hundred))
	}

	return &fixture{
		t:    t,
		ctx:  context.Background(),
		cfg:  cfg,
		bank: b,
		auc:  New(escrowAccount, cfg, b),
	}
}

func (f *fixture) duringCommit() time.Time { return testStart.Add(time.Minute) }
func (f *fixture) duringReveal() time.Time { return f.cfg.CommitDeadline.Add(time.Minute) }
func (f *fixture) revealEnd() time.Time    { return f.cfg.RevealDeadline }
func (f *fixture) graceEnd() time.Time     { return f.cfg.FinalizeGraceDeadline }

// sealedBid is a bid together with the secret that seals it.
type sealedBid struct {
	bidder common.Address
	qty    uint64
	price  uint256.Int
	salt   common.Hash
}

func bid(bidder common.Address, qty uint64, price string) sealedBid {
	return sealedBid{
		bidder: bidder,
		qty:    qty,
		price:  ether(price),
		salt:   core.SaltFromString("salt-" + bidder.Hex()),
	}
}

func (b sealedBid) hash() common.Hash {
	return core.CommitHash(b.qty, &b.price, b.salt, b.bidder)
}

func (b sealedBid) escrow() uint256.Int {
	v, ok := core.EscrowFor(b.qty, &b.price)
	if !ok {
		panic("escrow overflow in test bid")
	}
	return *v
}

func (f *fixture) commit(b sealedBid) error {
	return f.auc.CommitBid(f.ctx, Call{From: b.bidder, Value: f.cfg.MinDeposit, At: f.duringCommit()}, b.hash(), nil)
}

func (f *fixture) reveal(b sealedBid) error {
	return f.auc.RevealBid(f.ctx, Call{From: b.bidder, Value: b.escrow(), At: f.duringReveal()},
		b.qty, &b.price, b.salt, core.SaltFromString("rand"))
}

func (f *fixture) mustCommit(bids ...sealedBid) {
	f.t.Helper()
	for _, b := range bids {
		assert.NoError(f.t, f.commit(b))
	}
}

func (f *fixture) mustReveal(bids ...sealedBid) {
	f.t.Helper()
	for _, b := range bids {
		assert.NoError(f.t, f.reveal(b))
	}
}

func (f *fixture) finalize(caller common.Address, at time.Time) (*Result, error) {
	return f.auc.Finalize(f.ctx, Call{From: caller, At: at})
}

// balances captures every test account plus the escrow account.
func (f *fixture) balances() map[common.Address]uint256.Int {
	out := make(map[common.Address]uint256.Int, len(everyone)+1)
	for _, a := range append([]common.Address{escrowAccount}, everyone...) {
		out[a] = f.bank.Balance(a)
	}
	return out
}

// delta returns after-before for addr as a signed ether string.
func delta(before, after map[common.Address]uint256.Int, addr common.Address) string {
	b, a := before[addr], after[addr]
	if a.Lt(&b) {
		d := new(uint256.Int).Sub(&b, &a)
		return "-" + core.FormatEther(d)
	}
	d := new(uint256.Int).Sub(&a, &b)
	return core.FormatEther(d)
}
