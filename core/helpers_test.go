package core

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	seller  = common.HexToAddress("0x5e11e2000000000000000000000000000000000a")
	bidder1 = common.HexToAddress("0xb1d0000000000000000000000000000000000001")
	bidder2 = common.HexToAddress("0xb1d0000000000000000000000000000000000002")
	bidder3 = common.HexToAddress("0xb1d0000000000000000000000000000000000003")
	bidder4 = common.HexToAddress("0xb1d0000000000000000000000000000000000004")

	testStart = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
)

func ether(s string) uint256.Int {
	return *MustParseEther(s)
}

// testParams mirrors the reference deployment: k=5, one hour per phase,
// reserve 0.1, deposit 0.01, reward 0.005.
func testParams() Params {
	return Params{
		Seller:         seller,
		K:              5,
		CommitDuration: time.Hour,
		RevealDuration: time.Hour,
		ReservePrice:   ether("0.1"),
		MinDeposit:     ether("0.01"),
		FinalizeGrace:  10 * time.Minute,
		FinalizeReward: ether("0.005"),
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := NewConfig(testParams(), testStart)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	return cfg
}

func revealed(bidder common.Address, qty uint64, price string, seq int) RevealedBid {
	return RevealedBid{Bidder: bidder, Qty: qty, Price: ether(price), Seq: seq}
}
