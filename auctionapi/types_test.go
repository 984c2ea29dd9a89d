package auctionapi

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/uniformauction/core"
)

var (
	seller  = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bidder1 = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	bidder2 = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	bidder3 = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
	account = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
)

func testSettlement(t *testing.T) (core.Config, *core.Settlement) {
	t.Helper()
	cfg, err := core.NewConfig(core.Params{
		Seller:         seller,
		K:              5,
		CommitDuration: time.Hour,
		RevealDuration: time.Hour,
		ReservePrice:   *core.MustParseEther("0.1"),
		MinDeposit:     *core.MustParseEther("0.01"),
		FinalizeGrace:  10 * time.Minute,
		FinalizeReward: *core.MustParseEther("0.005"),
	}, time.Unix(1_767_225_600, 0))
	assert.NoError(t, err)

	s, err := core.Settle(core.SettlementInput{
		Config: &cfg,
		Caller: seller,
		Revealed: []core.RevealedBid{
			{Bidder: bidder1, Qty: 3, Price: *core.MustParseEther("0.5"), Seq: 0},
			{Bidder: bidder2, Qty: 3, Price: *core.MustParseEther("0.4"), Seq: 1},
		},
		Unrevealed: []core.ForfeitedDeposit{{Bidder: bidder3, Deposit: *core.MustParseEther("0.01")}},
	})
	assert.NoError(t, err)
	return cfg, s
}

func TestNewSettlementReceipt(t *testing.T) {
	cfg, s := testSettlement(t)

	r := NewSettlementReceipt("auction-1", account, cfg, s, 1_767_233_000)

	check.Equal(t, "auction-1", r.AuctionID)
	check.Equal(t, account.Hex(), r.Account)
	check.Equal(t, uint64(5), r.Config.K)
	check.Equal(t, cfg.RevealDeadline.Unix(), r.Config.RevealDeadline)
	check.True(t, r.Sold)
	check.Equal(t, "400000000000000000", r.ClearingPrice)
	check.Equal(t, uint64(5), r.TotalUnitsSold)
	check.Equal(t, "2010000000000000000", r.SellerPayout)
	check.Equal(t, "0", r.Reward)
	check.Equal(t, "10000000000000000", r.SlashedPool)

	assert.Equal(t, 2, len(r.Bidders))
	check.Equal(t, BidderOutcome{
		Bidder:   bidder2.Hex(),
		Qty:      3,
		Price:    "400000000000000000",
		UnitsWon: 2,
		Cost:     "800000000000000000",
		Refund:   "400000000000000000",
	}, r.Bidders[1])

	assert.Equal(t, 1, len(r.Forfeited))
	check.Equal(t, bidder3.Hex(), r.Forfeited[0].Bidder)
}

func TestMarshalReceipt_Deterministic(t *testing.T) {
	cfg, s := testSettlement(t)
	r := NewSettlementReceipt("auction-1", account, cfg, s, 1_767_233_000)

	a, err := MarshalReceipt(r)
	assert.NoError(t, err)
	b, err := MarshalReceipt(r)
	assert.NoError(t, err)
	check.Equal(t, a, b)

	decoded, err := UnmarshalReceipt(a)
	assert.NoError(t, err)
	check.Equal(t, r, decoded)
}

func TestUnmarshalReceipt_Garbage(t *testing.T) {
	_, err := UnmarshalReceipt([]byte{0xff, 0x00})
	check.Error(t, err)
}

func TestMarshalStatus(t *testing.T) {
	cfg, _ := testSettlement(t)
	st := &AuctionStatus{
		AuctionID: "auction-1",
		Account:   account.Hex(),
		Config:    NewAuctionConfig(cfg),
		State:     core.StateCommitting.String(),
	}

	data, err := MarshalStatus(st)
	check.NoError(t, err)
	check.True(t, len(data) > 0)
}
