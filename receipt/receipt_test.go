package receipt

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/uniformauction/auction"
	"github.com/cloudx-io/uniformauction/auctionapi"
	"github.com/cloudx-io/uniformauction/bank"
	"github.com/cloudx-io/uniformauction/core"
)

var (
	seller  = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bidder1 = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	account = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
)

// settledAuction runs a one-bidder auction to completion.
func settledAuction(t *testing.T) *auction.Auction {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	cfg, err := core.NewConfig(core.Params{
		Seller:         seller,
		K:              2,
		CommitDuration: time.Hour,
		RevealDuration: time.Hour,
		ReservePrice:   *core.MustParseEther("0.1"),
		MinDeposit:     *core.MustParseEther("0.01"),
		FinalizeGrace:  time.Minute,
		FinalizeReward: *core.MustParseEther("0.001"),
	}, start)
	assert.NoError(t, err)

	b := bank.NewMemory()
	assert.NoError(t, b.Mint(bidder1, core.MustParseEther("10")))
	a := auction.New(account, cfg, b)

	price := core.MustParseEther("0.3")
	salt := core.SaltFromString("s")
	err = a.CommitBid(ctx, auction.Call{From: bidder1, Value: cfg.MinDeposit, At: start}, core.CommitHash(1, price, salt, bidder1), nil)
	assert.NoError(t, err)
	err = a.RevealBid(ctx, auction.Call{From: bidder1, Value: *price, At: cfg.CommitDeadline}, 1, price, salt, common.Hash{})
	assert.NoError(t, err)
	_, err = a.Finalize(ctx, auction.Call{From: seller, At: cfg.RevealDeadline})
	assert.NoError(t, err)
	return a
}

func TestBuild(t *testing.T) {
	a := settledAuction(t)

	r, err := Build("a-1", a)
	assert.NoError(t, err)

	check.Equal(t, "a-1", r.AuctionID)
	check.Equal(t, account.Hex(), r.Account)
	check.Equal(t, "300000000000000000", r.ClearingPrice)
	check.Equal(t, uint64(1), r.TotalUnitsSold)
	check.Equal(t, a.Config().RevealDeadline.Unix(), r.SettledAt)
}

func TestBuild_NotSettled(t *testing.T) {
	cfg, err := core.NewConfig(core.Params{
		Seller: seller, K: 1, CommitDuration: time.Hour, RevealDuration: time.Hour, FinalizeGrace: time.Hour,
	}, time.Now())
	assert.NoError(t, err)

	_, err = Build("a-2", auction.New(account, cfg, bank.NewMemory()))
	check.Error(t, err)
}

func TestSign_VerifiesWithPublicKey(t *testing.T) {
	km, err := NewKeyManager()
	assert.NoError(t, err)
	r, err := Build("a-1", settledAuction(t))
	assert.NoError(t, err)

	msg, err := Sign(km, r)
	assert.NoError(t, err)

	var parts []cbor.RawMessage
	assert.NoError(t, cbor.Unmarshal(msg, &parts))
	assert.Equal(t, 4, len(parts))

	var protected, payload, signature []byte
	assert.NoError(t, cbor.Unmarshal(parts[0], &protected))
	assert.NoError(t, cbor.Unmarshal(parts[2], &payload))
	assert.NoError(t, cbor.Unmarshal(parts[3], &signature))

	var headers map[int]int64
	assert.NoError(t, cbor.Unmarshal(protected, &headers))
	check.Equal(t, int64(cose.AlgorithmES256), headers[headerAlgorithm])

	var unprotected map[int][]byte
	assert.NoError(t, cbor.Unmarshal(parts[1], &unprotected))
	check.Equal(t, km.KeyID(), unprotected[headerKeyID])

	decoded, err := auctionapi.UnmarshalReceipt(payload)
	assert.NoError(t, err)
	check.Equal(t, r.AuctionID, decoded.AuctionID)
	check.Equal(t, r.Config, decoded.Config)
	check.Equal(t, r.Bidders, decoded.Bidders)
	check.Equal(t, r.SellerPayout, decoded.SellerPayout)

	toBeSigned, err := cbor.Marshal([]any{"Signature1", protected, []byte{}, payload})
	assert.NoError(t, err)
	verifier, err := cose.NewVerifier(cose.AlgorithmES256, km.PublicKey)
	assert.NoError(t, err)
	check.NoError(t, verifier.Verify(toBeSigned, signature))

	other, err := NewKeyManager()
	assert.NoError(t, err)
	wrong, err := cose.NewVerifier(cose.AlgorithmES256, other.PublicKey)
	assert.NoError(t, err)
	check.Error(t, wrong.Verify(toBeSigned, signature))
}

func TestKeyManager_PEMRoundTrip(t *testing.T) {
	km, err := NewKeyManager()
	assert.NoError(t, err)

	privPEM, err := km.PrivateKeyPEM()
	assert.NoError(t, err)

	loaded, err := LoadKeyManager(privPEM)
	assert.NoError(t, err)
	check.True(t, km.PublicKey.Equal(loaded.PublicKey))
	check.Equal(t, km.KeyID(), loaded.KeyID())

	pub1, err := km.PublicKeyPEM()
	assert.NoError(t, err)
	pub2, err := loaded.PublicKeyPEM()
	assert.NoError(t, err)
	check.Equal(t, pub1, pub2)
}

func TestLoadKeyManager_Rejects(t *testing.T) {
	_, err := LoadKeyManager([]byte("not pem"))
	check.Error(t, err)

	km, err := NewKeyManager()
	assert.NoError(t, err)
	pub, err := km.PublicKeyPEM()
	assert.NoError(t, err)
	_, err = LoadKeyManager([]byte(pub))
	check.Error(t, err)
}
