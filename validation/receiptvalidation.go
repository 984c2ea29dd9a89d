package validation

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/cloudx-io/uniformauction/auctionapi"
	"github.com/cloudx-io/uniformauction/auctionapi/parsing"
	"github.com/cloudx-io/uniformauction/core"
)

// ReceiptValidationInput contains all inputs needed for settlement receipt validation
type ReceiptValidationInput struct {
	ReceiptCOSEGzip auctionapi.ReceiptCOSEGzip // Compressed receipt as shared with bidders
	PublicKeyPEM    string                     // Published receipt signing key

	// Optional bidder expectation. Bidder == "" skips the check.
	Bidder                string
	IsWinner              bool
	ExpectedUnits         *uint64 // nil = do not check unit count
	ExpectedClearingPrice string  // wei; "" = do not check
}

// ValidateReceipt verifies a settlement receipt and rechecks:
// - The COSE signature against the published key
// - Conservation: everything held is paid out exactly once
// - Allocation: units and clearing price follow from the revealed bids
// - Finalizer reward
// - The bidder's own expectation, when given
//
// Returns:
//   - ReceiptValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., undecodable receipt, bad key)
func ValidateReceipt(input *ReceiptValidationInput) (*ReceiptValidationResult, error) {
	receiptCOSE, err := input.ReceiptCOSEGzip.Decompress()
	if err != nil {
		return nil, fmt.Errorf("decompress receipt: %w", err)
	}
	publicKey, err := ParsePublicKeyPEM(input.PublicKeyPEM)
	if err != nil {
		return nil, err
	}

	result := &ReceiptValidationResult{}

	if err := VerifyCOSESignature(receiptCOSE, publicKey); err != nil {
		result.addDetail("Signature validation failed: %v", err)
	} else {
		result.SignatureValid = true
		result.addDetail("Signature validation passed")
	}

	payload, err := ExtractCOSEPayload(receiptCOSE)
	if err != nil {
		return nil, err
	}
	receipt, err := auctionapi.UnmarshalReceipt(payload)
	if err != nil {
		return nil, err
	}
	result.Receipt = receipt

	d, err := decodeReceipt(receipt)
	if err != nil {
		return nil, fmt.Errorf("malformed receipt: %w", err)
	}

	result.ConservationValid = validateConservation(d, result)
	result.AllocationValid = validateAllocation(d, result)
	result.RewardValid = validateReward(d, result)
	result.BidderValid = validateBidder(input, d, result)

	return result, nil
}

type decodedBidder struct {
	bid      core.RevealedBid
	unitsWon uint64
	cost     uint256.Int
	refund   uint256.Int
}

// decodedReceipt is a receipt with every amount and address parsed.
type decodedReceipt struct {
	seller         common.Address
	finalizer      common.Address
	k              uint64
	reserve        uint256.Int
	finalizeReward uint256.Int
	sold           bool
	clearing       uint256.Int
	unitsSold      uint64
	held           uint256.Int
	slashed        uint256.Int
	proceeds       uint256.Int
	sellerPayout   uint256.Int
	reward         uint256.Int
	bidders        []decodedBidder
	forfeited      []uint256.Int
}

func decodeReceipt(r *auctionapi.SettlementReceipt) (*decodedReceipt, error) {
	var err error
	d := &decodedReceipt{k: r.Config.K, sold: r.Sold, unitsSold: r.TotalUnitsSold}

	if d.seller, err = parsing.ParseAddress(r.Config.Seller); err != nil {
		return nil, err
	}
	if d.finalizer, err = parsing.ParseAddress(r.Finalizer); err != nil {
		return nil, err
	}

	amounts := []struct {
		dst *uint256.Int
		src string
	}{
		{&d.reserve, r.Config.ReservePrice},
		{&d.finalizeReward, r.Config.FinalizeReward},
		{&d.clearing, r.ClearingPrice},
		{&d.held, r.Held},
		{&d.slashed, r.SlashedPool},
		{&d.proceeds, r.TotalProceeds},
		{&d.sellerPayout, r.SellerPayout},
		{&d.reward, r.Reward},
	}
	for _, a := range amounts {
		v, err := parsing.ParseWei(a.src)
		if err != nil {
			return nil, err
		}
		*a.dst = *v
	}

	for i, b := range r.Bidders {
		addr, err := parsing.ParseAddress(b.Bidder)
		if err != nil {
			return nil, fmt.Errorf("bidder %d: %w", i, err)
		}
		price, err := parsing.ParseWei(b.Price)
		if err != nil {
			return nil, fmt.Errorf("bidder %d: %w", i, err)
		}
		cost, err := parsing.ParseWei(b.Cost)
		if err != nil {
			return nil, fmt.Errorf("bidder %d: %w", i, err)
		}
		refund, err := parsing.ParseWei(b.Refund)
		if err != nil {
			return nil, fmt.Errorf("bidder %d: %w", i, err)
		}
		d.bidders = append(d.bidders, decodedBidder{
			bid:      core.RevealedBid{Bidder: addr, Qty: b.Qty, Price: *price, Seq: i},
			unitsWon: b.UnitsWon,
			cost:     *cost,
			refund:   *refund,
		})
	}

	for i, f := range r.Forfeited {
		dep, err := parsing.ParseWei(f.Deposit)
		if err != nil {
			return nil, fmt.Errorf("forfeited %d: %w", i, err)
		}
		d.forfeited = append(d.forfeited, *dep)
	}
	return d, nil
}

func validateConservation(d *decodedReceipt, result *ReceiptValidationResult) bool {
	var escrowed, refunds, costs, forfeited uint256.Int
	valid := true
	overflowed := false
	add := func(acc, v *uint256.Int) {
		if _, overflow := acc.AddOverflow(acc, v); overflow {
			overflowed = true
		}
	}

	for _, b := range d.bidders {
		escrow, ok := b.bid.Escrow()
		if !ok {
			result.addDetail("Conservation failed: escrow of %s overflows", b.bid.Bidder.Hex())
			return false
		}
		var sum uint256.Int
		add(&sum, &b.cost)
		add(&sum, &b.refund)
		if !sum.Eq(escrow) {
			result.addDetail("Conservation failed: %s cost %s + refund %s != escrow %s",
				b.bid.Bidder.Hex(), b.cost.Dec(), b.refund.Dec(), escrow.Dec())
			valid = false
		}
		add(&escrowed, escrow)
		add(&refunds, &b.refund)
		add(&costs, &b.cost)
	}
	for i := range d.forfeited {
		add(&forfeited, &d.forfeited[i])
	}

	var inflow, proceeds, outflow uint256.Int
	add(&inflow, &escrowed)
	add(&inflow, &d.slashed)
	add(&proceeds, &costs)
	add(&proceeds, &d.slashed)
	add(&outflow, &refunds)
	add(&outflow, &d.reward)
	add(&outflow, &d.sellerPayout)

	if overflowed {
		result.addDetail("Conservation failed: receipt amounts overflow 256 bits")
		return false
	}

	if !forfeited.Eq(&d.slashed) {
		result.addDetail("Conservation failed: forfeited deposits %s != slashed pool %s", forfeited.Dec(), d.slashed.Dec())
		valid = false
	}
	if !inflow.Eq(&d.held) {
		result.addDetail("Conservation failed: escrow + slashed %s != held %s", inflow.Dec(), d.held.Dec())
		valid = false
	}
	if !proceeds.Eq(&d.proceeds) {
		result.addDetail("Conservation failed: costs + slashed %s != total proceeds %s", proceeds.Dec(), d.proceeds.Dec())
		valid = false
	}
	if !outflow.Eq(&d.held) {
		result.addDetail("Conservation failed: paid out %s != held %s", outflow.Dec(), d.held.Dec())
		valid = false
	}

	if valid {
		result.addDetail("Conservation validation passed: %s ETH held and paid out", core.FormatEther(&d.held))
	}
	return valid
}

func validateAllocation(d *decodedReceipt, result *ReceiptValidationResult) bool {
	bids := make([]core.RevealedBid, len(d.bidders))
	for i, b := range d.bidders {
		bids[i] = b.bid
	}
	alloc := core.Allocate(bids, d.k, &d.reserve)

	valid := true
	if alloc.Sold != d.sold || !alloc.ClearingPrice.Eq(&d.clearing) || alloc.TotalUnitsSold != d.unitsSold {
		result.addDetail("Allocation mismatch: recomputed sold=%t clearing=%s units=%d, receipt has sold=%t clearing=%s units=%d",
			alloc.Sold, alloc.ClearingPrice.Dec(), alloc.TotalUnitsSold, d.sold, d.clearing.Dec(), d.unitsSold)
		valid = false
	}

	for _, b := range d.bidders {
		if want := alloc.UnitsWon[b.bid.Bidder]; want != b.unitsWon {
			result.addDetail("Allocation mismatch for %s: recomputed %d units, receipt has %d", b.bid.Bidder.Hex(), want, b.unitsWon)
			valid = false
		}
		cost := new(uint256.Int).Mul(uint256.NewInt(b.unitsWon), &d.clearing)
		if !cost.Eq(&b.cost) {
			result.addDetail("Cost mismatch for %s: %d x %s != %s", b.bid.Bidder.Hex(), b.unitsWon, d.clearing.Dec(), b.cost.Dec())
			valid = false
		}
	}

	if valid {
		result.addDetail("Allocation validation passed: %d units at %s ETH", d.unitsSold, core.FormatEther(&d.clearing))
	}
	return valid
}

func validateReward(d *decodedReceipt, result *ReceiptValidationResult) bool {
	want := new(uint256.Int)
	if d.finalizer != d.seller {
		want.Set(&d.finalizeReward)
		if d.proceeds.Lt(want) {
			want.Set(&d.proceeds)
		}
	}

	if want.Eq(&d.reward) {
		result.addDetail("Reward validation passed: %s ETH to %s", core.FormatEther(want), d.finalizer.Hex())
		return true
	}
	result.addDetail("Reward mismatch: expected %s, receipt has %s", want.Dec(), d.reward.Dec())
	return false
}

func validateBidder(input *ReceiptValidationInput, d *decodedReceipt, result *ReceiptValidationResult) bool {
	if input.Bidder == "" {
		result.addDetail("No bidder expectation supplied")
		return true
	}
	addr, err := parsing.ParseAddress(input.Bidder)
	if err != nil {
		result.addDetail("Bidder validation failed: %v", err)
		return false
	}

	var found *decodedBidder
	for i := range d.bidders {
		if d.bidders[i].bid.Bidder == addr {
			found = &d.bidders[i]
			break
		}
	}
	if found == nil {
		result.addDetail("Bidder validation failed: %s has no revealed bid in receipt", addr.Hex())
		return false
	}

	valid := true
	won := found.unitsWon > 0
	if won != input.IsWinner {
		if input.IsWinner {
			result.addDetail("Winner validation failed: expected to win, but won no units")
		} else {
			result.addDetail("Winner validation failed: expected to lose, but won %d units", found.unitsWon)
		}
		valid = false
	}
	if input.ExpectedUnits != nil && *input.ExpectedUnits != found.unitsWon {
		result.addDetail("Units mismatch: expected %d, receipt has %d", *input.ExpectedUnits, found.unitsWon)
		valid = false
	}
	if input.ExpectedClearingPrice != "" {
		want, err := parsing.ParseWei(input.ExpectedClearingPrice)
		if err != nil {
			result.addDetail("Clearing price expectation invalid: %v", err)
			valid = false
		} else if !want.Eq(&d.clearing) {
			result.addDetail("Clearing price mismatch: expected %s, receipt has %s", want.Dec(), d.clearing.Dec())
			valid = false
		}
	}

	if valid {
		result.addDetail("Bidder validation passed: %s won %d units, refund %s ETH",
			addr.Hex(), found.unitsWon, core.FormatEther(&found.refund))
	}
	return valid
}
