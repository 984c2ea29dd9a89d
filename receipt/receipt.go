// Package receipt signs settlement receipts. A receipt is the deterministic
// CBOR encoding of auctionapi.SettlementReceipt wrapped in an untagged
// COSE_Sign1 array and signed with ES256.
package receipt

import (
	"crypto/rand"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/uniformauction/auction"
	"github.com/cloudx-io/uniformauction/auctionapi"
)

// COSE header labels, RFC 9052 section 3.1.
const (
	headerAlgorithm = 1
	headerKeyID     = 4
)

var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Build assembles the receipt body for a settled auction.
func Build(auctionID string, a *auction.Auction) (*auctionapi.SettlementReceipt, error) {
	res, ok := a.Result()
	if !ok {
		return nil, fmt.Errorf("auction %s is not settled", auctionID)
	}
	return auctionapi.NewSettlementReceipt(auctionID, a.Account(), a.Config(), res.Settlement, res.SettledAt.Unix()), nil
}

// Sign encodes r and signs it with km.
func Sign(km *KeyManager, r *auctionapi.SettlementReceipt) (auctionapi.ReceiptCOSE, error) {
	payload, err := auctionapi.MarshalReceipt(r)
	if err != nil {
		return nil, err
	}

	protected, err := encMode.Marshal(map[int]int64{headerAlgorithm: int64(cose.AlgorithmES256)})
	if err != nil {
		return nil, fmt.Errorf("marshal protected headers: %w", err)
	}

	// Sig_structure for COSE_Sign1: ["Signature1", protected, external_aad, payload]
	toBeSigned, err := encMode.Marshal([]any{"Signature1", protected, []byte{}, payload})
	if err != nil {
		return nil, fmt.Errorf("marshal Sig_structure: %w", err)
	}

	signer, err := cose.NewSigner(cose.AlgorithmES256, km.privateKey)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}
	signature, err := signer.Sign(rand.Reader, toBeSigned)
	if err != nil {
		return nil, fmt.Errorf("sign receipt: %w", err)
	}

	unprotected := map[int][]byte{headerKeyID: km.KeyID()}
	msg, err := encMode.Marshal([]any{protected, unprotected, payload, signature})
	if err != nil {
		return nil, fmt.Errorf("marshal COSE_Sign1: %w", err)
	}
	return auctionapi.ReceiptCOSE(msg), nil
}
