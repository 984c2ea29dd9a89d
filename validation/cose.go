package validation

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"

	"github.com/cloudx-io/uniformauction/auctionapi"
)

// coseSign1 is the untagged COSE_Sign1 array: [protected, unprotected, payload, signature].
type coseSign1 struct {
	_           struct{} `cbor:",toarray"`
	Protected   []byte
	Unprotected map[int]any
	Payload     []byte
	Signature   []byte
}

func parseCOSESign1(coseBytes []byte) (*coseSign1, error) {
	var coseArray []any
	if err := cbor.Unmarshal(coseBytes, &coseArray); err != nil {
		return nil, fmt.Errorf("parse COSE array: %w", err)
	}
	if len(coseArray) != 4 {
		return nil, fmt.Errorf("invalid COSE_Sign1 structure: expected 4 elements, got %d", len(coseArray))
	}

	var msg coseSign1
	if err := cbor.Unmarshal(coseBytes, &msg); err != nil {
		return nil, fmt.Errorf("invalid COSE_Sign1 structure: %w", err)
	}
	return &msg, nil
}

// ExtractCOSEPayload returns the payload of a COSE_Sign1 message without
// checking its signature.
func ExtractCOSEPayload(coseBytes []byte) ([]byte, error) {
	msg, err := parseCOSESign1(coseBytes)
	if err != nil {
		return nil, err
	}
	return msg.Payload, nil
}

// ParsePublicKeyPEM parses a PEM "PUBLIC KEY" holding an ECDSA key.
func ParsePublicKeyPEM(publicKeyPEM string) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, fmt.Errorf("no PEM block in public key")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	ecKey, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not ECDSA")
	}
	return ecKey, nil
}

// VerifyCOSESignature checks an ES256 COSE_Sign1 receipt against the
// signer's public key.
func VerifyCOSESignature(receipt auctionapi.ReceiptCOSE, publicKey *ecdsa.PublicKey) error {
	msg, err := parseCOSESign1(receipt)
	if err != nil {
		return err
	}

	var headers map[int]any
	if err := cbor.Unmarshal(msg.Protected, &headers); err != nil {
		return fmt.Errorf("parse protected headers: %w", err)
	}
	alg, ok := headers[1].(int64)
	if !ok || cose.Algorithm(alg) != cose.AlgorithmES256 {
		return fmt.Errorf("unexpected COSE algorithm %v", headers[1])
	}

	// Sig_structure for COSE_Sign1: ["Signature1", protected, external_aad, payload]
	sigStructureBytes, err := cbor.Marshal([]any{"Signature1", msg.Protected, []byte{}, msg.Payload})
	if err != nil {
		return fmt.Errorf("marshal Sig_structure: %w", err)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, publicKey)
	if err != nil {
		return fmt.Errorf("create verifier: %w", err)
	}
	if err := verifier.Verify(sigStructureBytes, msg.Signature); err != nil {
		return fmt.Errorf("COSE signature verification failed: %w", err)
	}
	return nil
}
