// Package parsing converts wire strings into domain values. Every parser is
// strict: wrong lengths and stray characters are errors, never truncation.
package parsing

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// ParseAddress parses a 0x-prefixed 20-byte address.
func ParseAddress(s string) (common.Address, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, fmt.Errorf("address %q: missing 0x prefix", s)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("address %q: not 20 hex bytes", s)
	}
	return common.HexToAddress(s), nil
}

// ParseHash parses a 0x-prefixed 32-byte value.
func ParseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("hash %q: %w", s, err)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("hash %q: got %d bytes, want %d", s, len(b), common.HashLength)
	}
	return common.BytesToHash(b), nil
}

// ParseOptionalHash is ParseHash that maps "" to the zero hash.
func ParseOptionalHash(s string) (common.Hash, error) {
	if s == "" {
		return common.Hash{}, nil
	}
	return ParseHash(s)
}

// ParseProof decodes whitelist proof elements. Element length is not
// checked here; the verifier rejects elements of the wrong size.
func ParseProof(elems []string) ([][]byte, error) {
	proof := make([][]byte, len(elems))
	for i, e := range elems {
		b, err := hexutil.Decode(e)
		if err != nil {
			return nil, fmt.Errorf("proof[%d]: %w", i, err)
		}
		proof[i] = b
	}
	return proof, nil
}

// FormatProof renders proof elements as 0x-hex strings.
func FormatProof(proof [][]byte) []string {
	out := make([]string, len(proof))
	for i, p := range proof {
		out[i] = hexutil.Encode(p)
	}
	return out
}

// ParseWei parses a non-negative decimal wei amount. The empty string is
// zero.
func ParseWei(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("wei amount %q: %w", s, err)
	}
	return v, nil
}
