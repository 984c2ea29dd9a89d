package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// CommitHash computes the sealed-bid commitment for a bid.
//
// Formula: keccak256(uint256(qty) || uint256(price) || salt || bidder)
//
// This is the Solidity abi.encodePacked layout for
// (uint256, uint256, bytes32, address), so a hash produced by a wallet with
// solidityPackedKeccak256 matches byte for byte.
func CommitHash(qty uint64, price *uint256.Int, salt common.Hash, bidder common.Address) common.Hash {
	qtyWord := uint256.NewInt(qty).Bytes32()
	priceWord := price.Bytes32()
	return crypto.Keccak256Hash(qtyWord[:], priceWord[:], salt[:], bidder[:])
}

// SaltFromString derives a 32-byte salt from what a bidder typed into the
// bidding client. Strict 0x-prefixed hex is hashed as the bytes it encodes,
// an odd digit count taking a leading zero; anything else is hashed as UTF-8
// text. Use a raw 32-byte salt directly when it must not be hashed again.
func SaltFromString(s string) common.Hash {
	if raw, ok := strictHex(s); ok {
		return crypto.Keccak256Hash(raw)
	}
	return crypto.Keccak256Hash([]byte(s))
}

func strictHex(s string) ([]byte, bool) {
	if len(s) < 2 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return nil, false
	}
	digits := s[2:]
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	raw, err := hexutil.Decode("0x" + digits)
	if err != nil {
		return nil, false
	}
	return raw, true
}
