// Package merkle verifies and builds sorted-pair keccak256 Merkle trees, the
// layout produced by merkletreejs with sortPairs enabled and checked by
// OpenZeppelin's MerkleProof. It knows nothing about auctions.
package merkle

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// HashSize is the length of every node in the tree.
const HashSize = 32

// LeafForAddress returns keccak256(address), the whitelist leaf for addr.
func LeafForAddress(addr common.Address) common.Hash {
	return keccak(addr[:])
}

// HashPair hashes two nodes in sorted order, so the proof need not say which
// side a sibling is on.
func HashPair(a, b []byte) common.Hash {
	if bytes.Compare(a, b) <= 0 {
		return keccak(a, b)
	}
	return keccak(b, a)
}

// Verify reports whether proof links leaf to root. Proof elements that are
// not exactly HashSize bytes make verification fail.
func Verify(leaf common.Hash, proof [][]byte, root common.Hash) bool {
	computed := leaf
	for _, sibling := range proof {
		if len(sibling) != HashSize {
			return false
		}
		computed = HashPair(computed[:], sibling)
	}
	return computed == root
}

// VerifyAddress checks whitelist membership for addr. When the whitelist is
// disabled every address is accepted.
func VerifyAddress(addr common.Address, proof [][]byte, root common.Hash, enabled bool) bool {
	if !enabled {
		return true
	}
	return Verify(LeafForAddress(addr), proof, root)
}

func keccak(data ...[]byte) common.Hash {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	var h common.Hash
	d.Sum(h[:0])
	return h
}
