package merkle

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-faster/errors"
)

// Tree is a sorted-pair Merkle tree over a fixed leaf set. An odd node at the
// end of a layer is carried up unchanged rather than duplicated.
type Tree struct {
	layers [][]common.Hash
	index  map[common.Hash]int
}

// NewTree builds a tree over leaves in the given order.
func NewTree(leaves []common.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, errors.New("merkle tree needs at least one leaf")
	}

	t := &Tree{index: make(map[common.Hash]int, len(leaves))}
	base := make([]common.Hash, len(leaves))
	copy(base, leaves)
	for i, leaf := range base {
		if _, dup := t.index[leaf]; !dup {
			t.index[leaf] = i
		}
	}
	t.layers = append(t.layers, base)

	for layer := base; len(layer) > 1; {
		next := make([]common.Hash, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 == len(layer) {
				next = append(next, layer[i])
				continue
			}
			next = append(next, HashPair(layer[i][:], layer[i+1][:]))
		}
		t.layers = append(t.layers, next)
		layer = next
	}

	return t, nil
}

// NewAddressTree builds the whitelist tree for addrs.
func NewAddressTree(addrs []common.Address) (*Tree, error) {
	leaves := make([]common.Hash, len(addrs))
	for i, a := range addrs {
		leaves[i] = LeafForAddress(a)
	}
	return NewTree(leaves)
}

// Root returns the tree root.
func (t *Tree) Root() common.Hash {
	return t.layers[len(t.layers)-1][0]
}

// Proof returns the sibling path for leaf, or false if leaf is not in the tree.
func (t *Tree) Proof(leaf common.Hash) ([][]byte, bool) {
	idx, ok := t.index[leaf]
	if !ok {
		return nil, false
	}

	proof := make([][]byte, 0, len(t.layers)-1)
	for _, layer := range t.layers[:len(t.layers)-1] {
		sibling := idx ^ 1
		if sibling < len(layer) {
			proof = append(proof, layer[sibling].Bytes())
		}
		idx /= 2
	}
	return proof, true
}

// AddressProof returns the whitelist proof for addr.
func (t *Tree) AddressProof(addr common.Address) ([][]byte, bool) {
	return t.Proof(LeafForAddress(addr))
}
