// Package merkle builds and verifies the SHA-256 commitment over ring
// group hashes described in spec §4.4. The construction promotes a lone
// node in an odd-length layer unchanged, rather than duplicating it, and
// proofs are serialized as a flat list of sibling hashes in direct
// (bottom-up) order with no accompanying position bits — the index and
// leaf count carried alongside the proof are enough to reconstruct which
// side each sibling belongs on.
package merkle

import "crypto/sha256"

// HashLen is the width of a node hash.
const HashLen = sha256.Size

// Hash is a single tree node hash.
type Hash [HashLen]byte

// Tree is a materialized Merkle tree, bottom layer first.
type Tree struct {
	layers [][]Hash
}

func hashPair(left, right Hash) Hash {
	h := sha256.New()
	h.Write(left[:])
	h.Write(right[:])
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Build constructs a tree over the given leaf hashes. leaves must be
// non-empty.
func Build(leaves []Hash) *Tree {
	layers := make([][]Hash, 0, 1)
	cur := make([]Hash, len(leaves))
	copy(cur, leaves)
	layers = append(layers, cur)
	for len(cur) > 1 {
		next := make([]Hash, 0, (len(cur)+1)/2)
		for i := 0; i < len(cur); i += 2 {
			if i+1 < len(cur) {
				next = append(next, hashPair(cur[i], cur[i+1]))
			} else {
				// lone node in an odd layer: promote unchanged.
				next = append(next, cur[i])
			}
		}
		layers = append(layers, next)
		cur = next
	}
	return &Tree{layers: layers}
}

// Root returns the tree's root hash.
func (t *Tree) Root() Hash {
	top := t.layers[len(t.layers)-1]
	return top[0]
}

// LeafCount returns the number of leaves the tree was built from.
func (t *Tree) LeafCount() int {
	return len(t.layers[0])
}

// Proof returns the sibling hashes needed to reconstruct the root from
// the leaf at index, in direct (bottom-up) order.
func (t *Tree) Proof(index int) ([]Hash, error) {
	if index < 0 || index >= t.LeafCount() {
		return nil, errIndexRange
	}
	var proof []Hash
	idx := index
	for layer := 0; layer < len(t.layers)-1; layer++ {
		cur := t.layers[layer]
		if idx%2 == 0 {
			if idx+1 < len(cur) {
				proof = append(proof, cur[idx+1])
			}
			// else: idx is the lone promoted node at this layer, no sibling.
		} else {
			proof = append(proof, cur[idx-1])
		}
		idx /= 2
	}
	return proof, nil
}

// Verify reconstructs the root from leafHash using proof and reports
// whether it matches root. leafCount must be the number of leaves the
// original tree was built from.
func Verify(proof []Hash, root Hash, index int, leafHash Hash, leafCount int) bool {
	if index < 0 || index >= leafCount {
		return false
	}
	cur := leafHash
	idx := index
	count := leafCount
	used := 0
	for count > 1 {
		if idx%2 == 0 {
			if idx+1 < count {
				if used >= len(proof) {
					return false
				}
				cur = hashPair(cur, proof[used])
				used++
			}
		} else {
			if used >= len(proof) {
				return false
			}
			cur = hashPair(proof[used], cur)
			used++
		}
		idx /= 2
		count = (count + 1) / 2
	}
	return used == len(proof) && cur == root
}

// SerializeProof concatenates the sibling hashes in direct order, the
// wire format carried in the vote witness (spec §3).
func SerializeProof(proof []Hash) []byte {
	out := make([]byte, len(proof)*HashLen)
	for i, h := range proof {
		copy(out[i*HashLen:], h[:])
	}
	return out
}

// DeserializeProof splits a flat byte string back into sibling hashes. It
// fails if the length is not a multiple of HashLen.
func DeserializeProof(b []byte) ([]Hash, error) {
	if len(b)%HashLen != 0 {
		return nil, errProofLength
	}
	n := len(b) / HashLen
	out := make([]Hash, n)
	for i := 0; i < n; i++ {
		copy(out[i][:], b[i*HashLen:(i+1)*HashLen])
	}
	return out, nil
}
