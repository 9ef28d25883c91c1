package key

import (
	"crypto/sha256"
	"fmt"

	"github.com/ckb-ringvote/ringvote/merkle"
)

// Ring is an ordered slice of public keys a voter proves membership of.
type Ring []PublicKey

// LeafHash returns SHA-256(N0||E0||N1||E1||...), the Merkle leaf the ring
// commits to (spec §3, "Leaf hash").
func (r Ring) LeafHash() merkle.Hash {
	h := sha256.New()
	for _, k := range r {
		n := k.EncodeN()
		h.Write(n[:])
		e := k.EncodeE()
		h.Write(e[:])
	}
	var out merkle.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Partition splits all enrolled public keys into consecutive rings of at
// most chunkSize keys each, in enrollment order. The final ring may be
// shorter than chunkSize.
func Partition(all []PublicKey, chunkSize int) ([]Ring, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("key: chunk size must be positive, got %d", chunkSize)
	}
	var rings []Ring
	for start := 0; start < len(all); start += chunkSize {
		end := start + chunkSize
		if end > len(all) {
			end = len(all)
		}
		rings = append(rings, Ring(all[start:end]))
	}
	return rings, nil
}

// RingFor returns the ring a given voter (by zero-based enrollment index)
// belongs to, along with that voter's index within the ring, and the
// ring's index among all rings.
func RingFor(all []PublicKey, chunkSize, voterIndex int) (ring Ring, ringIndex, position int, err error) {
	if chunkSize <= 0 {
		return nil, 0, 0, fmt.Errorf("key: chunk size must be positive, got %d", chunkSize)
	}
	if voterIndex < 0 || voterIndex >= len(all) {
		return nil, 0, 0, fmt.Errorf("key: voter index %d out of range [0,%d)", voterIndex, len(all))
	}
	ringIndex = voterIndex / chunkSize
	position = voterIndex % chunkSize
	start := ringIndex * chunkSize
	end := start + chunkSize
	if end > len(all) {
		end = len(all)
	}
	return Ring(all[start:end]), ringIndex, position, nil
}

// LeafCount returns ⌈userCount / chunkSize⌉, the number of rings (and
// Merkle leaves) a given enrollment produces.
func LeafCount(userCount, chunkSize int) int {
	if chunkSize <= 0 {
		return 0
	}
	return (userCount + chunkSize - 1) / chunkSize
}
