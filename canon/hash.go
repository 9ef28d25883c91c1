// Package canon implements the canonical SHA-256 hashing rules the ring
// signature and Merkle commitment share: every big integer is hashed as
// its fixed-width little-endian byte string, with no length prefixes, and
// concatenation order is significant.
package canon

import (
	"crypto/sha256"
	"encoding"
	"math/big"

	"github.com/ckb-ringvote/ringvote/bigint"
)

// HashUint2048 returns H(x) = SHA-256(x as 256-byte little-endian),
// reinterpreted as a Uint2048 without modular reduction.
func HashUint2048(x bigint.Uint2048) bigint.Uint2048 {
	b := x.BytesLE()
	sum := sha256.Sum256(b[:])
	var wide [bigint.ByteLen]byte
	copy(wide[:], sum[:])
	h, _ := bigint.FromBytesLE(wide[:])
	return h
}

// HashBig is HashUint2048 for an arbitrary-precision integer smaller than
// 2^2048, used by the off-chain signer which otherwise works in math/big.
func HashBig(x *big.Int) (*big.Int, error) {
	u, err := bigint.FromBig(x)
	if err != nil {
		return nil, err
	}
	return HashUint2048(u).Big(), nil
}

// NewPrefix starts the message-bound prefix hash
// T = SHA-256(msg || N0 || E0 || ... || N_{m-1} || E_{m-1})
// and returns a Prefix whose internal state can be cheaply cloned for each
// step of the ring recurrence, instead of re-hashing the prefix every time.
func NewPrefix(msg []byte, moduli []bigint.Uint2048, exponents []bigint.Uint2048) Prefix {
	h := sha256.New()
	h.Write(msg)
	for i := range moduli {
		nb := moduli[i].BytesLE()
		h.Write(nb[:])
		eb := exponents[i].BytesLE()
		// exponents are canonically 4 bytes; callers widen a uint32 exponent
		// with key.PublicKey.ExponentUint2048, so only the low 4 bytes are set.
		h.Write(eb[:4])
	}
	state, err := h.(encoding.BinaryMarshaler).MarshalBinary()
	if err != nil {
		panic("canon: sha256 digest does not support state cloning: " + err.Error())
	}
	return Prefix{state: state}
}

// Prefix is the cloned hasher state for T, the per-ring message-bound
// prefix described in spec §4.3.
type Prefix struct {
	state []byte
}

// Step computes h(x, y) = SHA-256(T_state || x_LE_256 || y_LE_256),
// reinterpreted as a Uint2048.
func (p Prefix) Step(x, y bigint.Uint2048) bigint.Uint2048 {
	h := sha256.New()
	if err := h.(encoding.BinaryUnmarshaler).UnmarshalBinary(p.state); err != nil {
		panic("canon: failed to restore prefix state: " + err.Error())
	}
	xb := x.BytesLE()
	h.Write(xb[:])
	yb := y.BytesLE()
	h.Write(yb[:])
	var wide [bigint.ByteLen]byte
	copy(wide[:], h.Sum(nil))
	out, _ := bigint.FromBytesLE(wide[:])
	return out
}
