// Package ringsig implements the linkable RSA ring signature described in
// spec §4.3: a signer proves membership in a ring of RSA-2048 public keys
// without revealing which member signed, while emitting a deterministic
// key image that links repeated signatures by the same private key.
//
// Signing works in arbitrary precision (math/big), matching spec §9's
// design note that the off-chain signer is not cycle-constrained.
// Verification works over the fixed-width bigint.Uint2048 type, matching
// the resource discipline the on-chain verifier (package verifier) must
// observe.
package ringsig

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/ckb-ringvote/ringvote/bigint"
	"github.com/ckb-ringvote/ringvote/canon"
	"github.com/ckb-ringvote/ringvote/key"
)

// Signature is a linkable RSA ring signature over a ring of m public
// keys: a seed challenge, a key image, and one response per ring member.
type Signature struct {
	C bigint.Uint2048
	I bigint.Uint2048
	R []bigint.Uint2048
}

func randRange(src io.Reader, n *big.Int) (*big.Int, error) {
	// samples uniformly from [1, n), rejecting the zero value so the
	// result always satisfies spec §3's 0 < r < n invariant.
	for i := 0; i < 64; i++ {
		x, err := rand.Int(src, n)
		if err != nil {
			return nil, err
		}
		if x.Sign() != 0 {
			return x, nil
		}
	}
	return nil, fmt.Errorf("ringsig: failed to sample a nonzero random value")
}

// Sign produces a linkable ring signature of msg under the ring's
// position `signerPos` key, using signer's private key material. ring
// must contain signer's public key at index signerPos. src is the source
// of randomness (crypto/rand.Reader if nil).
func Sign(ring key.Ring, signer *key.PrivateKey, signerPos int, msg []byte, src io.Reader) (Signature, error) {
	if src == nil {
		src = rand.Reader
	}
	m := len(ring)
	if signerPos < 0 || signerPos >= m {
		return Signature{}, fmt.Errorf("ringsig: signer position %d out of range [0,%d)", signerPos, m)
	}
	if signer.P == nil || signer.Q == nil {
		return Signature{}, fmt.Errorf("ringsig: private key does not hold exactly two primes")
	}

	n := signer.N
	a, err := randRange(src, n)
	if err != nil {
		return Signature{}, fmt.Errorf("ringsig: sample seed: %w", err)
	}

	hN, err := canon.HashBig(n)
	if err != nil {
		return Signature{}, fmt.Errorf("ringsig: hash signer modulus: %w", err)
	}

	// key image I = (H(n)^d * p) mod n, independent of the random seed a.
	image := new(big.Int).Exp(hN, signer.D, n)
	image.Mul(image, signer.P)
	image.Mod(image, n)

	moduli := make([]bigint.Uint2048, m)
	exponents := make([]bigint.Uint2048, m)
	for i, pk := range ring {
		moduli[i] = pk.N
		exponents[i] = pk.ExponentUint2048()
	}
	prefix := canon.NewPrefix(msg, moduli, exponents)

	step := func(x, y *big.Int) (*big.Int, error) {
		xu, err := bigint.FromBig(new(big.Int).Mod(x, twoPow2048))
		if err != nil {
			return nil, err
		}
		yu, err := bigint.FromBig(new(big.Int).Mod(y, twoPow2048))
		if err != nil {
			return nil, err
		}
		return prefix.Step(xu, yu).Big(), nil
	}

	r := make([]*big.Int, m)
	c := make([]*big.Int, m)

	qe := new(big.Int).Exp(signer.Q, big.NewInt(int64(signer.E)), n)
	sec1 := new(big.Int).Mul(a, qe)
	sec1.Mod(sec1, n)
	sec2 := new(big.Int).Mul(sec1, hN)
	sec2.Mod(sec2, n)
	next := (signerPos + 1) % m
	c[next], err = step(sec1, sec2)
	if err != nil {
		return Signature{}, err
	}

	for i := next; i != signerPos; i = (i + 1) % m {
		ni := ring[i].Big()
		ei := big.NewInt(int64(ring[i].E))
		ri, err := randRange(src, ni)
		if err != nil {
			return Signature{}, fmt.Errorf("ringsig: sample r[%d]: %w", i, err)
		}
		r[i] = ri

		rPowE := new(big.Int).Exp(ri, ei, ni)
		crpe := new(big.Int).Mul(c[i], rPowE)
		crpe.Mod(crpe, ni)

		hNi, err := canon.HashBig(ni)
		if err != nil {
			return Signature{}, err
		}
		chPiMulR := new(big.Int).Mul(c[i], hNi)
		chPiMulR.Add(chPiMulR, image)
		chPiMulR.Mul(chPiMulR, rPowE)
		chPiMulR.Mod(chPiMulR, ni)

		cNext, err := step(crpe, chPiMulR)
		if err != nil {
			return Signature{}, err
		}
		c[(i+1)%m] = cNext
	}

	phi := new(big.Int).Mul(
		new(big.Int).Sub(signer.P, big.NewInt(1)),
		new(big.Int).Sub(signer.Q, big.NewInt(1)),
	)
	// See DESIGN.md: this exponent (phi-1, an inverse-like quantity) is
	// taken verbatim from the reference implementation after a
	// second-source derivation check, per spec §9's open question.
	exp := new(big.Int).Sub(phi, big.NewInt(1))
	inner := new(big.Int).Mul(a, new(big.Int).Exp(c[signerPos], exp, n))
	rs := new(big.Int).Exp(inner, signer.D, n)
	rs.Mul(rs, signer.Q)
	rs.Mod(rs, n)
	r[signerPos] = rs

	sig := Signature{R: make([]bigint.Uint2048, m)}
	sig.C, err = bigint.FromBig(c[0])
	if err != nil {
		return Signature{}, err
	}
	sig.I, err = bigint.FromBig(image)
	if err != nil {
		return Signature{}, err
	}
	for i, v := range r {
		sig.R[i], err = bigint.FromBig(v)
		if err != nil {
			return Signature{}, fmt.Errorf("ringsig: encode r[%d]: %w", i, err)
		}
	}
	return sig, nil
}

var twoPow2048 = new(big.Int).Lsh(big.NewInt(1), 2048)

// Verify checks a ring signature per spec §4.3's recurrence, using the
// fixed-width arithmetic of package bigint so verification has the same
// shape on-chain and off-chain. It returns ErrBadSignature if the
// recurrence does not close.
func Verify(sig Signature, ring key.Ring, msg []byte) error {
	m := len(ring)
	if len(sig.R) != m {
		return fmt.Errorf("ringsig: expected %d responses, got %d", m, len(sig.R))
	}

	moduli := make([]bigint.Uint2048, m)
	exponents := make([]bigint.Uint2048, m)
	for i, pk := range ring {
		moduli[i] = pk.N
		exponents[i] = pk.ExponentUint2048()
	}
	prefix := canon.NewPrefix(msg, moduli, exponents)

	c := sig.C
	for i := 0; i < m; i++ {
		n := ring[i].N
		e := uint64(ring[i].E)
		rPowE := bigint.PowMod(sig.R[i], e, n)
		a := bigint.MulMod(c, rPowE, n)
		hNi := canon.HashUint2048(n)
		b := bigint.MulMod(bigint.AddMod(bigint.MulMod(c, hNi, n), sig.I, n), rPowE, n)
		c = prefix.Step(a, b)
	}
	if c != sig.C {
		return ErrBadSignature
	}
	return nil
}
