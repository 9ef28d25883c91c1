// Package key holds the RSA-2048 public/private key types enrolled
// voters are represented by, and the ring partitioning rule from spec
// §3: voters are sliced into consecutive, fixed-size rings in enrollment
// order, the last ring possibly short.
package key

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"

	"github.com/ckb-ringvote/ringvote/bigint"
)

// ModulusBytes is the canonical encoded width of an RSA-2048 modulus.
const ModulusBytes = 256

// ExponentBytes is the canonical encoded width of an RSA public exponent.
const ExponentBytes = 4

// PublicKey is the on-chain-facing form of an RSA-2048 public key: a
// fixed-width modulus and a 32-bit exponent. This is the representation
// every cell layout and the ring recurrence operate on.
type PublicKey struct {
	N bigint.Uint2048
	E uint32
}

// NewPublicKey builds a PublicKey from arbitrary-precision RSA parameters,
// rejecting moduli or exponents that don't fit the fixed on-chain widths.
func NewPublicKey(n *big.Int, e int) (PublicKey, error) {
	if e < 0 || e > 1<<32-1 {
		return PublicKey{}, fmt.Errorf("key: exponent %d does not fit in %d bytes", e, ExponentBytes)
	}
	nb := n.Bytes() // big-endian, no leading zeros
	if len(nb) > ModulusBytes {
		return PublicKey{}, fmt.Errorf("key: modulus is %d bytes, exceeds %d", len(nb), ModulusBytes)
	}
	le := make([]byte, ModulusBytes)
	for i, b := range nb {
		le[len(nb)-1-i] = b
	}
	nu, err := bigint.FromBytesLE(le)
	if err != nil {
		return PublicKey{}, err
	}
	return PublicKey{N: nu, E: uint32(e)}, nil
}

// EncodeN returns the canonical 256-byte little-endian modulus.
func (k PublicKey) EncodeN() [ModulusBytes]byte {
	return k.N.BytesLE()
}

// EncodeE returns the canonical 4-byte little-endian exponent.
func (k PublicKey) EncodeE() [ExponentBytes]byte {
	var out [ExponentBytes]byte
	out[0] = byte(k.E)
	out[1] = byte(k.E >> 8)
	out[2] = byte(k.E >> 16)
	out[3] = byte(k.E >> 24)
	return out
}

// ExponentUint2048 widens E into the fixed-width form used by the
// fixed-width modular arithmetic routines in package bigint.
func (k PublicKey) ExponentUint2048() bigint.Uint2048 {
	return bigint.FromUint32(k.E)
}

// DecodePublicKey parses a (modulus, exponent) pair out of their canonical
// little-endian encodings.
func DecodePublicKey(n [ModulusBytes]byte, e [ExponentBytes]byte) (PublicKey, error) {
	nu, err := bigint.FromBytesLE(n[:])
	if err != nil {
		return PublicKey{}, err
	}
	ev := uint32(e[0]) | uint32(e[1])<<8 | uint32(e[2])<<16 | uint32(e[3])<<24
	return PublicKey{N: nu, E: ev}, nil
}

// Big returns the modulus as an arbitrary-precision integer.
func (k PublicKey) Big() *big.Int {
	b := k.N.BytesLE()
	be := make([]byte, ModulusBytes)
	for i := 0; i < ModulusBytes; i++ {
		be[ModulusBytes-1-i] = b[i]
	}
	return new(big.Int).SetBytes(be)
}

// PrivateKey holds the full RSA-2048 private key material a voter uses to
// sign. The signer needs arbitrary-precision arithmetic (spec §9, "use ...
// arbitrary-precision integers in the off-chain signer"), so this wraps
// math/big values directly rather than the fixed-width on-chain form.
type PrivateKey struct {
	Pub PublicKey
	N   *big.Int
	E   int
	D   *big.Int
	P   *big.Int
	Q   *big.Int
}

// GenerateKey creates a fresh RSA-2048 private key with exactly two
// primes, using crypto/rsa — the standard library's RSA implementation is
// the idiomatic choice here since the scheme fixes RSA-2048 exactly and
// no third-party RSA package appears anywhere in the reference corpus.
func GenerateKey(src io.Reader) (*PrivateKey, error) {
	if src == nil {
		src = rand.Reader
	}
	priv, err := rsa.GenerateKey(src, 2048)
	if err != nil {
		return nil, fmt.Errorf("key: generate RSA-2048 key: %w", err)
	}
	return FromRSA(priv)
}

// FromRSA adapts a standard library RSA private key, enforcing the
// two-prime invariant spec §3 requires of the signer.
func FromRSA(priv *rsa.PrivateKey) (*PrivateKey, error) {
	if len(priv.Primes) != 2 {
		return nil, fmt.Errorf("key: expected exactly two primes, got %d", len(priv.Primes))
	}
	priv.Precompute()
	pub, err := NewPublicKey(priv.N, priv.E)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{
		Pub: pub,
		N:   priv.N,
		E:   priv.E,
		D:   priv.D,
		P:   priv.Primes[0],
		Q:   priv.Primes[1],
	}, nil
}

// ToRSA reassembles a standard library private key from the
// arbitrary-precision fields, precomputing CRT values.
func (k *PrivateKey) ToRSA() *rsa.PrivateKey {
	priv := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: k.N, E: k.E},
		D:         k.D,
		Primes:    []*big.Int{k.P, k.Q},
	}
	priv.Precompute()
	return priv
}

// MarshalPEM encodes the private key as a PKCS#1 PEM block, the format
// cmd/ringvote-enroll writes voter key files in.
func (k *PrivateKey) MarshalPEM() []byte {
	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(k.ToRSA()),
	}
	return pem.EncodeToMemory(block)
}

// ParsePrivateKeyPEM decodes a PEM block written by MarshalPEM.
func ParsePrivateKeyPEM(data []byte) (*PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("key: no PEM block found")
	}
	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("key: parse PKCS1 private key: %w", err)
	}
	return FromRSA(priv)
}
