package bigint

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randUint2048(t *testing.T, r *rand.Rand, max *big.Int) (Uint2048, *big.Int) {
	t.Helper()
	v := new(big.Int).Rand(r, max)
	b := v.Bytes()
	le := make([]byte, ByteLen)
	for i, c := range b {
		le[ByteLen-len(b)+i] = c
	}
	// convert the big-endian big.Int bytes we just placed at the tail into
	// a little-endian fixed buffer
	for i, j := 0, ByteLen-1; i < j; i, j = i+1, j-1 {
		le[i], le[j] = le[j], le[i]
	}
	u, err := FromBytesLE(le)
	require.NoError(t, err)
	return u, v
}

func toBig(u Uint2048) *big.Int {
	buf := u.BytesLE()
	be := make([]byte, ByteLen)
	for i := 0; i < ByteLen; i++ {
		be[ByteLen-1-i] = buf[i]
	}
	return new(big.Int).SetBytes(be)
}

func TestBytesRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	mod := new(big.Int).Lsh(big.NewInt(1), 2048)
	for i := 0; i < 20; i++ {
		u, v := randUint2048(t, r, mod)
		require.Equal(t, 0, toBig(u).Cmp(v))
	}
}

func TestMulModAgainstMathBig(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		n, nBig := randUint2048(t, r, new(big.Int).Lsh(big.NewInt(1), 2047))
		a, aBig := randUint2048(t, r, nBig)
		b, bBig := randUint2048(t, r, nBig)

		got := MulMod(a, b, n)
		want := new(big.Int).Mod(new(big.Int).Mul(aBig, bBig), nBig)
		require.Equal(t, 0, toBig(got).Cmp(want), "case %d", i)
	}
}

func TestAddModAgainstMathBig(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		n, nBig := randUint2048(t, r, new(big.Int).Lsh(big.NewInt(1), 2047))
		a, aBig := randUint2048(t, r, nBig)
		b, bBig := randUint2048(t, r, nBig)

		got := AddMod(a, b, n)
		want := new(big.Int).Mod(new(big.Int).Add(aBig, bBig), nBig)
		require.Equal(t, 0, toBig(got).Cmp(want), "case %d", i)
	}
}

// TestAddModOperandExceedsModulus covers the case ringsig.Verify relies
// on: the key image is only reduced modulo the signer's own modulus, so
// AddMod must accept an operand that is >= n, not just values already
// reduced mod n.
func TestAddModOperandExceedsModulus(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	for i := 0; i < 50; i++ {
		n, nBig := randUint2048(t, r, new(big.Int).Lsh(big.NewInt(1), 2047))
		a, aBig := randUint2048(t, r, nBig)
		// b is drawn from a range well beyond n, up to 2^2048.
		b, bBig := randUint2048(t, r, new(big.Int).Lsh(big.NewInt(1), 2048))

		got := AddMod(a, b, n)
		want := new(big.Int).Mod(new(big.Int).Add(aBig, bBig), nBig)
		require.Equal(t, 0, toBig(got).Cmp(want), "case %d", i)
	}
}

func TestPowModAgainstMathBig(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	for i := 0; i < 20; i++ {
		n, nBig := randUint2048(t, r, new(big.Int).Lsh(big.NewInt(1), 2047))
		base, baseBig := randUint2048(t, r, nBig)
		exp := r.Uint64() % 65537

		got := PowMod(base, exp, n)
		want := new(big.Int).Exp(baseBig, new(big.Int).SetUint64(exp), nBig)
		require.Equal(t, 0, toBig(got).Cmp(want), "case %d", i)
	}
}

func TestCmpAndIsZero(t *testing.T) {
	require.True(t, Zero().IsZero())
	require.False(t, One().IsZero())
	require.Equal(t, -1, Zero().Cmp(One()))
	require.Equal(t, 1, One().Cmp(Zero()))
	require.Equal(t, 0, One().Cmp(One()))
}

func TestFromBytesLEWrongLength(t *testing.T) {
	_, err := FromBytesLE(make([]byte, 10))
	require.Error(t, err)
}
