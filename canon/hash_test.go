package canon

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ckb-ringvote/ringvote/bigint"
)

func TestHashUint2048Deterministic(t *testing.T) {
	n := bigint.One()
	require.Equal(t, HashUint2048(n), HashUint2048(n))
	require.NotEqual(t, HashUint2048(bigint.Zero()), HashUint2048(bigint.One()))
}

func TestPrefixStepDeterministic(t *testing.T) {
	moduli := []bigint.Uint2048{bigint.One(), bigint.Zero()}
	exponents := []bigint.Uint2048{bigint.FromUint32(65537), bigint.FromUint32(3)}

	p1 := NewPrefix([]byte{1, 2, 3, 4}, moduli, exponents)
	p2 := NewPrefix([]byte{1, 2, 3, 4}, moduli, exponents)

	a := bigint.FromUint32(7)
	b := bigint.FromUint32(11)
	require.Equal(t, p1.Step(a, b), p2.Step(a, b))

	p3 := NewPrefix([]byte{1, 2, 3, 5}, moduli, exponents)
	require.NotEqual(t, p1.Step(a, b), p3.Step(a, b))
}

func TestPrefixStepClonesIndependently(t *testing.T) {
	moduli := []bigint.Uint2048{bigint.One()}
	exponents := []bigint.Uint2048{bigint.FromUint32(65537)}
	p := NewPrefix([]byte("msg"), moduli, exponents)

	first := p.Step(bigint.FromUint32(1), bigint.FromUint32(2))
	// Calling Step again from the same Prefix must not carry state over
	// from the previous call.
	second := p.Step(bigint.FromUint32(1), bigint.FromUint32(2))
	require.Equal(t, first, second)
}
