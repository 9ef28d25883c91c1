package merkle

import (
	"crypto/sha256"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func leafFor(i int) Hash {
	return sha256.Sum256([]byte{byte(i)})
}

func TestBuildProofVerifyAllSizes(t *testing.T) {
	for n := 1; n <= 17; n++ {
		leaves := make([]Hash, n)
		for i := range leaves {
			leaves[i] = leafFor(i)
		}
		tree := Build(leaves)
		root := tree.Root()
		require.Equal(t, n, tree.LeafCount())

		for i := 0; i < n; i++ {
			proof, err := tree.Proof(i)
			require.NoError(t, err)
			require.True(t, Verify(proof, root, i, leaves[i], n), "size %d index %d", n, i)
		}
	}
}

func TestVerifyRejectsTamperedSibling(t *testing.T) {
	leaves := make([]Hash, 6)
	for i := range leaves {
		leaves[i] = leafFor(i)
	}
	tree := Build(leaves)
	root := tree.Root()

	proof, err := tree.Proof(2)
	require.NoError(t, err)
	require.NotEmpty(t, proof)

	tampered := make([]Hash, len(proof))
	copy(tampered, proof)
	tampered[0][0] ^= 0x01

	require.True(t, Verify(proof, root, 2, leaves[2], len(leaves)))
	require.False(t, Verify(tampered, root, 2, leaves[2], len(leaves)))
}

func TestVerifyRejectsWrongIndex(t *testing.T) {
	leaves := make([]Hash, 5)
	for i := range leaves {
		leaves[i] = leafFor(i)
	}
	tree := Build(leaves)
	root := tree.Root()
	proof, err := tree.Proof(0)
	require.NoError(t, err)
	require.False(t, Verify(proof, root, 1, leaves[0], len(leaves)))
}

func TestProofSerializationRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	leaves := make([]Hash, 9)
	for i := range leaves {
		for j := range leaves[i] {
			leaves[i][j] = byte(r.Intn(256))
		}
	}
	tree := Build(leaves)
	proof, err := tree.Proof(8)
	require.NoError(t, err)

	buf := SerializeProof(proof)
	back, err := DeserializeProof(buf)
	require.NoError(t, err)
	require.Equal(t, proof, back)
	require.True(t, Verify(back, tree.Root(), 8, leaves[8], len(leaves)))
}

func TestDeserializeProofBadLength(t *testing.T) {
	_, err := DeserializeProof(make([]byte, HashLen+1))
	require.Error(t, err)
}

func TestShortLastRingThreeLeaves(t *testing.T) {
	// N=31 voters, k=15 -> ring sizes 15,15,1 -> 3 leaves, last one alone.
	leaves := []Hash{leafFor(0), leafFor(1), leafFor(2)}
	tree := Build(leaves)
	root := tree.Root()
	for i, leaf := range leaves {
		proof, err := tree.Proof(i)
		require.NoError(t, err)
		require.True(t, Verify(proof, root, i, leaf, len(leaves)))
	}
}
