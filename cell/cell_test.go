package cell

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ckb-ringvote/ringvote/bigint"
	"github.com/ckb-ringvote/ringvote/key"
	"github.com/ckb-ringvote/ringvote/merkle"
	"github.com/ckb-ringvote/ringvote/ringsig"
)

func TestCandidateCellRoundTrip(t *testing.T) {
	in := []Candidate{
		{ID: 0x11223344, Description: "A"},
		{ID: 0x55667788, Description: "B"},
	}
	b, err := EncodeCandidateCell(in)
	require.NoError(t, err)
	require.Len(t, b, 2+2*CandidateRecordLen)

	out, err := DecodeCandidateCell(b)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestCandidateCellRejectsDuplicateID(t *testing.T) {
	_, err := EncodeCandidateCell([]Candidate{
		{ID: 1, Description: "A"},
		{ID: 1, Description: "B"},
	})
	require.ErrorIs(t, err, ErrDuplicateCandidateID)
}

func TestCandidateCellRejectsOversizeDescription(t *testing.T) {
	big := make([]byte, DescriptionLen)
	for i := range big {
		big[i] = 'x'
	}
	_, err := EncodeCandidateCell([]Candidate{{ID: 1, Description: string(big)}})
	require.ErrorIs(t, err, ErrDescriptionTooLong)
}

func TestDecodeCandidateCellRejectsLengthMismatch(t *testing.T) {
	b, err := EncodeCandidateCell([]Candidate{{ID: 1, Description: "A"}})
	require.NoError(t, err)
	_, err = DecodeCandidateCell(b[:len(b)-1])
	require.ErrorIs(t, err, ErrBadCandidateCellFormat)
}

func TestMerkleRootCellRoundTrip(t *testing.T) {
	var root merkle.Hash
	root[0] = 0xAB
	in := MerkleRootCell{Root: root, UserCount: 31, LeafCount: 3}
	b := in.Encode()
	require.Len(t, b, MerkleRootCellLen)

	out, err := DecodeMerkleRootCell(b)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestDecodeMerkleRootCellRejectsWrongLength(t *testing.T) {
	_, err := DecodeMerkleRootCell(make([]byte, MerkleRootCellLen-1))
	require.ErrorIs(t, err, ErrBadPublicKeyCellFormat)
}

func TestVoteCellRoundTrip(t *testing.T) {
	in := VoteCell{CandidateID: 0xDEADBEEF, KeyImage: bigint.FromUint32(42)}
	b := in.Encode()
	require.Len(t, b, VoteCellLen)

	out, err := DecodeVoteCell(b)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestDecodeVoteCellRejectsWrongLength(t *testing.T) {
	_, err := DecodeVoteCell(make([]byte, VoteCellLen-1))
	require.ErrorIs(t, err, ErrBadVoteCellFormat)
}

func TestWitnessRoundTrip(t *testing.T) {
	ring := key.Ring{}
	var privs []*key.PrivateKey
	for i := 0; i < 3; i++ {
		priv, err := key.GenerateKey(rand.Reader)
		require.NoError(t, err)
		ring = append(ring, priv.Pub)
		privs = append(privs, priv)
	}
	msg := []byte{0x44, 0x33, 0x22, 0x11}
	sig, err := ringsig.Sign(ring, privs[1], 1, msg, rand.Reader)
	require.NoError(t, err)

	tree := merkle.Build([]merkle.Hash{ring.LeafHash()})
	proof, err := tree.Proof(0)
	require.NoError(t, err)

	w := Witness{Sig: sig, Ring: ring, LeafIndex: 0, ProofBytes: merkle.SerializeProof(proof)}
	b, err := w.Encode()
	require.NoError(t, err)
	require.Equal(t, EncodedLen(len(ring), len(w.ProofBytes)), len(b))

	out, err := DecodeWitness(b)
	require.NoError(t, err)
	require.Equal(t, sig.C, out.Sig.C)
	require.Equal(t, sig.R, out.Sig.R)
	require.Equal(t, ring, out.Ring)
	require.Equal(t, uint32(0), out.LeafIndex)
	require.Equal(t, w.ProofBytes, out.ProofBytes)
}

func TestDecodeWitnessRejectsTruncatedBuffer(t *testing.T) {
	ring := key.Ring{{E: 65537, N: bigint.One()}}
	sig := ringsig.Signature{C: bigint.One(), I: bigint.Zero(), R: []bigint.Uint2048{bigint.One()}}
	w := Witness{Sig: sig, Ring: ring, LeafIndex: 0, ProofBytes: nil}
	b, err := w.Encode()
	require.NoError(t, err)

	_, err = DecodeWitness(b[:len(b)-1])
	require.ErrorIs(t, err, ErrBadWitness)
}

func TestDecodeWitnessRejectsProofLengthMismatch(t *testing.T) {
	ring := key.Ring{{E: 65537, N: bigint.One()}}
	sig := ringsig.Signature{C: bigint.One(), I: bigint.Zero(), R: []bigint.Uint2048{bigint.One()}}
	w := Witness{Sig: sig, Ring: ring, LeafIndex: 0, ProofBytes: make([]byte, merkle.HashLen)}
	b, err := w.Encode()
	require.NoError(t, err)

	// corrupt the declared proof_len field to disagree with the actual
	// trailing bytes.
	b[len(b)-merkle.HashLen-1] ^= 0xFF
	_, err = DecodeWitness(b)
	require.ErrorIs(t, err, ErrBadWitness)
}
