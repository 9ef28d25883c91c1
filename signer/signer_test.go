package signer

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ckb-ringvote/ringvote/cell"
	"github.com/ckb-ringvote/ringvote/chain"
	"github.com/ckb-ringvote/ringvote/key"
	"github.com/ckb-ringvote/ringvote/merkle"
	"github.com/ckb-ringvote/ringvote/verifier"
)

func enroll(t *testing.T, n, chunkSize int) ([]key.PublicKey, []*key.PrivateKey, *merkle.Tree) {
	t.Helper()
	all := make([]key.PublicKey, n)
	privs := make([]*key.PrivateKey, n)
	for i := 0; i < n; i++ {
		priv, err := key.GenerateKey(rand.Reader)
		require.NoError(t, err)
		all[i] = priv.Pub
		privs[i] = priv
	}
	rings, err := key.Partition(all, chunkSize)
	require.NoError(t, err)
	leaves := make([]merkle.Hash, len(rings))
	for i, r := range rings {
		leaves[i] = r.LeafHash()
	}
	return all, privs, merkle.Build(leaves)
}

func TestBuildVoteVerifiesEndToEnd(t *testing.T) {
	all, privs, tree := enroll(t, 31, 15)

	vote, err := BuildVote(all, 15, tree, 16, privs[16], 0x11223344, rand.Reader)
	require.NoError(t, err)

	candBytes, err := cell.EncodeCandidateCell([]cell.Candidate{{ID: 0x11223344, Description: "A"}})
	require.NoError(t, err)
	rootCell := cell.MerkleRootCell{Root: tree.Root(), UserCount: 31, LeafCount: uint32(tree.LeafCount())}
	witnessBytes, err := vote.Witness.Encode()
	require.NoError(t, err)

	tx := chain.VoteTx{
		OutputCellData: vote.Cell.Encode(),
		Witness:        witnessBytes,
		CandidateCell:  candBytes,
		MerkleRootCell: rootCell.Encode(),
	}
	require.NoError(t, verifier.Verify(tx))
}

func TestBuildVoteShortLastRing(t *testing.T) {
	all, privs, tree := enroll(t, 31, 15)
	// voter 30 is alone in the third, one-member ring.
	vote, err := BuildVote(all, 15, tree, 30, privs[30], 0x11223344, rand.Reader)
	require.NoError(t, err)
	require.Equal(t, uint32(2), vote.Witness.LeafIndex)
	require.Len(t, vote.Witness.Ring, 1)
}

func TestRunPoolSignsAllVotersConcurrently(t *testing.T) {
	all, privs, tree := enroll(t, 10, 5)
	tasks := make([]Task, len(privs))
	for i, p := range privs {
		tasks[i] = Task{VoterIndex: i, PrivateKey: p, CandidateID: 0x11223344}
	}

	results, err := RunPool(context.Background(), all, 5, tree, tasks, 4, nil)
	require.NoError(t, err)
	require.Len(t, results, len(tasks))

	seen := make(map[string]bool)
	for _, r := range results {
		require.NoError(t, r.Err)
		img := r.Vote.Cell.KeyImage
		imgKey := string(img.BytesLE()[:])
		require.False(t, seen[imgKey], "each voter must produce a distinct key image")
		seen[imgKey] = true
	}
}

func TestRunPoolReportsPerTaskFailure(t *testing.T) {
	all, privs, tree := enroll(t, 4, 2)
	tasks := []Task{
		{VoterIndex: 0, PrivateKey: privs[0], CandidateID: 1},
		{VoterIndex: 99, PrivateKey: privs[1], CandidateID: 1}, // out of range
	}

	results, err := RunPool(context.Background(), all, 2, tree, tasks, 2, nil)
	require.Error(t, err)
	require.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)
}
