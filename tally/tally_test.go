package tally

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ckb-ringvote/ringvote/cell"
	"github.com/ckb-ringvote/ringvote/chain"
	"github.com/ckb-ringvote/ringvote/key"
	"github.com/ckb-ringvote/ringvote/merkle"
	"github.com/ckb-ringvote/ringvote/ringsig"
)

type fakeSource struct {
	cells map[chain.OutPoint][]byte
	txs   map[[32]byte]chain.VoteTx
	order [][32]byte
}

func newFakeSource() *fakeSource {
	return &fakeSource{cells: map[chain.OutPoint][]byte{}, txs: map[[32]byte]chain.VoteTx{}}
}

func (f *fakeSource) GetCell(_ context.Context, op chain.OutPoint) ([]byte, error) {
	return f.cells[op], nil
}

func (f *fakeSource) ScanVoteTxHashes(_ context.Context, _ [32]byte, cursor string, limit int) ([][32]byte, string, error) {
	start := 0
	if cursor != "" {
		for i, h := range f.order {
			if string(h[:]) == cursor {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(f.order) {
		end = len(f.order)
	}
	next := ""
	if end < len(f.order) {
		next = string(f.order[end-1][:])
	}
	return append([][32]byte{}, f.order[start:end]...), next, nil
}

func (f *fakeSource) GetTransaction(_ context.Context, h [32]byte) (chain.VoteTx, error) {
	return f.txs[h], nil
}

func (f *fakeSource) SubmitVoteTx(_ context.Context, tx chain.VoteTx) ([32]byte, error) {
	return tx.TxHash, nil
}

type fakeChain struct {
	src      *fakeSource
	candOP   chain.OutPoint
	rootOP   chain.OutPoint
	ring     key.Ring
	privs    []*key.PrivateKey
	tree     *merkle.Tree
	candBytes []byte
	rootCell cell.MerkleRootCell
}

func (f *fakeChain) buildTx(hash byte, signerPos int, candidateID uint32) chain.VoteTx {
	msg := leID(candidateID)
	sig, err := ringsig.Sign(f.ring, f.privs[signerPos], signerPos, msg, rand.Reader)
	if err != nil {
		panic(err)
	}
	proof, err := f.tree.Proof(0)
	if err != nil {
		panic(err)
	}
	w := cell.Witness{Sig: sig, Ring: f.ring, LeafIndex: 0, ProofBytes: merkle.SerializeProof(proof)}
	witnessBytes, err := w.Encode()
	if err != nil {
		panic(err)
	}
	vc := cell.VoteCell{CandidateID: candidateID, KeyImage: sig.I}

	var txHash [32]byte
	txHash[0] = hash
	return chain.VoteTx{
		TxHash:         txHash,
		OutputCellData: vc.Encode(),
		Witness:        witnessBytes,
		CandidateCell:  f.candBytes,
		MerkleRootCell: f.rootCell.Encode(),
		MerkleRootDep:  f.rootOP,
	}
}

func (f *fakeChain) addTx(tx chain.VoteTx) {
	f.src.txs[tx.TxHash] = tx
	f.src.order = append(f.src.order, tx.TxHash)
}

func buildFakeChain(t *testing.T) *fakeChain {
	t.Helper()
	ring := key.Ring{}
	var privs []*key.PrivateKey
	for i := 0; i < 3; i++ {
		priv, err := key.GenerateKey(rand.Reader)
		require.NoError(t, err)
		ring = append(ring, priv.Pub)
		privs = append(privs, priv)
	}
	tree := merkle.Build([]merkle.Hash{ring.LeafHash()})
	candidates := []cell.Candidate{
		{ID: 0x11223344, Description: "A"},
		{ID: 0x55667788, Description: "B"},
	}
	candBytes, err := cell.EncodeCandidateCell(candidates)
	require.NoError(t, err)
	rootCell := cell.MerkleRootCell{Root: tree.Root(), UserCount: 3, LeafCount: 1}

	src := newFakeSource()
	candOP := chain.OutPoint{Index: 0}
	rootOP := chain.OutPoint{Index: 1}
	src.cells[candOP] = candBytes
	src.cells[rootOP] = rootCell.Encode()

	fc := &fakeChain{
		src: src, candOP: candOP, rootOP: rootOP,
		ring: ring, privs: privs, tree: tree,
		candBytes: candBytes, rootCell: rootCell,
	}

	fc.addTx(fc.buildTx(1, 0, 0x11223344))
	fc.addTx(fc.buildTx(2, 1, 0x55667788))
	return fc
}

func leID(id uint32) []byte {
	return cell.VoteCell{CandidateID: id}.Encode()[:cell.CandidateIDLen]
}

func TestTallierHappyPath(t *testing.T) {
	fc := buildFakeChain(t)
	tallier := &Tallier{Source: fc.src, CandidateCellOutPoint: fc.candOP, MerkleRootOutPoint: fc.rootOP}

	result, err := tallier.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Counts[0x11223344])
	require.Equal(t, 1, result.Counts[0x55667788])

	j, err := result.JSON()
	require.NoError(t, err)
	var m map[string]int
	require.NoError(t, json.Unmarshal(j, &m))
	require.Equal(t, 1, m["44332211"])
}

func TestTallierIdempotentAcrossRuns(t *testing.T) {
	fc := buildFakeChain(t)
	tallier := &Tallier{Source: fc.src, CandidateCellOutPoint: fc.candOP, MerkleRootOutPoint: fc.rootOP}

	r1, err := tallier.Run(context.Background())
	require.NoError(t, err)
	r2, err := tallier.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, r1.Counts, r2.Counts)
}

func TestTallierDropsDuplicateKeyImage(t *testing.T) {
	fc := buildFakeChain(t)

	// signer 0 already voted for candidate A (tx hash 0x01); a second,
	// independently valid transaction signed by the same key for
	// candidate B carries the same key image (spec §8 scenario 5).
	dup := fc.buildTx(0x09, 0, 0x55667788)
	fc.addTx(dup)

	tallier := &Tallier{Source: fc.src, CandidateCellOutPoint: fc.candOP, MerkleRootOutPoint: fc.rootOP}
	result, err := tallier.Run(context.Background())
	require.NoError(t, err)
	// candidate B already had one legitimate vote from signer 1; the
	// reused-image duplicate from signer 0 must not add a second one.
	require.Equal(t, 1, result.Counts[0x55667788])
	require.Equal(t, 1, result.Counts[0x11223344])
}
