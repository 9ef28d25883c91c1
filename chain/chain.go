// Package chain defines the minimal abstraction the signer driver and
// tallier use to read cells and transactions off a cell-based UTXO
// chain. Transaction construction, capacity balancing, fee estimation
// and signing for broadcast are out of scope (spec §1, "external
// collaborators") — this package covers reading what is already
// committed, plus handing an already-built vote transaction to the node.
package chain

import "fmt"

// OutPoint identifies a single cell: the hash of the transaction that
// created it, and the output index within that transaction.
type OutPoint struct {
	TxHash [32]byte
	Index  uint32
}

func (o OutPoint) String() string {
	return fmt.Sprintf("%x:%d", o.TxHash, o.Index)
}

// CellDep is a reference to a cell a transaction depends on without
// consuming, used here for the candidate cell and Merkle-root cell
// (spec §4.6, cell-deps 0 and 1).
type CellDep struct {
	OutPoint OutPoint
	DepType  string // "code" or "dep_group", per the underlying chain's convention
}

// VoteTx is the positional view of a vote transaction the verifier and
// tallier both operate on: output cell 0 (the vote cell), witness 0
// (the output-type witness field), and cell-deps 0 and 1 (candidate
// cell, Merkle-root cell) — exactly the four inputs spec §4.6 names by
// position.
type VoteTx struct {
	TxHash           [32]byte
	OutputCellData   []byte // output cell 0
	Witness          []byte // witness 0, output-type field
	CandidateCell    []byte // cell-dep 0
	MerkleRootCell   []byte // cell-dep 1
	MerkleRootDep    OutPoint
	VerifierTypeHash [32]byte
}
