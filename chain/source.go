package chain

import "context"

// Source is the chain abstraction the signer driver and tallier depend
// on. A concrete implementation (HTTPSource here; a real deployment
// would likely also balance capacity and estimate fees, both out of
// scope per spec §1) answers two read questions — what does a given
// cell currently hold, and which vote transactions exist — and accepts
// a built vote transaction for submission.
type Source interface {
	// GetCell fetches the live data of a single cell by outpoint, used
	// to read the candidate cell and Merkle-root cell.
	GetCell(ctx context.Context, op OutPoint) ([]byte, error)

	// ScanVoteTxHashes returns up to limit transaction hashes whose
	// output cell 0 carries the given verifier type-script hash, in
	// ascending chain order starting after cursor ("" for the
	// beginning). It returns the cursor to resume from for the next
	// batch, or "" when the scan is exhausted (spec §4.8 step 3: "in
	// batches of ~500"). Bodies are fetched separately, in parallel,
	// via GetTransaction — this mirrors spec §5's "batches RPC calls
	// sequentially; inside each batch, fetches ... bodies in parallel".
	ScanVoteTxHashes(ctx context.Context, verifierTypeHash [32]byte, cursor string, limit int) (hashes [][32]byte, nextCursor string, err error)

	// GetTransaction fetches the full positional view of a single vote
	// transaction by hash.
	GetTransaction(ctx context.Context, txHash [32]byte) (VoteTx, error)

	// SubmitVoteTx broadcasts a signer-built vote transaction and
	// returns its hash. Real capacity/fee handling lives in whatever
	// wraps Source in production; this method only exists so
	// cmd/ringvote-vote's -rpc mode has somewhere to send the
	// transaction it built.
	SubmitVoteTx(ctx context.Context, tx VoteTx) ([32]byte, error)
}
