// Package signer implements the off-chain signer driver (spec §4.7):
// given a voter's private key and chosen candidate, build the vote-cell
// and witness bytes a transaction submits to the verifier.
package signer

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/ckb-ringvote/ringvote/cell"
	"github.com/ckb-ringvote/ringvote/key"
	"github.com/ckb-ringvote/ringvote/log"
	"github.com/ckb-ringvote/ringvote/merkle"
	"github.com/ckb-ringvote/ringvote/ringsig"
)

// Vote is the vote-cell and witness pair a voter submits on-chain.
type Vote struct {
	Cell    cell.VoteCell
	Witness cell.Witness
}

// BuildVote runs spec §4.7's procedure for a single voter: slice their
// ring out of the full enrollment, sign the chosen candidate, and attach
// the Merkle proof for that ring.
func BuildVote(allPublicKeys []key.PublicKey, chunkSize int, tree *merkle.Tree, voterIndex int, priv *key.PrivateKey, candidateID uint32, src io.Reader) (Vote, error) {
	ring, ringIndex, position, err := key.RingFor(allPublicKeys, chunkSize, voterIndex)
	if err != nil {
		return Vote{}, fmt.Errorf("signer: %w", err)
	}

	msg := candidateIDBytes(candidateID)
	sig, err := ringsig.Sign(ring, priv, position, msg, src)
	if err != nil {
		return Vote{}, fmt.Errorf("signer: sign voter %d: %w", voterIndex, err)
	}

	proof, err := tree.Proof(ringIndex)
	if err != nil {
		return Vote{}, fmt.Errorf("signer: merkle proof for ring %d: %w", ringIndex, err)
	}

	return Vote{
		Cell: cell.VoteCell{CandidateID: candidateID, KeyImage: sig.I},
		Witness: cell.Witness{
			Sig:        sig,
			Ring:       ring,
			LeafIndex:  uint32(ringIndex),
			ProofBytes: merkle.SerializeProof(proof),
		},
	}, nil
}

func candidateIDBytes(id uint32) []byte {
	return cell.VoteCell{CandidateID: id}.Encode()[:cell.CandidateIDLen]
}

// Task is one voter's signing request for a parallel driver run.
type Task struct {
	VoterIndex  int
	PrivateKey  *key.PrivateKey
	CandidateID uint32
}

// Result pairs a Task with its outcome.
type Result struct {
	Task Task
	Vote Vote
	Err  error
}

// RunPool drives BuildVote for every task over a bounded worker pool
// (spec §5: "embarrassingly parallel over independent voters ... no
// shared mutable state beyond a progress counter"). A per-task error
// does not abort the others; all per-task errors are returned together
// as a single aggregate error alongside the full results slice so the
// caller can inspect which voters succeeded.
func RunPool(ctx context.Context, allPublicKeys []key.PublicKey, chunkSize int, tree *merkle.Tree, tasks []Task, concurrency int, logger log.Logger) ([]Result, error) {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	results := make([]Result, len(tasks))
	var done int64

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			vote, err := BuildVote(allPublicKeys, chunkSize, tree, task.VoterIndex, task.PrivateKey, task.CandidateID, rand.Reader)
			results[i] = Result{Task: task, Vote: vote, Err: err}
			n := atomic.AddInt64(&done, 1)
			logger.Debugw("signer: voter signed", "voter_index", task.VoterIndex, "progress", n, "total", len(tasks))
			return nil
		})
	}

	// errgroup's own error short-circuits on context cancellation only;
	// per-task signing failures are carried in Result.Err, not returned
	// from the goroutine, so every voter gets a chance to run.
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("signer: worker pool: %w", err)
	}

	var merr *multierror.Error
	for _, r := range results {
		if r.Err != nil {
			merr = multierror.Append(merr, r.Err)
		}
	}
	return results, merr.ErrorOrNil()
}
