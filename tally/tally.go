// Package tally implements the off-chain tallier (spec §4.8): scan
// accepted vote transactions, validate and deduplicate by key image,
// and count per candidate.
package tally

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/ckb-ringvote/ringvote/bigint"
	"github.com/ckb-ringvote/ringvote/cell"
	"github.com/ckb-ringvote/ringvote/chain"
	"github.com/ckb-ringvote/ringvote/log"
	"github.com/ckb-ringvote/ringvote/metrics"
	"github.com/ckb-ringvote/ringvote/verifier"
)

// DefaultBatchSize matches spec §4.8 step 3's "in batches of ~500".
const DefaultBatchSize = 500

// Tallier scans a chain.Source for vote transactions carrying a given
// verifier type-script hash, validates each one, and counts accepted,
// non-duplicate votes per candidate.
type Tallier struct {
	Source                chain.Source
	VerifierTypeHash      [32]byte
	CandidateCellOutPoint chain.OutPoint
	MerkleRootOutPoint    chain.OutPoint
	BatchSize             int
	Logger                log.Logger

	// FailureMonitor, if set, is told about every failed RPC call this
	// Tallier makes against Source so an operator alert can fire on a
	// sustained connectivity problem rather than a single blip.
	FailureMonitor *metrics.FetchFailureMonitor
}

func (t *Tallier) reportFailure(call string) {
	if t.FailureMonitor != nil {
		t.FailureMonitor.ReportFailure(call)
	}
}

// Result is the outcome of a tally run: per-candidate counts, plus
// enough context to render both the table and JSON formats spec §6
// describes.
type Result struct {
	Order      []uint32
	Candidates map[uint32]string
	Counts     map[uint32]int
}

func (t *Tallier) logger() log.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return log.DefaultLogger()
}

func (t *Tallier) batchSize() int {
	if t.BatchSize > 0 {
		return t.BatchSize
	}
	return DefaultBatchSize
}

// Run executes the full scan-validate-dedup-count procedure (spec
// §4.8). Parallel per-batch transaction fetch joins before any
// dedup/count mutation happens, so chain order — not goroutine
// completion order — determines which of two votes sharing a key image
// is "first seen" (spec §5, "Ordering").
func (t *Tallier) Run(ctx context.Context) (*Result, error) {
	timer := prometheus.NewTimer(metrics.TallyRunDuration)
	defer timer.ObserveDuration()

	candBytes, err := t.Source.GetCell(ctx, t.CandidateCellOutPoint)
	if err != nil {
		return nil, fmt.Errorf("tally: fetch candidate cell: %w", err)
	}
	candidates, err := cell.DecodeCandidateCell(candBytes)
	if err != nil {
		return nil, fmt.Errorf("tally: decode candidate cell: %w", err)
	}

	result := &Result{
		Candidates: make(map[uint32]string, len(candidates)),
		Counts:     make(map[uint32]int, len(candidates)),
	}
	for _, c := range candidates {
		result.Order = append(result.Order, c.ID)
		result.Candidates[c.ID] = c.Description
		result.Counts[c.ID] = 0
	}

	seenImages := make(map[bigint.Uint2048]struct{})
	cursor := ""
	for {
		hashes, next, err := t.Source.ScanVoteTxHashes(ctx, t.VerifierTypeHash, cursor, t.batchSize())
		if err != nil {
			t.reportFailure("scan_vote_tx_hashes")
			return nil, fmt.Errorf("tally: scan vote transactions: %w", err)
		}
		if len(hashes) == 0 {
			break
		}

		txs := make([]chain.VoteTx, len(hashes))
		g, gctx := errgroup.WithContext(ctx)
		for i, h := range hashes {
			i, h := i, h
			g.Go(func() error {
				tx, err := t.Source.GetTransaction(gctx, h)
				if err != nil {
					t.reportFailure(fmt.Sprintf("get_transaction:%x", h))
					return fmt.Errorf("fetch tx %x: %w", h, err)
				}
				txs[i] = tx
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("tally: parallel fetch: %w", err)
		}

		for _, tx := range txs {
			t.applyTx(result, seenImages, tx)
		}

		if next == "" {
			break
		}
		cursor = next
	}

	for _, id := range result.Order {
		metrics.TallyCandidateVotes.WithLabelValues(leHexID(id)).Set(float64(result.Counts[id]))
	}
	return result, nil
}

func (t *Tallier) applyTx(result *Result, seenImages map[bigint.Uint2048]struct{}, tx chain.VoteTx) {
	if tx.MerkleRootDep != t.MerkleRootOutPoint {
		t.logger().Warnw("tally: dropping tx, cell-dep 1 does not reference the configured merkle-root cell", "tx_hash", fmt.Sprintf("%x", tx.TxHash))
		return
	}
	verifyErr := verifier.Verify(tx)
	metrics.ObserveVerifyResult(verifyErr)
	if verifyErr != nil {
		t.logger().Warnw("tally: dropping invalid vote transaction", "tx_hash", fmt.Sprintf("%x", tx.TxHash), "err", verifyErr)
		return
	}

	vc, err := cell.DecodeVoteCell(tx.OutputCellData)
	if err != nil {
		// Verify already parsed this cell successfully; this can only
		// happen if the two decoders disagree, which would itself be a
		// bug, not a chain-data problem.
		t.logger().Errorw("tally: vote cell decode disagreed with verifier", "tx_hash", fmt.Sprintf("%x", tx.TxHash), "err", err)
		return
	}

	if _, dup := seenImages[vc.KeyImage]; dup {
		metrics.VotesDuplicate.Inc()
		t.logger().Infow("tally: dropping duplicate vote (key image already seen)", "tx_hash", fmt.Sprintf("%x", tx.TxHash))
		return
	}
	seenImages[vc.KeyImage] = struct{}{}
	result.Counts[vc.CandidateID]++
}

func leHexID(id uint32) string {
	var b [cell.CandidateIDLen]byte
	binary.LittleEndian.PutUint32(b[:], id)
	return strings.ToUpper(hex.EncodeToString(b[:]))
}

// JSON renders per-candidate counts as a map keyed by uppercase hex of
// the candidate id's little-endian bytes (spec §6 and §8 scenario 1).
func (r *Result) JSON() ([]byte, error) {
	m := make(map[string]int, len(r.Order))
	for _, id := range r.Order {
		m[leHexID(id)] = r.Counts[id]
	}
	return json.Marshal(m)
}

// Table renders per-candidate counts as human-readable lines, one per
// candidate in candidate-cell order.
func (r *Result) Table() string {
	var b strings.Builder
	for _, id := range r.Order {
		fmt.Fprintf(&b, "%08d: %s <%s>\n", r.Counts[id], r.Candidates[id], leHexID(id))
	}
	return b.String()
}
