package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/ckb-ringvote/ringvote/log"
)

// HTTPSource speaks a generic JSON-RPC-over-HTTP dialect sufficient to
// drive the tallier and signer driver end to end: get_transaction,
// get_transactions with an indexer-style cursor, and send_transaction.
// A production client would additionally balance capacity and estimate
// fees (spec §1, out of scope); this is the read/submit surface those
// components actually need.
type HTTPSource struct {
	URL        string
	HTTPClient *http.Client
	Clock      clockwork.Clock
	Logger     log.Logger

	// PollInterval and PollTimeout bound the retry loop used when a
	// call transiently fails (spec §5: "retry-bounded wait ... ≤ ~10
	// seconds").
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// NewHTTPSource returns an HTTPSource with production defaults: the
// real wall clock, a 10 second overall retry budget polled every 500ms.
func NewHTTPSource(url string, logger log.Logger) *HTTPSource {
	return &HTTPSource{
		URL:          url,
		HTTPClient:   http.DefaultClient,
		Clock:        clockwork.NewRealClock(),
		Logger:       logger,
		PollInterval: 500 * time.Millisecond,
		PollTimeout:  10 * time.Second,
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      string        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *HTTPSource) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	callID := uuid.NewString()
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: callID, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("chain: marshal %s request: %w", method, err)
	}

	deadline := s.Clock.Now().Add(s.PollTimeout)
	var lastErr error
	for attempt := 0; ; attempt++ {
		resp, err := s.doOnce(ctx, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if s.Clock.Now().After(deadline) {
			break
		}
		if s.Logger != nil {
			s.Logger.Warnw("chain: rpc call failed, retrying", "call_id", callID, "method", method, "attempt", attempt, "err", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.Clock.After(s.PollInterval):
		}
		_ = resp
	}
	return fmt.Errorf("chain: %s (call %s) failed after retrying for %s: %w", method, callID, s.PollTimeout, lastErr)
}

func (s *HTTPSource) doOnce(ctx context.Context, body []byte, out interface{}) (*rpcResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chain: unexpected status %d: %s", resp.StatusCode, raw)
	}

	var rr rpcResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return nil, fmt.Errorf("chain: decode response: %w", err)
	}
	if rr.Error != nil {
		return &rr, fmt.Errorf("chain: rpc error %d: %s", rr.Error.Code, rr.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(rr.Result, out); err != nil {
			return &rr, fmt.Errorf("chain: decode result: %w", err)
		}
	}
	return &rr, nil
}

// GetCell implements Source.
func (s *HTTPSource) GetCell(ctx context.Context, op OutPoint) ([]byte, error) {
	var out struct {
		Data string `json:"data"`
	}
	if err := s.call(ctx, "get_live_cell", []interface{}{op.String()}, &out); err != nil {
		return nil, err
	}
	return []byte(out.Data), nil
}

type voteTxJSON struct {
	TxHash           string `json:"tx_hash"`
	OutputCellData   string `json:"output_cell_data"`
	Witness          string `json:"witness"`
	CandidateCell    string `json:"candidate_cell"`
	MerkleRootCell   string `json:"merkle_root_cell"`
	MerkleRootTxHash string `json:"merkle_root_tx_hash"`
	MerkleRootIndex  uint32 `json:"merkle_root_index"`
}

// ScanVoteTxHashes implements Source.
func (s *HTTPSource) ScanVoteTxHashes(ctx context.Context, verifierTypeHash [32]byte, cursor string, limit int) ([][32]byte, string, error) {
	var out struct {
		TxHashes   []string `json:"tx_hashes"`
		NextCursor string   `json:"next_cursor"`
	}
	params := []interface{}{fmt.Sprintf("%x", verifierTypeHash), cursor, limit}
	if err := s.call(ctx, "get_transactions", params, &out); err != nil {
		return nil, "", err
	}

	hashes := make([][32]byte, len(out.TxHashes))
	for i, h := range out.TxHashes {
		hash, err := decodeHash32(h)
		if err != nil {
			return nil, "", fmt.Errorf("chain: tx_hashes[%d]: %w", i, err)
		}
		hashes[i] = hash
	}
	return hashes, out.NextCursor, nil
}

// GetTransaction implements Source.
func (s *HTTPSource) GetTransaction(ctx context.Context, txHash [32]byte) (VoteTx, error) {
	var t voteTxJSON
	params := []interface{}{fmt.Sprintf("%x", txHash)}
	if err := s.call(ctx, "get_transaction", params, &t); err != nil {
		return VoteTx{}, err
	}
	tx := VoteTx{
		OutputCellData: []byte(t.OutputCellData),
		Witness:        []byte(t.Witness),
		CandidateCell:  []byte(t.CandidateCell),
		MerkleRootCell: []byte(t.MerkleRootCell),
	}
	txHash, err := decodeHash32(t.TxHash)
	if err != nil {
		return VoteTx{}, fmt.Errorf("chain: tx_hash: %w", err)
	}
	tx.TxHash = txHash
	rootTxHash, err := decodeHash32(t.MerkleRootTxHash)
	if err != nil {
		return VoteTx{}, fmt.Errorf("chain: merkle_root_tx_hash: %w", err)
	}
	tx.MerkleRootDep.TxHash = rootTxHash
	tx.MerkleRootDep.Index = t.MerkleRootIndex
	return tx, nil
}

// decodeHash32 decodes a hex-encoded 32-byte hash field from the wire,
// the dialect every tx-hash-shaped field (tx_hash, tx_hashes,
// merkle_root_tx_hash) uses.
func decodeHash32(s string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

// SubmitVoteTx implements Source.
func (s *HTTPSource) SubmitVoteTx(ctx context.Context, tx VoteTx) ([32]byte, error) {
	var out struct {
		TxHash string `json:"tx_hash"`
	}
	params := []interface{}{
		fmt.Sprintf("%x", tx.OutputCellData),
		fmt.Sprintf("%x", tx.Witness),
	}
	if err := s.call(ctx, "send_transaction", params, &out); err != nil {
		return [32]byte{}, err
	}
	hash, err := decodeHash32(out.TxHash)
	if err != nil {
		return [32]byte{}, fmt.Errorf("chain: tx_hash: %w", err)
	}
	return hash, nil
}
