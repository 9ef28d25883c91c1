// To compile use
// GOOS=js GOARCH=wasm go build -o main.wasm main.go
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"syscall/js"

	"github.com/ckb-ringvote/ringvote/chain"
	"github.com/ckb-ringvote/ringvote/verifier"
)

var done = make(chan struct{})

func main() {
	callback := js.FuncOf(verifyVote)
	defer callback.Release()
	setResult := js.Global().Get("verifyVote")
	setResult.Invoke(callback)
	<-done
}

// verifyVote expects the arguments in order, all hex-encoded:
// 1. candidate cell bytes
// 2. merkle-root cell bytes
// 3. vote cell bytes (output cell data)
// 4. witness bytes
//
// It returns null on a valid vote, or the verifier's rejection reason
// (or an argument/decoding error message) as a string.
func verifyVote(value js.Value, args []js.Value) interface{} {
	defer func() { done <- struct{}{} }()
	if len(args) != 4 {
		return fmt.Sprintf("ringvote-wasm: expected 4 arguments, got %d", len(args))
	}

	candidateCell, err := hex.DecodeString(args[0].String())
	if err != nil {
		return fmt.Sprintf("ringvote-wasm: invalid hexadecimal for candidate cell: %v", err)
	}
	merkleRootCell, err := hex.DecodeString(args[1].String())
	if err != nil {
		return fmt.Sprintf("ringvote-wasm: invalid hexadecimal for merkle root cell: %v", err)
	}
	voteCell, err := hex.DecodeString(args[2].String())
	if err != nil {
		return fmt.Sprintf("ringvote-wasm: invalid hexadecimal for vote cell: %v", err)
	}
	witness, err := hex.DecodeString(args[3].String())
	if err != nil {
		return fmt.Sprintf("ringvote-wasm: invalid hexadecimal for witness: %v", err)
	}

	tx := chain.VoteTx{
		OutputCellData: voteCell,
		Witness:        witness,
		CandidateCell:  candidateCell,
		MerkleRootCell: merkleRootCell,
	}
	if err := verifier.Verify(tx); err != nil {
		var code verifier.Code
		if errors.As(err, &code) {
			return code.Error()
		}
		return err.Error()
	}
	return nil
}
