// Package verifier implements the on-chain vote-transaction validator
// (spec §4.6): given a vote cell, its witness, and the two published
// cell-deps, it accepts or rejects in one single-threaded pass over the
// ring. The pass is not allocation-free: each ring step allocates
// scratch buffers in the bigint reduction routines and a fresh hasher
// in canon.Prefix.Step.
package verifier

import "fmt"

// Code is the verifier's fatal, non-retryable error taxonomy (spec §7),
// mirroring the original on-chain contract's `#[repr(i8)] enum
// VoteError` so a thin main wrapper can map it directly to a process
// exit code.
type Code int8

const (
	// Success is not itself an error; Verify returns nil, not a Code,
	// on success. Defined here only so callers mapping Code -> exit
	// code have a name for 0.
	Success Code = 0

	IndexOutOfBound Code = 1
	ItemMissing     Code = 2
	LengthNotEnough Code = 3
	Encoding        Code = 4

	BadSignature                Code = 40
	BadCandidateID              Code = 41
	BadCandidateCellFormat      Code = 42
	BadPublicKeyCellFormat      Code = 43
	MissingDependency           Code = 44
	BadWitness                  Code = 45
	BadMerkleProof              Code = 46
	InvalidMerkleRootHashLength Code = 47

	Unknown Code = 127
)

var codeNames = map[Code]string{
	IndexOutOfBound:             "IndexOutOfBound",
	ItemMissing:                 "ItemMissing",
	LengthNotEnough:             "LengthNotEnough",
	Encoding:                    "Encoding",
	BadSignature:                "BadSignature",
	BadCandidateID:              "BadCandidateId",
	BadCandidateCellFormat:      "BadCandidateCellFormat",
	BadPublicKeyCellFormat:      "BadPublicKeyCellFormat",
	MissingDependency:           "MissingDependency",
	BadWitness:                  "BadWitness",
	BadMerkleProof:              "BadMerkleProof",
	InvalidMerkleRootHashLength: "InvalidMerkleRootHashLength",
	Unknown:                     "Unknown",
}

// Error implements the error interface, so a Code can be returned
// directly from Verify and compared with errors.As by callers that want
// the exit code rather than just a human message.
func (c Code) Error() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("verifier: unknown code %d", int8(c))
}

// ExitCode returns the process exit code a cmd/ringvote-verifier main
// should use for this Code.
func (c Code) ExitCode() int {
	return int(c)
}
