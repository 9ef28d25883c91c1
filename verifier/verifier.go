package verifier

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/ckb-ringvote/ringvote/cell"
	"github.com/ckb-ringvote/ringvote/chain"
	"github.com/ckb-ringvote/ringvote/merkle"
	"github.com/ckb-ringvote/ringvote/ringsig"
)

// Verify validates a single vote transaction per spec §4.6: candidate
// membership, Merkle proof, and ring-signature recurrence, in one pass.
// It returns nil on success and a Code on any rejection.
func Verify(tx chain.VoteTx) error {
	root, userCount, leafCount, err := decodeMerkleRootCell(tx.MerkleRootCell)
	if err != nil {
		return err
	}
	_ = userCount

	vc, err := cell.DecodeVoteCell(tx.OutputCellData)
	if err != nil {
		return Encoding
	}

	candidates, err := cell.DecodeCandidateCell(tx.CandidateCell)
	if err != nil {
		return BadCandidateCellFormat
	}
	if !candidateExists(candidates, vc.CandidateID) {
		return BadCandidateID
	}

	if len(tx.Witness) == 0 {
		return MissingDependency
	}
	w, err := cell.DecodeWitness(tx.Witness)
	if err != nil {
		return BadWitness
	}

	leafHash := w.Ring.LeafHash()
	proof, err := merkle.DeserializeProof(w.ProofBytes)
	if err != nil {
		return BadWitness
	}
	if !merkle.Verify(proof, root, int(w.LeafIndex), leafHash, int(leafCount)) {
		return BadMerkleProof
	}

	sig := w.Sig
	sig.I = vc.KeyImage
	if err := ringsig.Verify(sig, w.Ring, candidateIDBytes(vc.CandidateID)); err != nil {
		if errors.Is(err, ringsig.ErrBadSignature) {
			return BadSignature
		}
		return BadWitness
	}

	return nil
}

// decodeMerkleRootCell mirrors cell.DecodeMerkleRootCell but distinguishes
// a root field of the wrong width (InvalidMerkleRootHashLength) from a
// cell that is simply too short to hold the two trailing counts
// (BadPublicKeyCellFormat), since spec §7 lists them as separate codes.
func decodeMerkleRootCell(b []byte) (merkle.Hash, uint32, uint32, error) {
	if len(b) < 8 {
		return merkle.Hash{}, 0, 0, BadPublicKeyCellFormat
	}
	rootBytes := b[:len(b)-8]
	if len(rootBytes) != merkle.HashLen {
		return merkle.Hash{}, 0, 0, InvalidMerkleRootHashLength
	}
	var root merkle.Hash
	copy(root[:], rootBytes)
	userCount := binary.LittleEndian.Uint32(b[len(b)-8 : len(b)-4])
	leafCount := binary.LittleEndian.Uint32(b[len(b)-4:])
	return root, userCount, leafCount, nil
}

func candidateExists(candidates []cell.Candidate, id uint32) bool {
	for _, c := range candidates {
		if c.ID == id {
			return true
		}
	}
	return false
}

func candidateIDBytes(id uint32) []byte {
	var b [cell.CandidateIDLen]byte
	binary.LittleEndian.PutUint32(b[:], id)
	return bytes.Clone(b[:])
}
