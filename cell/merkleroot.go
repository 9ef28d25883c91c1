package cell

import (
	"encoding/binary"
	"fmt"

	"github.com/ckb-ringvote/ringvote/merkle"
)

// MerkleRootCellLen is the fixed width of the Merkle-root cell: a
// 32-byte root plus two u32 counts.
const MerkleRootCellLen = merkle.HashLen + 4 + 4

// MerkleRootCell is the administrator-published commitment to every
// enrolled ring (spec §3).
type MerkleRootCell struct {
	Root      merkle.Hash
	UserCount uint32
	LeafCount uint32
}

// Encode serializes the cell to its fixed 40-byte layout.
func (c MerkleRootCell) Encode() []byte {
	out := make([]byte, MerkleRootCellLen)
	copy(out, c.Root[:])
	binary.LittleEndian.PutUint32(out[merkle.HashLen:], c.UserCount)
	binary.LittleEndian.PutUint32(out[merkle.HashLen+4:], c.LeafCount)
	return out
}

// DecodeMerkleRootCell parses a Merkle-root cell, failing with
// ErrBadPublicKeyCellFormat if b is not exactly MerkleRootCellLen bytes.
func DecodeMerkleRootCell(b []byte) (MerkleRootCell, error) {
	if len(b) != MerkleRootCellLen {
		return MerkleRootCell{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrBadPublicKeyCellFormat, MerkleRootCellLen, len(b))
	}
	var out MerkleRootCell
	copy(out.Root[:], b[:merkle.HashLen])
	out.UserCount = binary.LittleEndian.Uint32(b[merkle.HashLen:])
	out.LeafCount = binary.LittleEndian.Uint32(b[merkle.HashLen+4:])
	return out, nil
}
