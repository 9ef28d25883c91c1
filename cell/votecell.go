package cell

import (
	"encoding/binary"
	"fmt"

	"github.com/ckb-ringvote/ringvote/bigint"
)

// VoteCellLen is the fixed width of a vote cell: a 4-byte candidate id
// plus a 256-byte key image.
const VoteCellLen = CandidateIDLen + bigint.ByteLen

// VoteCell is the on-chain artifact carrying a vote's candidate choice
// and linkable key image (spec §3).
type VoteCell struct {
	CandidateID uint32
	KeyImage    bigint.Uint2048
}

// Encode serializes the cell to its fixed 260-byte layout.
func (c VoteCell) Encode() []byte {
	out := make([]byte, VoteCellLen)
	binary.LittleEndian.PutUint32(out[:CandidateIDLen], c.CandidateID)
	img := c.KeyImage.BytesLE()
	copy(out[CandidateIDLen:], img[:])
	return out
}

// DecodeVoteCell parses a vote cell, failing with ErrBadVoteCellFormat if
// b is not exactly VoteCellLen bytes.
func DecodeVoteCell(b []byte) (VoteCell, error) {
	if len(b) != VoteCellLen {
		return VoteCell{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrBadVoteCellFormat, VoteCellLen, len(b))
	}
	id := binary.LittleEndian.Uint32(b[:CandidateIDLen])
	img, err := bigint.FromBytesLE(b[CandidateIDLen:])
	if err != nil {
		return VoteCell{}, fmt.Errorf("%w: %v", ErrBadVoteCellFormat, err)
	}
	return VoteCell{CandidateID: id, KeyImage: img}, nil
}
