package cell

import (
	"encoding/binary"
	"fmt"
)

// CandidateIDLen is the width of a candidate id.
const CandidateIDLen = 4

// DescriptionLen is the fixed, zero-padded width of a candidate
// description field.
const DescriptionLen = 100

// CandidateRecordLen is id plus padded description: 104 bytes.
const CandidateRecordLen = CandidateIDLen + DescriptionLen

// Candidate is a single ballot option: a 4-byte id and a description up
// to 99 UTF-8 bytes (the 100th byte of the padded field is reserved so a
// full-width description still round-trips through a NUL-terminated
// read).
type Candidate struct {
	ID          uint32
	Description string
}

// EncodeCandidateCell builds the candidate cell bytes (spec §3): a u16
// little-endian count followed by that many 104-byte records, in the
// order given. Ids must be unique.
func EncodeCandidateCell(candidates []Candidate) ([]byte, error) {
	if len(candidates) > 0xFFFF {
		return nil, fmt.Errorf("cell: %d candidates exceeds u16 count", len(candidates))
	}
	seen := make(map[uint32]struct{}, len(candidates))
	out := make([]byte, 2, 2+len(candidates)*CandidateRecordLen)
	binary.LittleEndian.PutUint16(out, uint16(len(candidates)))
	for _, c := range candidates {
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("%w: %08x", ErrDuplicateCandidateID, c.ID)
		}
		seen[c.ID] = struct{}{}
		if len(c.Description) > DescriptionLen-1 {
			return nil, fmt.Errorf("%w: %q is %d bytes", ErrDescriptionTooLong, c.Description, len(c.Description))
		}
		var rec [CandidateRecordLen]byte
		binary.LittleEndian.PutUint32(rec[:CandidateIDLen], c.ID)
		copy(rec[CandidateIDLen:], c.Description)
		out = append(out, rec[:]...)
	}
	return out, nil
}

// DecodeCandidateCell parses candidate cell bytes back into an ordered
// candidate list, failing with ErrBadCandidateCellFormat if the declared
// count disagrees with the buffer length.
func DecodeCandidateCell(b []byte) ([]Candidate, error) {
	if len(b) < 2 {
		return nil, ErrBadCandidateCellFormat
	}
	count := int(binary.LittleEndian.Uint16(b))
	want := 2 + count*CandidateRecordLen
	if len(b) != want {
		return nil, fmt.Errorf("%w: declared %d records needs %d bytes, got %d", ErrBadCandidateCellFormat, count, want, len(b))
	}
	out := make([]Candidate, count)
	for i := 0; i < count; i++ {
		rec := b[2+i*CandidateRecordLen : 2+(i+1)*CandidateRecordLen]
		id := binary.LittleEndian.Uint32(rec[:CandidateIDLen])
		desc := rec[CandidateIDLen:]
		nul := len(desc)
		for j, c := range desc {
			if c == 0 {
				nul = j
				break
			}
		}
		out[i] = Candidate{ID: id, Description: string(desc[:nul])}
	}
	return out, nil
}
