package cell

import "errors"

// ErrBadCandidateCellFormat is returned when candidate cell bytes do not
// parse to the layout in spec §3: a u16 count followed by that many
// 104-byte records.
var ErrBadCandidateCellFormat = errors.New("cell: malformed candidate cell")

// ErrBadPublicKeyCellFormat is returned when a public-key (Merkle-root)
// cell's bytes do not parse to the 40-byte layout in spec §3.
var ErrBadPublicKeyCellFormat = errors.New("cell: malformed public key cell")

// ErrBadVoteCellFormat is returned when vote cell bytes are not exactly
// the fixed 260-byte candidate-id-plus-key-image layout.
var ErrBadVoteCellFormat = errors.New("cell: malformed vote cell")

// ErrBadWitness is returned when witness bytes don't parse to the
// variable-length layout in spec §3, including a length mismatch against
// the declared ring size and proof length.
var ErrBadWitness = errors.New("cell: malformed vote witness")

// ErrDuplicateCandidateID is returned when encoding a candidate set whose
// ids are not unique.
var ErrDuplicateCandidateID = errors.New("cell: duplicate candidate id")

// ErrDescriptionTooLong is returned when a candidate description exceeds
// 99 UTF-8 bytes, the maximum that fits the zero-padded 100-byte field.
var ErrDescriptionTooLong = errors.New("cell: candidate description exceeds 99 bytes")
