package cell

import (
	"encoding/binary"
	"fmt"

	"github.com/ckb-ringvote/ringvote/bigint"
	"github.com/ckb-ringvote/ringvote/key"
	"github.com/ckb-ringvote/ringvote/merkle"
	"github.com/ckb-ringvote/ringvote/ringsig"
)

// Witness is the output-type witness field a vote transaction carries:
// the ring signature, the ring it was produced over, and the Merkle
// proof that the ring is one of the enrolled rings (spec §3).
type Witness struct {
	Sig        ringsig.Signature
	Ring       key.Ring
	LeafIndex  uint32
	ProofBytes []byte // merkle.SerializeProof output
}

// EncodedLen returns the exact wire length for a witness with a ring of
// m members and the given serialized proof length, used by the verifier
// to bounds-check a raw witness buffer before parsing it (spec §4.6
// step 4).
func EncodedLen(m int, proofLen int) int {
	return bigint.ByteLen + 4 + m*(bigint.ByteLen+bigint.ByteLen+key.ExponentBytes) + 4 + 4 + proofLen
}

// Encode serializes the witness to the variable-length layout in spec
// §3: c, ring size, r/n/e arrays, leaf index, proof length, proof bytes.
func (w Witness) Encode() ([]byte, error) {
	m := len(w.Ring)
	if len(w.Sig.R) != m {
		return nil, fmt.Errorf("cell: witness ring size %d does not match %d responses", m, len(w.Sig.R))
	}
	out := make([]byte, 0, EncodedLen(m, len(w.ProofBytes)))

	cb := w.Sig.C.BytesLE()
	out = append(out, cb[:]...)

	var mBuf [4]byte
	binary.LittleEndian.PutUint32(mBuf[:], uint32(m))
	out = append(out, mBuf[:]...)

	for _, r := range w.Sig.R {
		rb := r.BytesLE()
		out = append(out, rb[:]...)
	}
	for _, pk := range w.Ring {
		nb := pk.EncodeN()
		out = append(out, nb[:]...)
	}
	for _, pk := range w.Ring {
		eb := pk.EncodeE()
		out = append(out, eb[:]...)
	}

	var leafBuf, lenBuf [4]byte
	binary.LittleEndian.PutUint32(leafBuf[:], w.LeafIndex)
	out = append(out, leafBuf[:]...)
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(w.ProofBytes)))
	out = append(out, lenBuf[:]...)
	out = append(out, w.ProofBytes...)
	return out, nil
}

// DecodeWitness parses a raw witness buffer, failing with ErrBadWitness
// if its length does not match the declared ring size and proof length
// (spec §4.6 step 4).
func DecodeWitness(b []byte) (Witness, error) {
	if len(b) < bigint.ByteLen+4 {
		return Witness{}, fmt.Errorf("%w: too short for header", ErrBadWitness)
	}
	off := 0
	c, err := bigint.FromBytesLE(b[off : off+bigint.ByteLen])
	if err != nil {
		return Witness{}, fmt.Errorf("%w: %v", ErrBadWitness, err)
	}
	off += bigint.ByteLen

	m := int(binary.LittleEndian.Uint32(b[off:]))
	off += 4

	perMember := bigint.ByteLen + bigint.ByteLen + key.ExponentBytes
	minLen := bigint.ByteLen + 4 + m*perMember + 4 + 4
	if len(b) < minLen {
		return Witness{}, fmt.Errorf("%w: ring of %d needs at least %d bytes, got %d", ErrBadWitness, m, minLen, len(b))
	}

	r := make([]bigint.Uint2048, m)
	for i := 0; i < m; i++ {
		r[i], err = bigint.FromBytesLE(b[off : off+bigint.ByteLen])
		if err != nil {
			return Witness{}, fmt.Errorf("%w: r[%d]: %v", ErrBadWitness, i, err)
		}
		off += bigint.ByteLen
	}

	ring := make(key.Ring, m)
	for i := 0; i < m; i++ {
		var n [key.ModulusBytes]byte
		copy(n[:], b[off:off+key.ModulusBytes])
		off += key.ModulusBytes
		ring[i] = key.PublicKey{}
		nu, err := bigint.FromBytesLE(n[:])
		if err != nil {
			return Witness{}, fmt.Errorf("%w: n[%d]: %v", ErrBadWitness, i, err)
		}
		ring[i].N = nu
	}
	for i := 0; i < m; i++ {
		var e [key.ExponentBytes]byte
		copy(e[:], b[off:off+key.ExponentBytes])
		off += key.ExponentBytes
		ring[i].E = binary.LittleEndian.Uint32(e[:])
	}

	if len(b) < off+4+4 {
		return Witness{}, fmt.Errorf("%w: too short for trailer", ErrBadWitness)
	}
	leafIndex := binary.LittleEndian.Uint32(b[off:])
	off += 4
	proofLen := binary.LittleEndian.Uint32(b[off:])
	off += 4

	if uint32(len(b)-off) != proofLen {
		return Witness{}, fmt.Errorf("%w: declared proof length %d, have %d trailing bytes", ErrBadWitness, proofLen, len(b)-off)
	}
	proofBytes := make([]byte, proofLen)
	copy(proofBytes, b[off:])

	if _, err := merkle.DeserializeProof(proofBytes); err != nil {
		return Witness{}, fmt.Errorf("%w: %v", ErrBadWitness, err)
	}

	return Witness{
		Sig:        ringsig.Signature{C: c, I: bigint.Zero(), R: r},
		Ring:       ring,
		LeafIndex:  leafIndex,
		ProofBytes: proofBytes,
	}, nil
}
