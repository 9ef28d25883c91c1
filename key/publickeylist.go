package key

import (
	"encoding/binary"
	"fmt"
)

// publicKeyRecordLen is a full public key record: a 256-byte modulus
// followed by a 4-byte exponent.
const publicKeyRecordLen = ModulusBytes + ExponentBytes

// EncodePublicKeyList serializes the full enrolled voter list
// cmd/ringvote-enroll emits and cmd/ringvote-vote reads back to
// reconstruct rings: a 4-byte little-endian count followed by that many
// fixed-width (N, E) records in enrollment order.
func EncodePublicKeyList(keys []PublicKey) []byte {
	out := make([]byte, 4+len(keys)*publicKeyRecordLen)
	binary.LittleEndian.PutUint32(out[:4], uint32(len(keys)))
	off := 4
	for _, k := range keys {
		n := k.EncodeN()
		copy(out[off:], n[:])
		e := k.EncodeE()
		copy(out[off+ModulusBytes:], e[:])
		off += publicKeyRecordLen
	}
	return out
}

// DecodePublicKeyList parses the buffer EncodePublicKeyList produces.
func DecodePublicKeyList(b []byte) ([]PublicKey, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("key: public key list truncated, missing count")
	}
	count := binary.LittleEndian.Uint32(b[:4])
	want := 4 + int(count)*publicKeyRecordLen
	if len(b) != want {
		return nil, fmt.Errorf("key: public key list declares %d keys, expected %d bytes, got %d", count, want, len(b))
	}
	out := make([]PublicKey, count)
	off := 4
	for i := range out {
		var n [ModulusBytes]byte
		copy(n[:], b[off:off+ModulusBytes])
		var e [ExponentBytes]byte
		copy(e[:], b[off+ModulusBytes:off+publicKeyRecordLen])
		pub, err := DecodePublicKey(n, e)
		if err != nil {
			return nil, fmt.Errorf("key: decode public key %d: %w", i, err)
		}
		out[i] = pub
		off += publicKeyRecordLen
	}
	return out, nil
}
