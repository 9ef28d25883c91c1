package merkle

import "errors"

var errIndexRange = errors.New("merkle: leaf index out of range")
var errProofLength = errors.New("merkle: proof length is not a multiple of the hash size")
