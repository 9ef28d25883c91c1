package ringsig

import "errors"

// ErrBadSignature is returned when a ring signature's recurrence does not
// close back to its claimed seed challenge.
var ErrBadSignature = errors.New("ringsig: signature does not verify")
