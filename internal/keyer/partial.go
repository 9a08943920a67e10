package keyer

import "encoding/binary"

// partialTag is outside the range canon's own generic tags use (0x00-0x15),
// so a Partial token can never be mistaken for a generically-encoded user
// value even if that value happens to be the same row_id as an int64.
const partialTag byte = 0x40

// Partial is the opaque row_id-chaining token the hierarchical keyer
// prefixes each level's composite key with: a newtype distinguishable
// from any user value, implementing canon.Tagged so two partials over the
// same row_id always canonicalize identically and never collide with a
// user-supplied integer.
type Partial int64

func (p Partial) CanonTag() byte { return partialTag }

func (p Partial) CanonPayload() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(p))
	return b[:]
}

// RowID returns the wrapped row_id.
func (p Partial) RowID() int64 { return int64(p) }
