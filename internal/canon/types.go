package canon

import "errors"

// CBytes is a deterministic byte representation of a key or value. Two
// semantically equal inputs produce byte-identical CBytes; the converse is
// not guaranteed, but the store that consumes CBytes always compares the
// full byte sequence, so a collision never compromises correctness.
type CBytes []byte

var (
	// ErrCycle is returned when Encode discovers a cyclic reference. The
	// canonicalizer is not required to detect cycles, only to fail loudly
	// rather than loop forever; this is that failure.
	ErrCycle = errors.New("canon: cyclic reference")

	// ErrNotCanonicalizable is returned for values with no defined
	// canonical form: bare function values without a FuncFingerprint
	// implementation, channels, unsafe pointers, and similar.
	ErrNotCanonicalizable = errors.New("canon: value not canonicalizable")
)

// Canonicalizable is the opt-in capability for user-defined record types
// that want explicit control over which fields participate in their
// canonical form (e.g. to exclude a cache or a mutex field that plain
// struct reflection would otherwise pick up). Types that don't implement
// it are canonicalized by reflecting over their exported fields instead.
type Canonicalizable interface {
	// CanonicalFields returns the data members that make up this value's
	// canonical form. Keys are field names; values must themselves be
	// canonicalizable.
	CanonicalFields() map[string]any
}

// Set is the opt-in capability for set-like types whose canonical form is
// order-independent. map[K]struct{} and map[K]bool are treated as sets
// automatically without requiring this interface.
type Set interface {
	// CanonicalElements returns the set's members in any order; Encode
	// sorts them by their own canonical bytes before encoding.
	CanonicalElements() []any
}

// Mapping is the opt-in capability for map-like types that aren't Go maps
// (e.g. an ordered multimap wrapper). Plain map[K]V values are handled
// automatically via reflection without requiring this interface.
type Mapping interface {
	// CanonicalPairs returns the mapping's (key, value) pairs in any
	// order; Encode sorts them by the key's canonical bytes.
	CanonicalPairs() map[any]any
}

// FuncFingerprint is the opt-in capability for values standing in for a
// function or method. Go cannot portably recover a function's own source
// or bytecode at runtime, so there is no automatic fallback: a bare func
// value without this capability is ErrNotCanonicalizable.
type FuncFingerprint interface {
	// FuncFingerprint returns a qualified name and a byte sequence
	// (typically source text) identifying the function's implementation.
	FuncFingerprint() (name string, source []byte)
}

// Buffer is the opt-in capability for multi-dimensional numeric buffers
// (the Go analogue of a strided array view). Shape, ElemType, and Strides
// together with the raw backing Bytes make an owning array and a
// differently-strided view over the same storage canonicalize distinctly
// when their strides differ, and identically when shape/strides/content
// match regardless of which one owns the backing allocation.
type Buffer interface {
	Shape() []int
	ElemType() string
	Strides() []int
	Bytes() []byte
}

// Tagged is a low-level escape hatch letting a type fully control its own
// canonical tag byte and payload, bypassing generic dispatch entirely. It
// exists so that internal chaining tokens (the hierarchical keyer's
// Partial) can guarantee their canonical form never collides with a
// same-valued user scalar, which a generic "it's just an int64" encoding
// could not guarantee.
type Tagged interface {
	CanonTag() byte
	CanonPayload() []byte
}
