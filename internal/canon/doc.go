// Package canon implements opcache's canonicalizer: a deterministic byte
// encoding of arbitrary Go values such that two semantically equal values
// (a map with its keys permuted, a set shuffled, a user record with the
// same field values) encode to byte-identical CBytes, while two
// semantically distinct values (a list and its reverse, a string and an
// integer with the same digits) are exceedingly unlikely to collide and,
// even if they did, would never compromise correctness: the backing store
// compares full CBytes, not just the derived hash.
//
// # What canonicalizes how
//
//	Scalar (bool, any int/uint/float width, string, []byte, nil) -> self,
//	    fixed-width big-endian for numerics so the result does not depend
//	    on host endianness.
//	Ordered sequence (slice, array)     -> element-wise, order preserved.
//	Set (Set capability, map[K]struct{}) -> elements sorted by their own
//	    canonical bytes, then concatenated.
//	Mapping (map[K]V, Mapping capability) -> (key, value) pairs sorted by
//	    the key's canonical bytes.
//	User-defined record (struct, or the Canonicalize capability) -> a
//	    canonicalized mapping of its exported data fields, plus a type tag.
//	    Go structs have no methods-as-fields, so plain reflection over
//	    exported fields already matches "data members only, no callables";
//	    the Canonicalize capability exists for callers who want to exclude
//	    fields or control the type tag explicitly.
//	Function value (FuncFingerprint capability) -> tag + name +
//	    sha256(source). A bare func value cannot be canonicalized (Go has
//	    no portable way to read a function's own source or bytecode at
//	    runtime) and returns ErrNotCanonicalizable.
//	Multi-dimensional numeric buffer (Buffer capability) -> shape +
//	    element type + strides + raw bytes, so a reshaped view over shared
//	    storage canonicalizes identically to an independent copy with the
//	    same shape/strides/content.
//	Tagged escape hatch -> a type fully controls its own tag byte and
//	    payload (used by the hierarchical keyer's Partial token, so that a
//	    row-id prefix can never collide with a same-valued user integer).
//
// # Determinism
//
// Encode never depends on map iteration order, pointer identity, or host
// endianness. It does depend on build-time encoding layout (tag bytes,
// framing), so CBytes produced by different versions of this package are
// not expected to match; equality only holds across fresh process
// invocations sharing the same build.
//
// # Not supported
//
// Reversibility (Encode is one-way), reference-identity preservation, and
// cyclic structures — a cycle returns ErrCycle rather than recursing
// forever.
package canon
