// Package keyer implements the hierarchical key store: translating an
// ordered composite key rooted at a cache's pinned environment row into a
// chain of backing-store row lookups, filling in missing inner rows on the
// insertion path.
//
// Using a Partial(row_id) wrapper as each level's prefix makes inner-level
// deduplication automatic: once a row_id is assigned it never changes, so
// any two keys sharing a prefix end up sharing the same inner rows rather
// than recomputing ownership from scratch on every call.
package keyer
