// Package rowstore implements the durable backing store: a table of
// (hash, key, value) rows identified by sqlite rowid, plus a request-queue
// concurrency model that serializes all writes through a single goroutine.
//
// The schema is a direct descendant of the sqlitedict-derived design in the
// cachepy original: a `dict` table keyed by a folded sha256 hash of the
// canonical key bytes, with the canonical key bytes themselves stored
// alongside to resolve hash collisions. Row identity (sqlite rowid) is what
// the hierarchical keyer chains through Partial tokens, so GetRowID is a
// first-class operation rather than an implementation detail.
package rowstore
