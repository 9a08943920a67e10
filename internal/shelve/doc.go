// Package shelve implements the read-only, pre-built cache collaborator:
// a fixed key/value blob built once, offline, and only ever looked up
// afterward, never appended to. Keys are never persisted, only their
// sha256(canon(key)) digests, so a build-time hash collision between two
// distinct keys is detected and rejected rather than silently shadowing
// one value with another.
//
// Ported from original_source/cachepy/readonlyshelve.py's ReadOnlyShelve:
// same two-phase build/open split, same "just gzip a whole map" choice
// over a sorted-array binary search, since a shelve is typically read
// near-exhaustively within one program run anyway.
package shelve
