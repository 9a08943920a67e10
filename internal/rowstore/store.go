package rowstore

import (
	"crypto/sha256"
	"encoding/binary"
)

// HashKey folds a sha256 digest of canonical key bytes into a single uint64
// by XORing its four 8-byte lanes together, then adding one so a digest that
// happens to fold to zero never collides with the zero value of an unset
// column. This mirrors cachepy's hash_str_to_u64: the value is a bucketing
// hash only, never assumed unique on its own — GetRowID always confirms a
// candidate row's stored key bytes match before returning it.
func HashKey(canonKey []byte) uint64 {
	sum := sha256.Sum256(canonKey)
	var h uint64
	for i := 0; i < 4; i++ {
		h ^= binary.BigEndian.Uint64(sum[i*8 : i*8+8])
	}
	return h + 1
}

// Kind distinguishes the three states a stored row's value can be in, per
// the deferred-token protocol: a row can exist purely to reserve a rowid
// (Placeholder), record that some goroutine has claimed the computation and
// when (Deferred), or hold the finished payload (Materialized).
type Kind int

const (
	Placeholder Kind = iota
	Deferred
	Materialized
)

// StoredValue is the tagged union persisted in the value column. Only one
// of Timestamp/Payload is meaningful, selected by Kind.
type StoredValue struct {
	Kind      Kind
	Timestamp int64 // unix nanos; meaningful when Kind == Deferred
	Payload   []byte
}

// Row is a single (rowid, hash, key, value) tuple as read back from the
// store; IterateItems and IterateKeys hand these out during scans.
type Row struct {
	RowID int64
	Hash  uint64
	Key   []byte
	Value []byte
}

// Store is the backing store abstraction the coordinator and cache façade
// depend on. Implementations must serialize writes so that a rowid, once
// handed out for a given key, is stable for the lifetime of that key.
type Store interface {
	// GetRowID resolves a canonical key to the rowid of its stored row,
	// confirming the stored key bytes under the candidate hash bucket
	// actually match. Returns errs.ErrNotFound if no row matches.
	GetRowID(hash uint64, canonKey []byte) (int64, error)

	// GetValue resolves a canonical key directly to its rowid and raw
	// value bytes in one round trip. Returns errs.ErrNotFound if no row
	// matches.
	GetValue(hash uint64, canonKey []byte) (rowID int64, value []byte, err error)

	// GetByRowID reads back the value stored under an already-known
	// rowid. Returns errs.ErrNotFound if the row no longer exists.
	GetByRowID(rowID int64) (value []byte, err error)

	// InsertOrReplace stores value under the row matching (hash,
	// canonKey), creating it if absent, and returns its rowid.
	InsertOrReplace(hash uint64, canonKey []byte, value []byte) (rowID int64, err error)

	// Clear deletes every row in the store.
	Clear() error

	// IterateKeys visits every stored key in rowid order. Stops and
	// returns fn's error if fn returns non-nil.
	IterateKeys(fn func(row Row) error) error

	// IterateItems visits every stored (key, value) pair in rowid order.
	// Stops and returns fn's error if fn returns non-nil.
	IterateItems(fn func(row Row) error) error

	// Close releases any resources (connections, goroutines) held by the
	// store. Safe to call more than once.
	Close() error
}
