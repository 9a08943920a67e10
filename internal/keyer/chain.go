package keyer

import (
	"time"

	"github.com/dreamware/opcache/errs"
	"github.com/dreamware/opcache/internal/canon"
	"github.com/dreamware/opcache/internal/rowstore"
)

// Miss records where a read-only Lookup stopped short of the leaf: the
// depth (index into the key slice) at which a row was absent, and the
// already-resolved Partial that prefixes that level. Fill resumes from
// exactly this point rather than re-walking rows that already resolved.
type Miss struct {
	Depth  int
	Parent Partial
}

func compositeBytes(parent Partial, k any) ([]byte, error) {
	b, err := canon.Encode([]any{parent, k})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Lookup walks keys (a non-empty hierarchical key) rooted at the pinned
// environment row envRowID. On a full hit it returns the leaf row's id
// and raw stored value. On a miss —
// an inner or leaf row that doesn't exist — it returns a *Miss describing
// where traversal stopped, with a nil error: a miss is an expected outcome
// of a lookup, not a failure.
func Lookup(store rowstore.Store, envRowID int64, keys []any) (int64, []byte, *Miss, error) {
	if len(keys) == 0 {
		return 0, nil, nil, errs.Wrap(errs.ErrBackend, "keyer: empty hierarchical key")
	}

	parent := Partial(envRowID)
	for i := 0; i < len(keys)-1; i++ {
		composite, err := compositeBytes(parent, keys[i])
		if err != nil {
			return 0, nil, nil, errs.Wrap(err, "keyer: canonicalize inner key")
		}
		rowID, err := store.GetRowID(rowstore.HashKey(composite), composite)
		if errs.Is(err, errs.ErrNotFound) {
			return 0, nil, &Miss{Depth: i, Parent: parent}, nil
		}
		if err != nil {
			return 0, nil, nil, errs.Wrap(err, "keyer: resolve inner row")
		}
		parent = Partial(rowID)
	}

	leaf := keys[len(keys)-1]
	composite, err := compositeBytes(parent, leaf)
	if err != nil {
		return 0, nil, nil, errs.Wrap(err, "keyer: canonicalize leaf key")
	}
	rowID, value, err := store.GetValue(rowstore.HashKey(composite), composite)
	if errs.Is(err, errs.ErrNotFound) {
		return 0, nil, &Miss{Depth: len(keys) - 1, Parent: parent}, nil
	}
	if err != nil {
		return 0, nil, nil, errs.Wrap(err, "keyer: resolve leaf row")
	}
	return rowID, value, nil, nil
}

// ResolveInnerChain walks only the inner levels of keys (everything but
// the leaf), returning the Partial that prefixes the leaf. Used when a
// leaf's Deferred claim has expired: the inner chain is already known to
// exist (the earlier probe reached the leaf), so only the leaf itself
// needs refilling, but Fill still needs that chain's terminal Partial.
func ResolveInnerChain(store rowstore.Store, envRowID int64, keys []any) (Partial, error) {
	parent := Partial(envRowID)
	for i := 0; i < len(keys)-1; i++ {
		composite, err := compositeBytes(parent, keys[i])
		if err != nil {
			return 0, errs.Wrap(err, "keyer: canonicalize inner key")
		}
		rowID, err := store.GetRowID(rowstore.HashKey(composite), composite)
		if err != nil {
			return 0, errs.Wrap(err, "keyer: resolve inner row")
		}
		parent = Partial(rowID)
	}
	return parent, nil
}

// Fill inserts the rows missing since miss.Depth: a Placeholder for every
// remaining inner level, then a Deferred{now} claim at the leaf. It returns
// the leaf row's id, ready for the coordinator to later overwrite with a
// Materialized value.
func Fill(store rowstore.Store, keys []any, miss *Miss, now time.Time) (int64, error) {
	parent := miss.Parent
	for i := miss.Depth; i < len(keys)-1; i++ {
		composite, err := compositeBytes(parent, keys[i])
		if err != nil {
			return 0, errs.Wrap(err, "keyer: canonicalize inner key")
		}
		rowID, err := store.InsertOrReplace(rowstore.HashKey(composite), composite,
			rowstore.EncodeValue(rowstore.StoredValue{Kind: rowstore.Placeholder}))
		if err != nil {
			return 0, errs.Wrap(err, "keyer: insert placeholder row")
		}
		parent = Partial(rowID)
	}

	leaf := keys[len(keys)-1]
	composite, err := compositeBytes(parent, leaf)
	if err != nil {
		return 0, errs.Wrap(err, "keyer: canonicalize leaf key")
	}
	rowID, err := store.InsertOrReplace(rowstore.HashKey(composite), composite,
		rowstore.EncodeValue(rowstore.StoredValue{Kind: rowstore.Deferred, Timestamp: now.UnixNano()}))
	if err != nil {
		return 0, errs.Wrap(err, "keyer: insert deferred leaf row")
	}
	return rowID, nil
}

// CommitLeaf overwrites the leaf row in place (same row_id) with a
// Materialized payload.
func CommitLeaf(store rowstore.Store, envRowID int64, keys []any, payload []byte) (int64, error) {
	parent := Partial(envRowID)
	for i := 0; i < len(keys)-1; i++ {
		composite, err := compositeBytes(parent, keys[i])
		if err != nil {
			return 0, errs.Wrap(err, "keyer: canonicalize inner key")
		}
		rowID, err := store.GetRowID(rowstore.HashKey(composite), composite)
		if err != nil {
			return 0, errs.Wrap(err, "keyer: resolve inner row for commit")
		}
		parent = Partial(rowID)
	}

	leaf := keys[len(keys)-1]
	composite, err := compositeBytes(parent, leaf)
	if err != nil {
		return 0, errs.Wrap(err, "keyer: canonicalize leaf key")
	}
	rowID, err := store.InsertOrReplace(rowstore.HashKey(composite), composite,
		rowstore.EncodeValue(rowstore.StoredValue{Kind: rowstore.Materialized, Payload: payload}))
	if err != nil {
		return 0, errs.Wrap(err, "keyer: commit materialized leaf")
	}
	return rowID, nil
}
