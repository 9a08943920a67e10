package rowstore

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// EncodeValue packs a StoredValue into the bytes persisted in the value
// column: a one-byte kind tag, followed by a kind-specific body. Kept
// separate from the store implementations so both the sqlite-backed store
// and the in-memory test double share exactly one wire format.
func EncodeValue(v StoredValue) []byte {
	switch v.Kind {
	case Placeholder:
		return []byte{byte(Placeholder)}
	case Deferred:
		out := make([]byte, 9)
		out[0] = byte(Deferred)
		binary.BigEndian.PutUint64(out[1:], uint64(v.Timestamp))
		return out
	case Materialized:
		out := make([]byte, 1+len(v.Payload))
		out[0] = byte(Materialized)
		copy(out[1:], v.Payload)
		return out
	default:
		panic("rowstore: unknown StoredValue kind")
	}
}

// DecodeValue is the inverse of EncodeValue.
func DecodeValue(b []byte) (StoredValue, error) {
	if len(b) == 0 {
		return StoredValue{}, errors.New("rowstore: empty value blob")
	}
	switch Kind(b[0]) {
	case Placeholder:
		return StoredValue{Kind: Placeholder}, nil
	case Deferred:
		if len(b) < 9 {
			return StoredValue{}, errors.New("rowstore: truncated deferred value")
		}
		ts := int64(binary.BigEndian.Uint64(b[1:9]))
		return StoredValue{Kind: Deferred, Timestamp: ts}, nil
	case Materialized:
		payload := make([]byte, len(b)-1)
		copy(payload, b[1:])
		return StoredValue{Kind: Materialized, Payload: payload}, nil
	default:
		return StoredValue{}, errors.Errorf("rowstore: unknown value kind byte %d", b[0])
	}
}
