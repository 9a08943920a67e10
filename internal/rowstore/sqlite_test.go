package rowstore

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/dreamware/opcache/errs"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rowstore.db")
	s, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteInsertThenGet(t *testing.T) {
	s := newTestSQLiteStore(t)
	hash := HashKey([]byte("k1"))

	rowID, err := s.InsertOrReplace(hash, []byte("k1"), []byte("v1"))
	if err != nil {
		t.Fatalf("InsertOrReplace: %v", err)
	}

	gotRowID, gotValue, err := s.GetValue(hash, []byte("k1"))
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if gotRowID != rowID {
		t.Errorf("GetValue row_id = %d, want %d", gotRowID, rowID)
	}
	if string(gotValue) != "v1" {
		t.Errorf("GetValue value = %q, want %q", gotValue, "v1")
	}
}

// TestSQLiteReplacePreservesRowID checks that replacing an existing key
// reuses its row id and stores the new value, rather than minting a second
// row.
func TestSQLiteReplacePreservesRowID(t *testing.T) {
	s := newTestSQLiteStore(t)
	hash := HashKey([]byte("k1"))

	firstRowID, err := s.InsertOrReplace(hash, []byte("k1"), []byte("v1"))
	if err != nil {
		t.Fatalf("first InsertOrReplace: %v", err)
	}
	secondRowID, err := s.InsertOrReplace(hash, []byte("k1"), []byte("v2"))
	if err != nil {
		t.Fatalf("second InsertOrReplace: %v", err)
	}
	if secondRowID != firstRowID {
		t.Errorf("expected row_id to be preserved across replace, got %d then %d", firstRowID, secondRowID)
	}

	_, value, err := s.GetValue(hash, []byte("k1"))
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if string(value) != "v2" {
		t.Errorf("expected replaced value %q, got %q", "v2", value)
	}
}

// TestSQLiteHashCollisionDistinctRows exercises the bytes.Equal disambiguation
// path in GetRowID/GetValue/findRowID directly against the sqlite backend.
func TestSQLiteHashCollisionDistinctRows(t *testing.T) {
	s := newTestSQLiteStore(t)
	const sharedHash = uint64(42)

	rowA, err := s.InsertOrReplace(sharedHash, []byte("key-a"), []byte("value-a"))
	if err != nil {
		t.Fatalf("insert key-a: %v", err)
	}
	rowB, err := s.InsertOrReplace(sharedHash, []byte("key-b"), []byte("value-b"))
	if err != nil {
		t.Fatalf("insert key-b: %v", err)
	}
	if rowA == rowB {
		t.Fatalf("expected distinct row_ids for colliding keys, got %d for both", rowA)
	}

	gotA, err := s.GetRowID(sharedHash, []byte("key-a"))
	if err != nil {
		t.Fatalf("GetRowID key-a: %v", err)
	}
	if gotA != rowA {
		t.Errorf("GetRowID key-a = %d, want %d", gotA, rowA)
	}

	_, valueB, err := s.GetValue(sharedHash, []byte("key-b"))
	if err != nil {
		t.Fatalf("GetValue key-b: %v", err)
	}
	if string(valueB) != "value-b" {
		t.Errorf("key-b value = %q, want %q", valueB, "value-b")
	}
}

func TestSQLiteGetMissingKeyNotFound(t *testing.T) {
	s := newTestSQLiteStore(t)
	_, _, err := s.GetValue(HashKey([]byte("absent")), []byte("absent"))
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	_, err = s.GetRowID(HashKey([]byte("absent")), []byte("absent"))
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	_, err = s.GetByRowID(9999)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteClearRemovesAllRows(t *testing.T) {
	s := newTestSQLiteStore(t)
	if _, err := s.InsertOrReplace(HashKey([]byte("k1")), []byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	_, _, err := s.GetValue(HashKey([]byte("k1")), []byte("k1"))
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound after Clear, got %v", err)
	}
}

func TestSQLiteIterateItemsOrderedByRowID(t *testing.T) {
	s := newTestSQLiteStore(t)
	keys := []string{"k1", "k2", "k3"}
	for _, k := range keys {
		if _, err := s.InsertOrReplace(HashKey([]byte(k)), []byte(k), []byte(k+"-value")); err != nil {
			t.Fatalf("insert %s: %v", k, err)
		}
	}

	var seen []string
	err := s.IterateItems(func(row Row) error {
		seen = append(seen, string(row.Key))
		return nil
	})
	if err != nil {
		t.Fatalf("IterateItems: %v", err)
	}
	if len(seen) != len(keys) {
		t.Fatalf("expected %d items, got %d", len(keys), len(seen))
	}
	for i, k := range keys {
		if seen[i] != k {
			t.Errorf("item %d = %q, want %q (insertion order by row_id)", i, seen[i], k)
		}
	}
}

// TestSQLiteIterateItemsPropagatesCallbackError checks that a domain error
// returned by the caller's fn comes back unwrapped, not reclassified as
// ErrBackend by the iteration plumbing.
func TestSQLiteIterateItemsPropagatesCallbackError(t *testing.T) {
	s := newTestSQLiteStore(t)
	if _, err := s.InsertOrReplace(HashKey([]byte("k1")), []byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	sentinel := errors.New("stop iteration")
	err := s.IterateItems(func(row Row) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("expected the callback's own error to propagate, got %v", err)
	}
}

func TestSQLiteClosesIdempotently(t *testing.T) {
	s := newTestSQLiteStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
