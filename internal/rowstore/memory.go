package rowstore

import (
	"bytes"
	"sort"
	"sync"

	"github.com/dreamware/opcache/errs"
)

// MemoryStore is an in-process Store with no persistence, used by tests and
// by callers that only need durability across goroutines within a single
// process, not across restarts. It preserves the row-id-stable,
// hash-bucketed-with-collision-check lookup semantics of SQLiteStore so
// tests written against one behave the same against the other.
type MemoryStore struct {
	mu      sync.RWMutex
	rows    map[int64]Row
	nextRow int64
}

// NewMemoryStore returns an empty, ready-to-use MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[int64]Row)}
}

func (m *MemoryStore) findLocked(hash uint64, canonKey []byte) (Row, bool) {
	for _, row := range m.rows {
		if row.Hash == hash && bytes.Equal(row.Key, canonKey) {
			return row, true
		}
	}
	return Row{}, false
}

func (m *MemoryStore) GetRowID(hash uint64, canonKey []byte) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.findLocked(hash, canonKey)
	if !ok {
		return 0, errs.ErrNotFound
	}
	return row.RowID, nil
}

func (m *MemoryStore) GetValue(hash uint64, canonKey []byte) (int64, []byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.findLocked(hash, canonKey)
	if !ok {
		return 0, nil, errs.ErrNotFound
	}
	return row.RowID, append([]byte(nil), row.Value...), nil
}

func (m *MemoryStore) GetByRowID(rowID int64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.rows[rowID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return append([]byte(nil), row.Value...), nil
}

func (m *MemoryStore) InsertOrReplace(hash uint64, canonKey []byte, value []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if row, ok := m.findLocked(hash, canonKey); ok {
		row.Value = append([]byte(nil), value...)
		m.rows[row.RowID] = row
		return row.RowID, nil
	}

	m.nextRow++
	rowID := m.nextRow
	m.rows[rowID] = Row{
		RowID: rowID,
		Hash:  hash,
		Key:   append([]byte(nil), canonKey...),
		Value: append([]byte(nil), value...),
	}
	return rowID, nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows = make(map[int64]Row)
	m.nextRow = 0
	return nil
}

func (m *MemoryStore) IterateKeys(fn func(row Row) error) error {
	return m.iterate(fn)
}

func (m *MemoryStore) IterateItems(fn func(row Row) error) error {
	return m.iterate(fn)
}

// iterate visits rows in rowid order, matching the `ORDER BY rowid` clauses
// SQLiteStore uses for its scans.
func (m *MemoryStore) iterate(fn func(row Row) error) error {
	m.mu.RLock()
	ordered := make([]Row, 0, len(m.rows))
	for _, row := range m.rows {
		ordered = append(ordered, row)
	}
	m.mu.RUnlock()

	sort.Slice(ordered, func(i, j int) bool { return ordered[i].RowID < ordered[j].RowID })
	for _, row := range ordered {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; MemoryStore holds no external resources.
func (m *MemoryStore) Close() error {
	return nil
}
