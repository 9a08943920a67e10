package rowstore

import (
	"bytes"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dreamware/opcache/errs"
	"github.com/dreamware/opcache/internal/cachelog"

	_ "modernc.org/sqlite"
)

// isBusy reports whether err is sqlite's SQLITE_BUSY (or the functionally
// equivalent SQLITE_LOCKED), the one driver failure that is transient and
// worth distinguishing from a genuine backend failure. modernc.org/sqlite
// folds the result code into the error string rather than a typed field, so
// this matches on message content.
func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked")
}

// wrapBackend classifies a raw driver failure as ErrBackend (or
// ErrBackendBusy for transient contention) so callers can match it with
// errors.Is, while keeping the driver's own message for diagnosis.
func wrapBackend(err error, context string) error {
	if err == nil {
		return nil
	}
	if isBusy(err) {
		return errs.Wrapf(errs.ErrBackendBusy, "%s: %v", context, err)
	}
	return errs.Wrapf(errs.ErrBackend, "%s: %v", context, err)
}

// request is one unit of work handed to the writer goroutine: run fn
// against the shared *sql.DB and deliver the result on resp. Modeled on
// SqliteMultithread's internal request queue, collapsed from string op
// codes ("--commit--", "--close--") to a closure since Go gives us a proper
// function value instead of a dispatch-by-string.
type request struct {
	fn   func(*sql.DB) (any, error)
	resp chan response
}

type response struct {
	val any
	err error
}

// SQLiteStore is the durable, file-backed Store implementation. All reads
// and writes funnel through a single goroutine holding the one *sql.DB
// connection, so statement execution is strictly ordered the way
// SqliteMultithread.run serializes cursor.execute calls; callers never touch
// the connection directly.
type SQLiteStore struct {
	path string
	log  *zap.SugaredLogger

	reqs chan request
	done chan struct{}
}

// OpenSQLiteStore opens (creating if necessary) the dict table at path and
// starts its writer goroutine.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapBackend(err, "rowstore: open sqlite database")
	}
	db.SetMaxOpenConns(1) // the writer goroutine is the only consumer; keep sqlite single-connection

	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, wrapBackend(err, "rowstore: set journal_mode")
	}
	if _, err := db.Exec(`PRAGMA synchronous = NORMAL`); err != nil {
		db.Close()
		return nil, wrapBackend(err, "rowstore: set synchronous")
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS dict (hash INTEGER NOT NULL, key BLOB, value BLOB)`); err != nil {
		db.Close()
		return nil, wrapBackend(err, "rowstore: create dict table")
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS dict_hash_idx ON dict (hash ASC)`); err != nil {
		db.Close()
		return nil, wrapBackend(err, "rowstore: create hash index")
	}

	s := &SQLiteStore{
		path: path,
		log:  cachelog.New("rowstore"),
		reqs: make(chan request),
		done: make(chan struct{}),
	}
	go s.run(db)
	return s, nil
}

func (s *SQLiteStore) run(db *sql.DB) {
	defer close(s.done)
	defer db.Close()
	for req := range s.reqs {
		val, err := req.fn(db)
		req.resp <- response{val: val, err: err}
	}
}

// submit sends fn to the writer goroutine and blocks for its result. Every
// exported Store method on SQLiteStore is a thin submit call; no method
// touches db directly.
func (s *SQLiteStore) submit(fn func(*sql.DB) (any, error)) (any, error) {
	resp := make(chan response, 1)
	s.reqs <- request{fn: fn, resp: resp}
	r := <-resp
	return r.val, r.err
}

func (s *SQLiteStore) GetRowID(hash uint64, canonKey []byte) (int64, error) {
	v, err := s.submit(func(db *sql.DB) (any, error) {
		rows, err := db.Query(`SELECT rowid, key FROM dict WHERE hash = ?`, int64(hash))
		if err != nil {
			return nil, wrapBackend(err, "rowstore: query dict by hash")
		}
		defer rows.Close()
		for rows.Next() {
			var rowID int64
			var storedKey []byte
			if err := rows.Scan(&rowID, &storedKey); err != nil {
				return nil, wrapBackend(err, "rowstore: scan dict row")
			}
			if bytes.Equal(storedKey, canonKey) {
				return rowID, nil
			}
		}
		if err := rows.Err(); err != nil {
			return nil, wrapBackend(err, "rowstore: iterate dict rows")
		}
		return nil, errs.ErrNotFound
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (s *SQLiteStore) GetValue(hash uint64, canonKey []byte) (int64, []byte, error) {
	type pair struct {
		rowID int64
		value []byte
	}
	v, err := s.submit(func(db *sql.DB) (any, error) {
		rows, err := db.Query(`SELECT rowid, key, value FROM dict WHERE hash = ?`, int64(hash))
		if err != nil {
			return nil, wrapBackend(err, "rowstore: query dict by hash")
		}
		defer rows.Close()
		for rows.Next() {
			var rowID int64
			var storedKey, value []byte
			if err := rows.Scan(&rowID, &storedKey, &value); err != nil {
				return nil, wrapBackend(err, "rowstore: scan dict row")
			}
			if bytes.Equal(storedKey, canonKey) {
				return pair{rowID, value}, nil
			}
		}
		if err := rows.Err(); err != nil {
			return nil, wrapBackend(err, "rowstore: iterate dict rows")
		}
		return nil, errs.ErrNotFound
	})
	if err != nil {
		return 0, nil, err
	}
	p := v.(pair)
	return p.rowID, p.value, nil
}

func (s *SQLiteStore) GetByRowID(rowID int64) ([]byte, error) {
	v, err := s.submit(func(db *sql.DB) (any, error) {
		var value []byte
		err := db.QueryRow(`SELECT value FROM dict WHERE rowid = ?`, rowID).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		if err != nil {
			return nil, wrapBackend(err, "rowstore: query dict by rowid")
		}
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *SQLiteStore) InsertOrReplace(hash uint64, canonKey []byte, value []byte) (int64, error) {
	v, err := s.submit(func(db *sql.DB) (any, error) {
		existingRowID, findErr := findRowID(db, hash, canonKey)
		switch {
		case findErr == nil:
			if _, err := db.Exec(`REPLACE INTO dict (rowid, hash, key, value) VALUES (?, ?, ?, ?)`,
				existingRowID, int64(hash), canonKey, value); err != nil {
				return nil, wrapBackend(err, "rowstore: replace dict row")
			}
			return existingRowID, nil
		case !errs.Is(findErr, errs.ErrNotFound):
			return nil, findErr
		}
		result, err := db.Exec(`INSERT INTO dict (hash, key, value) VALUES (?, ?, ?)`, int64(hash), canonKey, value)
		if err != nil {
			return nil, wrapBackend(err, "rowstore: insert dict row")
		}
		rowID, err := result.LastInsertId()
		if err != nil {
			return nil, wrapBackend(err, "rowstore: read inserted rowid")
		}
		return rowID, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func findRowID(db *sql.DB, hash uint64, canonKey []byte) (int64, error) {
	rows, err := db.Query(`SELECT rowid, key FROM dict WHERE hash = ?`, int64(hash))
	if err != nil {
		return 0, wrapBackend(err, "rowstore: query dict by hash")
	}
	defer rows.Close()
	for rows.Next() {
		var rowID int64
		var storedKey []byte
		if err := rows.Scan(&rowID, &storedKey); err != nil {
			return 0, wrapBackend(err, "rowstore: scan dict row")
		}
		if bytes.Equal(storedKey, canonKey) {
			return rowID, nil
		}
	}
	if err := rows.Err(); err != nil {
		return 0, wrapBackend(err, "rowstore: iterate dict rows")
	}
	return 0, errs.ErrNotFound
}

func (s *SQLiteStore) Clear() error {
	_, err := s.submit(func(db *sql.DB) (any, error) {
		_, err := db.Exec(`DELETE FROM dict`)
		return nil, wrapBackend(err, "rowstore: clear dict")
	})
	return err
}

// IterateKeys and IterateItems wrap a real driver or scan failure as
// ErrBackend but let fn's own error pass through unwrapped, matching the
// Store contract that fn's error is returned verbatim.

func (s *SQLiteStore) IterateKeys(fn func(row Row) error) error {
	return s.iterate(`SELECT rowid, hash, key FROM dict ORDER BY rowid`, func(rows *sql.Rows) error {
		var row Row
		var hash int64
		if err := rows.Scan(&row.RowID, &hash, &row.Key); err != nil {
			return wrapBackend(err, "rowstore: scan dict row")
		}
		row.Hash = uint64(hash)
		return fn(row)
	})
}

func (s *SQLiteStore) IterateItems(fn func(row Row) error) error {
	return s.iterate(`SELECT rowid, hash, key, value FROM dict ORDER BY rowid`, func(rows *sql.Rows) error {
		var row Row
		var hash int64
		if err := rows.Scan(&row.RowID, &hash, &row.Key, &row.Value); err != nil {
			return wrapBackend(err, "rowstore: scan dict row")
		}
		row.Hash = uint64(hash)
		return fn(row)
	})
}

func (s *SQLiteStore) iterate(query string, scan func(*sql.Rows) error) error {
	_, err := s.submit(func(db *sql.DB) (any, error) {
		rows, err := db.Query(query)
		if err != nil {
			return nil, wrapBackend(err, "rowstore: query dict")
		}
		defer rows.Close()
		for rows.Next() {
			if err := scan(rows); err != nil {
				return nil, err
			}
		}
		return nil, wrapBackend(rows.Err(), "rowstore: iterate dict rows")
	})
	return err
}

func (s *SQLiteStore) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.reqs)
	<-s.done
	s.log.Debugw("closed sqlite store", "path", s.path)
	return nil
}

