package shelve

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"io"

	"github.com/dreamware/opcache/errs"
	"github.com/dreamware/opcache/internal/canon"
)

// digest is a key's sha256(canon(key)); the key itself is never retained.
type digest [sha256.Size]byte

func digestFor(key any) (digest, error) {
	cb, err := canon.Encode(key)
	if err != nil {
		return digest{}, errs.Wrap(err, "shelve: canonicalize key")
	}
	return sha256.Sum256(cb), nil
}

// Build writes pairs to w as a gzip-compressed digest -> value blob. It
// fails with errs.ErrShelveCollision if two distinct keys in pairs hash to
// the same digest; a shelve is built once, offline, so this is treated as
// a build break rather than something a caller recovers from at runtime.
func Build(pairs map[string][]byte, w io.Writer) error {
	byDigest := make(map[digest][]byte, len(pairs))
	for key, value := range pairs {
		d, err := digestFor(key)
		if err != nil {
			return err
		}
		if _, collision := byDigest[d]; collision {
			return errs.ErrShelveCollision
		}
		byDigest[d] = value
	}

	gz := gzip.NewWriter(w)
	if err := gob.NewEncoder(gz).Encode(byDigest); err != nil {
		return errs.Wrap(err, "shelve: encode")
	}
	return gz.Close()
}

// Shelve is an opened, read-only pre-built cache. It holds only digests
// and values; the set of original keys is not recoverable from it.
type Shelve struct {
	byDigest map[digest][]byte
}

// Open reads a Shelve previously written by Build.
func Open(r io.Reader) (*Shelve, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, errs.Wrap(err, "shelve: open gzip stream")
	}
	defer gz.Close()

	byDigest := make(map[digest][]byte)
	if err := gob.NewDecoder(gz).Decode(&byDigest); err != nil {
		return nil, errs.Wrap(err, "shelve: decode")
	}
	return &Shelve{byDigest: byDigest}, nil
}

// Lookup reports whether key was present at build time, and if so its
// stored value. It recomputes sha256(canon(key)) directly; no exact key
// is ever compared or stored.
func (s *Shelve) Lookup(key any) ([]byte, bool, error) {
	d, err := digestFor(key)
	if err != nil {
		return nil, false, err
	}
	value, ok := s.byDigest[d]
	return value, ok, nil
}
