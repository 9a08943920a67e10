package opcache

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dreamware/opcache/errs"
	"github.com/dreamware/opcache/internal/cachelog"
	"github.com/dreamware/opcache/internal/canon"
	"github.com/dreamware/opcache/internal/config"
	"github.com/dreamware/opcache/internal/coordinator"
	"github.com/dreamware/opcache/internal/envdesc"
	"github.com/dreamware/opcache/internal/rowstore"
)

// defaultCacheDir returns the default cache directory,
// filepath.Join(os.TempDir(), "opcache"); config.WithDir overrides it.
func defaultCacheDir() string {
	return filepath.Join(os.TempDir(), "opcache")
}

// Cache is one opened (identifier, operation, environment) instance. It is
// safe for concurrent use by multiple goroutines.
type Cache struct {
	identifier string
	op         Operation
	store      rowstore.Store
	coord      *coordinator.Coordinator
	envRowID   int64
	log        *zap.SugaredLogger
}

// New opens (creating on first use) the cache file at
// <dir>/<identifier>.db, resolves the environment row for env, and returns
// a Cache ready to serve Call. env is augmented with host architecture, OS,
// Go runtime version, and op's reflected shape via internal/envdesc before
// being pinned, so a rebuild on a different platform or a changed operation
// invalidates prior results the same way a changed user environment does.
func New(identifier string, op Operation, env any, opts ...config.Option) (*Cache, error) {
	cfg, err := config.New(identifier, defaultCacheDir(), opts...)
	if err != nil {
		return nil, errs.Wrap(err, "opcache: invalid configuration")
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errs.Wrap(err, "opcache: create cache directory")
	}

	dbPath := filepath.Join(cfg.Dir, cfg.Identifier+".db")
	lockPath := dbPath + ".lock"

	store, err := rowstore.OpenSQLiteStore(dbPath)
	if err != nil {
		return nil, errs.Wrap(err, "opcache: open backing store")
	}

	coord := coordinator.New(store, lockPath, coordinator.Config{
		DeferredTimeout: cfg.DeferredTimeout,
		LockTimeout:     cfg.LockTimeout,
		Validate:        cfg.Validate,
	})

	descriptor := envdesc.Capture(op, env)
	envRowID, err := coord.ResolveEnvironment(context.Background(), descriptor, cfg.ConnectClear, cfg.EnvironmentClear)
	if err != nil {
		store.Close()
		return nil, err
	}

	log := cachelog.New("opcache")
	log.Debugw("cache opened", "identifier", cfg.Identifier, "env_row_id", envRowID, "dir", cfg.Dir)

	return &Cache{
		identifier: cfg.Identifier,
		op:         op,
		store:      store,
		coord:      coord,
		envRowID:   envRowID,
		log:        log,
	}, nil
}

// noArgsSubkey is the sole subkey of a niladic call: an op with no
// positional arguments still needs a non-empty hierarchical key, since
// the keyer's invariant is that a cache instance's environment row is
// always followed by at least one subkey level.
type noArgsSubkey struct{}

func (noArgsSubkey) CanonicalFields() map[string]any { return nil }

var _ canon.Canonicalizable = noArgsSubkey{}

// subkeys builds the hierarchical key from positional, folding a trailing
// NamedArgs value (or a bare map[string]any) into the final subkey.
func subkeys(positional []any) []any {
	if len(positional) == 0 {
		return []any{noArgsSubkey{}}
	}
	// map[string]any already is the final-subkey shape the named-args
	// convention wants, so only a NamedArgs-implementing (non-map) type
	// needs folding down to its mapping.
	if na, ok := positional[len(positional)-1].(NamedArgs); ok {
		if _, isMap := positional[len(positional)-1].(map[string]any); !isMap {
			out := append([]any{}, positional[:len(positional)-1]...)
			return append(out, na.NamedArgs())
		}
	}
	return positional
}

// Call resolves the cached result for positional, running the operation
// at most once across every concurrent caller in this process and every
// other process sharing this cache directory, barring the race window
// documented on the coordinator's fill step (callers that all probe before
// the first claim is written may each run it). Subkey order is significant:
// Call(ctx, 1, 2) and Call(ctx, 2, 1) are distinct cache entries.
func (c *Cache) Call(ctx context.Context, positional ...any) ([]byte, error) {
	keys := subkeys(positional)
	return c.coord.Call(ctx, c.envRowID, keys, func() ([]byte, error) {
		return c.op(ctx, keys)
	})
}

// Close releases the cache's backing store connection. It does not affect
// already-committed rows.
func (c *Cache) Close() error {
	return c.store.Close()
}
