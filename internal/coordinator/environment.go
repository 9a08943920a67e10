package coordinator

import (
	"context"

	"github.com/dreamware/opcache/errs"
	"github.com/dreamware/opcache/internal/canon"
	"github.com/dreamware/opcache/internal/rowstore"
)

// ResolveEnvironment resolves the environment row for a cache instance,
// run once when the instance is opened: under L_file alone,
// optionally clear the whole store unconditionally (connectClear), look up
// the environment's row, and on a miss optionally clear before inserting a
// fresh Placeholder for it (environmentClear guards against silently
// reusing results computed under a stale environment). The returned row id
// is pinned for the lifetime of the cache instance.
func (c *Coordinator) ResolveEnvironment(ctx context.Context, env any, connectClear, environmentClear bool) (int64, error) {
	if err := c.locks.acquireFile(ctx); err != nil {
		return 0, err
	}
	defer c.locks.releaseFile()

	if connectClear {
		if err := c.store.Clear(); err != nil {
			return 0, errs.Wrap(err, "coordinator: clear on connect")
		}
	}

	canonEnv, err := canon.Encode(env)
	if err != nil {
		return 0, errs.Wrap(err, "coordinator: canonicalize environment")
	}
	hash := rowstore.HashKey(canonEnv)

	rowID, err := c.store.GetRowID(hash, canonEnv)
	if err == nil {
		c.log.Debugw("environment resolved to existing row", "row_id", rowID)
		return rowID, nil
	}
	if !errs.Is(err, errs.ErrNotFound) {
		return 0, errs.Wrap(err, "coordinator: resolve environment row")
	}

	if environmentClear && !connectClear {
		c.log.Debugw("new environment observed, clearing store")
		if err := c.store.Clear(); err != nil {
			return 0, errs.Wrap(err, "coordinator: clear on new environment")
		}
	}

	rowID, err = c.store.InsertOrReplace(hash, canonEnv,
		rowstore.EncodeValue(rowstore.StoredValue{Kind: rowstore.Placeholder}))
	if err != nil {
		return 0, errs.Wrap(err, "coordinator: insert environment row")
	}
	c.log.Debugw("environment row created", "row_id", rowID)
	return rowID, nil
}
