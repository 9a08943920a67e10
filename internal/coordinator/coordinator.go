package coordinator

import (
	"bytes"
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/opcache/errs"
	"github.com/dreamware/opcache/internal/cachelog"
	"github.com/dreamware/opcache/internal/keyer"
	"github.com/dreamware/opcache/internal/rowstore"
)

// Operation is the user-supplied computation a Coordinator runs outside
// every lock. It returns the serialized payload to store at the leaf.
type Operation func() ([]byte, error)

// Config bounds the two timeouts the algorithm depends on.
type Config struct {
	DeferredTimeout time.Duration
	LockTimeout     time.Duration
	Validate        bool
}

// Coordinator enforces at-most-one concurrent computation per leaf key
// for one cache instance.
type Coordinator struct {
	store rowstore.Store
	locks *locks
	cfg   Config
	log   *zap.SugaredLogger
	nowFn func() time.Time
}

// New returns a Coordinator guarding store, with L_file held at lockPath.
func New(store rowstore.Store, lockPath string, cfg Config) *Coordinator {
	return &Coordinator{
		store: store,
		locks: newLocks(lockPath, cfg.LockTimeout),
		cfg:   cfg,
		log:   cachelog.New("coordinator"),
		nowFn: time.Now,
	}
}

// Call resolves subkeys under envRowID, running op at most once per leaf
// (barring the race window documented on fill), and returns the committed
// payload.
func (c *Coordinator) Call(ctx context.Context, envRowID int64, subkeys []any, op Operation) ([]byte, error) {
	for {
		value, miss, err := c.probe(ctx, envRowID, subkeys)
		if err != nil {
			return nil, err
		}

		if miss == nil {
			sv, err := rowstore.DecodeValue(value)
			if err != nil {
				return nil, errs.Wrap(err, "coordinator: decode stored leaf value")
			}

			switch sv.Kind {
			case rowstore.Materialized:
				return c.resolveHit(sv, op)

			case rowstore.Deferred:
				if deferredLive(sv.Timestamp, c.nowFn(), c.cfg.DeferredTimeout) {
					c.log.Debugw("observed live deferred, retrying", "timeout", c.cfg.DeferredTimeout)
					sleepOnce(retryBackoff())
					continue
				}
				c.log.Debugw("observed expired deferred, reclaiming")
				parent, err := keyer.ResolveInnerChain(c.store, envRowID, subkeys)
				if err != nil {
					return nil, errs.Wrap(err, "coordinator: resolve chain for expired deferred")
				}
				miss = &keyer.Miss{Depth: len(subkeys) - 1, Parent: parent}

			default:
				return nil, errs.Wrap(errs.ErrBackend, "coordinator: leaf row holds an unexpected Placeholder")
			}
		}

		if c.locks.contended() {
			sleepOnce(contentionBackoff())
			continue
		}

		if err := c.fill(ctx, subkeys, miss); err != nil {
			return nil, err
		}

		payload, opErr := op()
		if opErr != nil {
			return nil, errs.Operation(opErr)
		}

		if err := c.commit(ctx, envRowID, subkeys, payload); err != nil {
			return nil, err
		}
		return payload, nil
	}
}

// resolveHit returns the materialized payload directly, or, in validation
// mode, recomputes and byte-compares against it.
func (c *Coordinator) resolveHit(sv rowstore.StoredValue, op Operation) ([]byte, error) {
	if !c.cfg.Validate {
		return sv.Payload, nil
	}
	fresh, err := op()
	if err != nil {
		return nil, errs.Operation(err)
	}
	if !bytes.Equal(sv.Payload, fresh) {
		c.log.Warnw("validation mismatch: recomputed payload differs from stored payload")
		return nil, errs.ErrValidation
	}
	return sv.Payload, nil
}

// probe acquires both locks, performs the hierarchical read, releases
// both, and hands back whatever was found.
func (c *Coordinator) probe(ctx context.Context, envRowID int64, subkeys []any) ([]byte, *keyer.Miss, error) {
	if err := c.locks.acquireBoth(ctx); err != nil {
		return nil, nil, err
	}
	defer c.locks.releaseBoth()

	_, value, miss, err := keyer.Lookup(c.store, envRowID, subkeys)
	if err != nil {
		return nil, nil, errs.Wrap(err, "coordinator: probe")
	}
	return value, miss, nil
}

// fill acquires L_file alone, performs the hierarchical fill, and releases
// L_file. Two callers can race past the contention check and both reach
// here for the same leaf; both will insert a fresh Deferred and both will
// run op. This is a deliberately accepted race window, not a correctness
// bug: every caller whose probe ran before the first Deferred was written
// can reach here, whether it is a goroutine in this process or another
// process, so the number of extra invocations is bounded by the number of
// such callers, not by the number of processes.
func (c *Coordinator) fill(ctx context.Context, subkeys []any, miss *keyer.Miss) error {
	if err := c.locks.acquireFile(ctx); err != nil {
		return err
	}
	defer c.locks.releaseFile()

	if _, err := keyer.Fill(c.store, subkeys, miss, c.nowFn()); err != nil {
		return errs.Wrap(err, "coordinator: fill")
	}
	return nil
}

// commit reacquires L_file, replaces the leaf with Materialized{payload},
// and releases L_file.
func (c *Coordinator) commit(ctx context.Context, envRowID int64, subkeys []any, payload []byte) error {
	if err := c.locks.acquireFile(ctx); err != nil {
		return err
	}
	defer c.locks.releaseFile()

	if _, err := keyer.CommitLeaf(c.store, envRowID, subkeys, payload); err != nil {
		return errs.Wrap(err, "coordinator: commit")
	}
	return nil
}
