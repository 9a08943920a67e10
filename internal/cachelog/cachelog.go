// Package cachelog provides the structured logger used throughout opcache.
//
// All call sites log at Debug for ordinary probe/fill/commit transitions and
// at Warn for conditions a caller also receives as an error (lock timeouts,
// validation mismatches) — logging never substitutes for an error return.
package cachelog

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once sync.Once
	base *zap.Logger
)

func bootstrap() {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		// Fall back to a no-op logger rather than panicking the cache; a
		// logging backend failure must never take down a caching layer.
		l = zap.NewNop()
	}
	base = l
}

// New returns a named, structured logger. name typically matches the
// package it instruments, e.g. "coordinator" or "rowstore".
func New(name string) *zap.SugaredLogger {
	once.Do(bootstrap)
	return base.Named(name).Sugar()
}

// Nop returns a logger that discards everything, for tests that don't want
// console noise.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
