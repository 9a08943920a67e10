// Package opcache is a durable, cross-process and cross-thread cache for
// memoizing the result of an expensive, pure operation against a composite
// key built from a construction-time environment and per-call arguments.
//
// A Cache is opened once per (identifier, operation, environment) with
// New, then called repeatedly with Call; concurrent calls — across
// goroutines in one process and across independent processes sharing the
// same cache directory — for the same arguments run the operation at most
// once (barring the small, documented race window described on
// internal/coordinator.Coordinator.Call).
//
// Ported from original_source/cachepy/cache.py's Cache class: the
// construction-time environment capture and pinning, and the call-time
// hierarchical-key-then-coordinate algorithm, carry over directly.
package opcache
