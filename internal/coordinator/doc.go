// Package coordinator enforces at-most-one concurrent computation per
// cache leaf key, coordinating both goroutines within a process (L_thread)
// and independent processes sharing the same cache directory (L_file).
//
// The claim algorithm is ported directly from cachepy's Cache.__call__:
// probe the hierarchical key under both locks, branch on what's found
// (materialized, live deferred, expired deferred, or missing), fill any
// missing rows under L_file alone, run the operation outside every lock,
// then commit the result back under L_file. A Deferred row's liveness is
// judged the same way a node's liveness is judged elsewhere in this
// codebase: a timestamp plus a bounded staleness window, not a heartbeat
// channel.
package coordinator
