package coordinator

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// deferredLive reports whether a Deferred{timestamp} claim, expressed as
// unix nanoseconds, is still live: 0 <= now - ts <= deferredTimeout.
func deferredLive(timestampNanos int64, now time.Time, deferredTimeout time.Duration) bool {
	age := now.Sub(time.Unix(0, timestampNanos))
	return age >= 0 && age <= deferredTimeout
}

// retryBackoff and contentionBackoff are constant backoffs driving the two
// fixed sleeps a caller falls back to: ~10ms when a live Deferred is
// observed and a retry is due, ~1ms when a convoy is being avoided.
func retryBackoff() backoff.BackOff {
	return backoff.NewConstantBackOff(10 * time.Millisecond)
}

func contentionBackoff() backoff.BackOff {
	return backoff.NewConstantBackOff(1 * time.Millisecond)
}

func sleepOnce(b backoff.BackOff) {
	time.Sleep(b.NextBackOff())
}
