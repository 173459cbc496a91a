package ioloop

import "time"

// backoff implements the jitter-free exponential reconnect bounds named in
// spec.md §4.E: doubling from Min up to Max, reset the instant the
// connection reaches Connected. Grounded on the C client's retryInterval
// handling (no ecosystem backoff library is in the dependency set, and the
// algorithm is three lines — not worth pulling one in for).
type backoff struct {
	Min, Max time.Duration
	current  time.Duration
}

func (b *backoff) Next() time.Duration {
	if b.current == 0 {
		b.current = b.Min
	}
	d := b.current
	b.current *= 2
	if b.current > b.Max {
		b.current = b.Max
	}
	return d
}

func (b *backoff) Reset() { b.current = 0 }
