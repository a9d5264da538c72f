package cloudsync

import "time"

// Backoff computes the delay between reconnect attempts: the delay doubles
// after every failed attempt, capped at a maximum, and resets to the base
// delay after a successful connection.
//
// Backoff is not safe for concurrent use; it is owned by the client's run
// loop and touched from no other goroutine.
type Backoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
}

// NewBackoff creates a backoff starting at base and capped at max.
func NewBackoff(base, max time.Duration) *Backoff {
	return &Backoff{base: base, max: max, current: base}
}

// Next returns the delay to apply before the next attempt and advances the
// schedule. The first call after a Reset returns the base delay.
func (b *Backoff) Next() time.Duration {
	d := b.current
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

// Reset returns the schedule to the base delay. Called after every
// successful connection.
func (b *Backoff) Reset() {
	b.current = b.base
}
