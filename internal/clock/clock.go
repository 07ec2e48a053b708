// Package clock abstracts time so the store's poll loop and the trace
// player's replay animation are deterministic under test. Production code
// injects Real(); tests inject NewFake() and advance it explicitly.
package clock

import "time"

// Clock is the subset of the time package the engine depends on.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// NewTicker returns a Ticker delivering ticks on C at the given
	// interval. Panics if d <= 0, matching time.NewTicker.
	NewTicker(d time.Duration) *Ticker
}

// Ticker wraps a periodic timer. Read ticks from C; call Stop to release
// resources. Stop does not close C.
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop turns off the ticker. Safe to call more than once.
func (t *Ticker) Stop() { t.stop() }

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) *Ticker {
	ticker := time.NewTicker(d)
	return &Ticker{C: ticker.C, stop: ticker.Stop}
}
