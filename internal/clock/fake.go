package clock

import (
	"sync"
	"time"
)

// Fake is a deterministic Clock. Time stands still until Advance is called;
// tickers fire synchronously inside Advance in deadline order. Safe for
// concurrent use.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
	changed *sync.Cond
}

type fakeTicker struct {
	ch       chan time.Time
	deadline time.Time
	interval time.Duration
	stopped  bool
}

// NewFake returns a Fake initialized to the given time.
func NewFake(initial time.Time) *Fake {
	f := &Fake{now: initial}
	f.changed = sync.NewCond(&f.mu)
	return f
}

// Now returns the current fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// NewTicker registers a ticker that fires when Advance crosses its deadline.
// The channel has capacity 1, matching time.Ticker: if the consumer falls
// behind, ticks are dropped rather than queued.
func (f *Fake) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	ft := &fakeTicker{
		ch:       make(chan time.Time, 1),
		deadline: f.now.Add(d),
		interval: d,
	}
	f.tickers = append(f.tickers, ft)
	f.changed.Broadcast()

	return &Ticker{
		C: ft.ch,
		stop: func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			ft.stopped = true
		},
	}
}

// Advance moves the fake time forward by d, firing every active ticker whose
// deadline is crossed, in deadline order. A ticker fires repeatedly if d
// spans several of its intervals.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := f.now.Add(d)
	for {
		next := f.earliestLocked(target)
		if next == nil {
			break
		}
		f.now = next.deadline
		select {
		case next.ch <- next.deadline:
		default: // consumer behind, drop the tick
		}
		next.deadline = next.deadline.Add(next.interval)
	}
	f.now = target
}

// earliestLocked returns the active ticker with the earliest deadline at or
// before target, or nil if none is due. Stopped tickers are dropped.
func (f *Fake) earliestLocked(target time.Time) *fakeTicker {
	live := f.tickers[:0]
	for _, ft := range f.tickers {
		if !ft.stopped {
			live = append(live, ft)
		}
	}
	f.tickers = live

	var earliest *fakeTicker
	for _, ft := range f.tickers {
		if ft.deadline.After(target) {
			continue
		}
		if earliest == nil || ft.deadline.Before(earliest.deadline) {
			earliest = ft
		}
	}
	return earliest
}

// BlockUntil waits until at least n tickers are registered and not stopped.
// Tests use it to rendezvous with a goroutine that creates its ticker after
// being started, so an Advance cannot race ahead of the registration.
func (f *Fake) BlockUntil(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.activeLocked() < n {
		f.changed.Wait()
	}
}

func (f *Fake) activeLocked() int {
	count := 0
	for _, ft := range f.tickers {
		if !ft.stopped {
			count++
		}
	}
	return count
}
