package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/clearqueue/clearqueue/internal/clock"
	"github.com/clearqueue/clearqueue/internal/model"
)

// fakeAPI is a scriptable API stub. Each ListTickets call pops the next
// scripted result; SubmitOverride records the request.
type fakeAPI struct {
	mu sync.Mutex

	results []listResult
	gates   map[int]chan struct{} // call index -> gate to block on

	listCalls   int
	listFilters []model.Filter

	overrideErr error
	overrides   []overrideCall
}

type listResult struct {
	tickets []model.Ticket
	err     error
}

type overrideCall struct {
	ticketID string
	req      model.OverrideRequest
}

func (f *fakeAPI) ListTickets(_ context.Context, filter model.Filter) ([]model.Ticket, error) {
	f.mu.Lock()
	call := f.listCalls
	f.listCalls++
	f.listFilters = append(f.listFilters, filter)
	var res listResult
	if call < len(f.results) {
		res = f.results[call]
	} else if len(f.results) > 0 {
		res = f.results[len(f.results)-1]
	}
	gate := f.gates[call]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return res.tickets, res.err
}

func (f *fakeAPI) SubmitOverride(_ context.Context, ticketID string, req model.OverrideRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides = append(f.overrides, overrideCall{ticketID: ticketID, req: req})
	return f.overrideErr
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func ticket(id string, outcome model.Outcome) model.Ticket {
	return model.Ticket{
		ID:        id,
		Priority:  model.PriorityLow,
		Sentiment: model.SentimentNeutral,
		Outcome:   outcome,
	}
}

func TestRefreshReplacesCollectionAndRecomputesMetrics(t *testing.T) {
	api := &fakeAPI{results: []listResult{
		{tickets: []model.Ticket{
			ticket("TCK-1", model.AutoResolved{Response: "ok"}),
			ticket("TCK-2", model.Pending{}),
		}},
	}}
	s := New(Config{API: api, Clock: clock.NewFake(time.Now())})

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Tickets) != 2 {
		t.Fatalf("got %d tickets, want 2", len(snap.Tickets))
	}
	if snap.Metrics.TotalTickets != 2 || snap.Metrics.PendingCount != 1 || snap.Metrics.AutoResolvedRate != 50 {
		t.Errorf("metrics not recomputed: %+v", snap.Metrics)
	}
	if snap.Err != nil || snap.Fallback {
		t.Errorf("clean refresh left error state: err=%v fallback=%v", snap.Err, snap.Fallback)
	}
	if snap.LastSync.IsZero() {
		t.Error("LastSync not set")
	}
}

func TestFallbackPolicySubstitutesDemoData(t *testing.T) {
	api := &fakeAPI{results: []listResult{{err: errors.New("connection refused")}}}
	s := New(Config{API: api, Clock: clock.NewFake(time.Now()), Policy: PolicyFallbackDemo})

	// The failure is absorbed under the fallback policy.
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("fallback refresh returned error: %v", err)
	}

	snap := s.Snapshot()
	if !snap.Fallback {
		t.Fatal("fallback flag not set")
	}
	if snap.Err != nil {
		t.Fatalf("fallback left an error surfaced: %v", snap.Err)
	}
	if len(snap.Tickets) != 6 {
		t.Fatalf("got %d tickets, want the 6 demo tickets", len(snap.Tickets))
	}
	if snap.Metrics.AutoResolvedRate != 50 || snap.Metrics.EscalationRate != 17 {
		t.Errorf("demo metrics wrong: %+v", snap.Metrics)
	}
}

func TestFallbackRespectsActiveFilter(t *testing.T) {
	api := &fakeAPI{results: []listResult{{err: errors.New("down")}}}
	s := New(Config{API: api, Clock: clock.NewFake(time.Now()), Policy: PolicyFallbackDemo})

	if err := s.SetFilter(context.Background(), model.FilterEscalated); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Tickets) != 1 {
		t.Fatalf("got %d tickets, want 1 escalated demo ticket", len(snap.Tickets))
	}
	if snap.Tickets[0].Status() != model.StatusEscalated {
		t.Fatalf("fallback ignored the filter: %+v", snap.Tickets[0])
	}
}

func TestSurfaceErrorPolicyKeepsStaleData(t *testing.T) {
	fetchErr := errors.New("gateway timeout")
	api := &fakeAPI{results: []listResult{
		{tickets: []model.Ticket{ticket("TCK-1", model.Pending{})}},
		{err: fetchErr},
	}}
	s := New(Config{API: api, Clock: clock.NewFake(time.Now()), Policy: PolicySurfaceError})

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if err := s.Refresh(context.Background()); !errors.Is(err, fetchErr) {
		t.Fatalf("second refresh returned %v, want the fetch error", err)
	}

	snap := s.Snapshot()
	if !errors.Is(snap.Err, fetchErr) {
		t.Fatalf("snapshot error = %v, want surfaced fetch error", snap.Err)
	}
	if len(snap.Tickets) != 1 || snap.Tickets[0].ID != "TCK-1" {
		t.Fatalf("stale collection not kept: %+v", snap.Tickets)
	}

	// A later success clears the surfaced error.
	api.mu.Lock()
	api.results = append(api.results, listResult{tickets: []model.Ticket{ticket("TCK-2", model.Pending{})}})
	api.mu.Unlock()
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("recovery refresh: %v", err)
	}
	if snap := s.Snapshot(); snap.Err != nil {
		t.Fatalf("error not cleared after recovery: %v", snap.Err)
	}
}

func TestSetFilterRejectsUnknownValues(t *testing.T) {
	api := &fakeAPI{results: []listResult{{}}}
	s := New(Config{API: api, Clock: clock.NewFake(time.Now())})

	if err := s.SetFilter(context.Background(), "closed"); err == nil {
		t.Fatal("unknown filter accepted")
	}
	if got := s.Snapshot().Filter; got != model.FilterAll {
		t.Fatalf("filter changed to %q on rejected input", got)
	}
	if api.calls() != 0 {
		t.Fatal("rejected filter still triggered a fetch")
	}
}

func TestStaleResponseDiscardedBySequence(t *testing.T) {
	// Call 0 blocks; call 1 returns immediately. The older response must not
	// overwrite the newer one when it finally lands.
	gate := make(chan struct{})
	api := &fakeAPI{
		results: []listResult{
			{tickets: []model.Ticket{ticket("OLD", model.Pending{})}},
			{tickets: []model.Ticket{ticket("NEW", model.Pending{})}},
		},
		gates: map[int]chan struct{}{0: gate},
	}
	s := New(Config{API: api, Clock: clock.NewFake(time.Now())})

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.Refresh(context.Background()) }()

	// Wait for the first request to be in flight before issuing the second.
	deadline := time.Now().Add(2 * time.Second)
	for api.calls() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("first refresh never started")
		}
		time.Sleep(time.Millisecond)
	}

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	close(gate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Tickets) != 1 || snap.Tickets[0].ID != "NEW" {
		t.Fatalf("stale response won: %+v", snap.Tickets)
	}
}

func TestResponseForOldFilterDiscarded(t *testing.T) {
	// The first refresh is issued under "all" and blocks. While it is in
	// flight the filter changes to escalated. The blocked response's filter
	// is no longer current when it lands, so it must be discarded even
	// though its sequence is checked first.
	gate := make(chan struct{})
	api := &fakeAPI{
		results: []listResult{
			{tickets: []model.Ticket{ticket("ALL-SCOPED", model.Pending{})}},
			{tickets: []model.Ticket{ticket("ESC-SCOPED", model.Escalated{Reason: "x"})}},
		},
		gates: map[int]chan struct{}{0: gate},
	}
	s := New(Config{API: api, Clock: clock.NewFake(time.Now())})

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.Refresh(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for api.calls() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("first refresh never started")
		}
		time.Sleep(time.Millisecond)
	}

	if err := s.SetFilter(context.Background(), model.FilterEscalated); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	close(gate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	snap := s.Snapshot()
	if snap.Filter != model.FilterEscalated {
		t.Fatalf("filter = %q, want escalated", snap.Filter)
	}
	if len(snap.Tickets) != 1 || snap.Tickets[0].ID != "ESC-SCOPED" {
		t.Fatalf("old-filter response applied: %+v", snap.Tickets)
	}
}

func TestOverrideAlwaysRefreshes(t *testing.T) {
	submitErr := errors.New("conflict")
	api := &fakeAPI{
		results:     []listResult{{tickets: []model.Ticket{ticket("TCK-1", model.Pending{})}}},
		overrideErr: submitErr,
	}
	s := New(Config{API: api, Clock: clock.NewFake(time.Now())})

	err := s.Override(context.Background(), "TCK-1", model.OverrideRequest{OverrideResponse: "fixed"})
	if !errors.Is(err, submitErr) {
		t.Fatalf("Override returned %v, want the submission error", err)
	}
	if api.calls() != 1 {
		t.Fatalf("refresh after failed override: %d list calls, want 1", api.calls())
	}

	api.mu.Lock()
	api.overrideErr = nil
	api.mu.Unlock()
	if err := s.Override(context.Background(), "TCK-1", model.OverrideRequest{OverrideResponse: "fixed"}); err != nil {
		t.Fatalf("Override: %v", err)
	}
	if api.calls() != 2 {
		t.Fatalf("refresh after successful override: %d list calls, want 2", api.calls())
	}
}

func TestMountPollsAndUnmountStops(t *testing.T) {
	api := &fakeAPI{results: []listResult{{}}}
	clk := clock.NewFake(time.Now())
	s := New(Config{API: api, Clock: clk, PollInterval: 30 * time.Second})

	refreshed := make(chan struct{}, 16)
	unsub := s.Subscribe(func() {
		select {
		case refreshed <- struct{}{}:
		default:
		}
	})
	defer unsub()

	s.Mount()
	s.Mount() // idempotent
	clk.BlockUntil(1)

	clk.Advance(30 * time.Second)
	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("poll tick did not trigger a refresh")
	}

	s.Unmount()
	s.Unmount() // idempotent
	// Give the poll goroutine a moment to observe the stop and retire its
	// ticker before moving time forward.
	time.Sleep(20 * time.Millisecond)
	before := api.calls()
	clk.Advance(5 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	if api.calls() != before {
		t.Fatal("unmounted store still refreshed")
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	api := &fakeAPI{results: []listResult{{}}}
	s := New(Config{API: api, Clock: clock.NewFake(time.Now())})

	var mu sync.Mutex
	count := 0
	unsub := s.Subscribe(func() {
		mu.Lock()
		count++
		mu.Unlock()
	})

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	mu.Lock()
	after := count
	mu.Unlock()
	if after == 0 {
		t.Fatal("subscriber not notified")
	}

	unsub()
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	mu.Lock()
	final := count
	mu.Unlock()
	if final != after {
		t.Fatal("unsubscribed callback still invoked")
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy("fallback"); err != nil || p != PolicyFallbackDemo {
		t.Fatalf("ParsePolicy(fallback) = %v, %v", p, err)
	}
	if p, err := ParsePolicy("surface-error-keep-stale"); err != nil || p != PolicySurfaceError {
		t.Fatalf("ParsePolicy(surface-error-keep-stale) = %v, %v", p, err)
	}
	if _, err := ParsePolicy("retry"); err == nil {
		t.Fatal("unknown policy accepted")
	}
}
