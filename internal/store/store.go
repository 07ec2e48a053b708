// Package store owns the dashboard's authoritative ticket collection: the
// current filter, the manual and periodic refresh lifecycle, and the policy
// for an unavailable backend.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/clearqueue/clearqueue/internal/clock"
	"github.com/clearqueue/clearqueue/internal/demo"
	"github.com/clearqueue/clearqueue/internal/metrics"
	"github.com/clearqueue/clearqueue/internal/model"
)

// DefaultPollInterval is how often a mounted store refreshes on its own.
const DefaultPollInterval = 30 * time.Second

// UnavailabilityPolicy selects what the store does when the listing API is
// unreachable. Both behaviors exist in the source system's history, so the
// choice is explicit configuration rather than a baked-in default.
type UnavailabilityPolicy string

const (
	// PolicyFallbackDemo substitutes the fixed demo dataset so the
	// dashboard stays populated. The failure is recorded for observability
	// only and never surfaced.
	PolicyFallbackDemo UnavailabilityPolicy = "fallback"

	// PolicySurfaceError keeps the last known-good collection and surfaces
	// the error.
	PolicySurfaceError UnavailabilityPolicy = "surface-error-keep-stale"
)

// ParsePolicy converts a configuration string to an UnavailabilityPolicy.
func ParsePolicy(s string) (UnavailabilityPolicy, error) {
	switch UnavailabilityPolicy(s) {
	case PolicyFallbackDemo:
		return PolicyFallbackDemo, nil
	case PolicySurfaceError:
		return PolicySurfaceError, nil
	}
	return "", fmt.Errorf("store: unknown unavailability policy %q", s)
}

// API is the slice of the triage backend the store depends on.
type API interface {
	ListTickets(ctx context.Context, filter model.Filter) ([]model.Ticket, error)
	SubmitOverride(ctx context.Context, ticketID string, req model.OverrideRequest) error
}

// Config holds the dependencies for a Store. API is required; everything
// else has a default.
type Config struct {
	API          API
	Clock        clock.Clock
	Logger       *slog.Logger
	PollInterval time.Duration
	Policy       UnavailabilityPolicy
}

// Store maintains the UI-visible ticket collection under a status filter.
//
// Responses are resolved by a per-request monotonic sequence number: a
// response is applied only if its sequence is the highest seen so far and its
// originating filter is still current. That replaces the source system's
// "last response to complete wins" race with "last request wins".
//
// Lifecycle is explicit: create → Mount (start the poll timer) → Unmount
// (stop it). Nothing is ambient; an unmounted store never ticks.
type Store struct {
	api    API
	clk    clock.Clock
	logger *slog.Logger
	poll   time.Duration
	policy UnavailabilityPolicy

	mu       sync.Mutex
	filter   model.Filter
	tickets  []model.Ticket
	kpis     metrics.Dashboard
	err      error
	fallback bool
	lastSync time.Time

	nextSeq    uint64
	appliedSeq uint64

	stop    chan struct{} // non-nil while mounted
	subs    map[int]func()
	nextSub int
}

var storeMeter = otel.GetMeterProvider().Meter("clearqueue/store")

// New creates a Store with an empty collection and the "all" filter.
func New(cfg Config) *Store {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	policy := cfg.Policy
	if policy == "" {
		policy = PolicyFallbackDemo
	}
	return &Store{
		api:    cfg.API,
		clk:    clk,
		logger: logger,
		poll:   poll,
		policy: policy,
		filter: model.FilterAll,
		subs:   map[int]func(){},
	}
}

// Mount starts the periodic refresh timer. Mounting an already-mounted store
// is a no-op. Mount performs no refresh itself — callers typically follow it
// with an immediate Refresh.
func (s *Store) Mount() {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.stop = stop
	s.mu.Unlock()

	ticker := s.clk.NewTicker(s.poll)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := s.Refresh(context.Background()); err != nil {
					s.logger.Warn("periodic refresh failed", "error", err)
				}
			}
		}
	}()
}

// Unmount stops the periodic refresh timer deterministically. Idempotent;
// no timer handle survives it.
func (s *Store) Unmount() {
	s.mu.Lock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.mu.Unlock()
}

// Subscribe registers a callback invoked (outside the store's lock) after
// every applied change. The returned function unsubscribes.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SetFilter changes the status filter and refreshes immediately, scoped to
// the new filter. The filter value is captured before the request is issued,
// so a concurrent filter change can never retroactively re-scope it.
func (s *Store) SetFilter(ctx context.Context, f model.Filter) error {
	if !f.Valid() {
		return fmt.Errorf("store: invalid filter %q", f)
	}
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
	s.notify()
	return s.Refresh(ctx)
}

// Refresh queries the listing API scoped to the current filter and replaces
// the whole collection on success. In-flight refreshes are not cancelled by
// newer ones; sequence numbers decide which response is applied.
//
// Under PolicySurfaceError a fetch failure is returned (and kept in the
// snapshot) while the last known-good collection stays visible. Under
// PolicyFallbackDemo failures are absorbed: the demo dataset is substituted
// and nil is returned.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	filter := s.filter
	s.mu.Unlock()

	tickets, err := s.api.ListTickets(ctx, filter)
	if err == nil {
		s.apply(seq, filter, tickets, nil, false)
		return nil
	}

	s.recordFailure(filter, err)

	switch s.policy {
	case PolicySurfaceError:
		s.apply(seq, filter, nil, err, false)
		return err
	default:
		s.apply(seq, filter, demo.Filtered(s.clk.Now(), filter), nil, true)
		return nil
	}
}

// apply installs a refresh outcome if it is still relevant: the sequence must
// be the highest applied so far and the originating filter must still be
// current. Stale outcomes are discarded silently. KPIs are recomputed
// synchronously on every collection change.
func (s *Store) apply(seq uint64, filter model.Filter, tickets []model.Ticket, err error, fallback bool) {
	s.mu.Lock()
	if seq <= s.appliedSeq || filter != s.filter {
		s.mu.Unlock()
		return
	}
	s.appliedSeq = seq
	if err != nil {
		// Surfaced failure: keep the last known-good collection.
		s.err = err
	} else {
		s.tickets = tickets
		s.kpis = metrics.Aggregate(tickets)
		s.err = nil
		s.fallback = fallback
		s.lastSync = s.clk.Now()
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Store) recordFailure(filter model.Filter, err error) {
	s.logger.Warn("ticket refresh failed", "filter", string(filter), "policy", string(s.policy), "error", err)
	if counter, cerr := storeMeter.Int64Counter("store.refresh.failures"); cerr == nil {
		counter.Add(context.Background(), 1, otelmetric.WithAttributes(
			attribute.String("filter", string(filter)),
			attribute.String("policy", string(s.policy)),
		))
	}
}

// Override posts a human correction for a ticket, then refreshes the
// collection regardless of the post's outcome — the view stays eventually
// consistent even when the submission fails ambiguously. The submission
// error, if any, is returned to the caller.
func (s *Store) Override(ctx context.Context, ticketID string, req model.OverrideRequest) error {
	submitErr := s.api.SubmitOverride(ctx, ticketID, req)
	if submitErr != nil {
		s.logger.Warn("override submission failed", "ticket_id", ticketID, "error", submitErr)
	}
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("post-override refresh failed", "ticket_id", ticketID, "error", err)
	}
	return submitErr
}

// Snapshot is a consistent copy of the store's visible state.
type Snapshot struct {
	Filter   model.Filter
	Tickets  []model.Ticket
	Metrics  metrics.Dashboard
	Err      error
	Fallback bool
	LastSync time.Time
}

// Snapshot returns a copy of the current state safe to read without holding
// any lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	tickets := make([]model.Ticket, len(s.tickets))
	copy(tickets, s.tickets)
	return Snapshot{
		Filter:   s.filter,
		Tickets:  tickets,
		Metrics:  s.kpis,
		Err:      s.err,
		Fallback: s.fallback,
		LastSync: s.lastSync,
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
