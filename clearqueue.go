// Package clearqueue is the public API for embedding the triage dashboard
// engine.
//
// Frontends (the bundled TUI, or any other presentation layer) import this
// package to construct and drive the engine without reaching into internal/:
//
//	eng, err := clearqueue.New(
//	    clearqueue.WithLogger(logger),
//	    clearqueue.WithOnChange(redraw),
//	)
//	if err != nil { ... }
//	eng.Mount(ctx)
//	defer eng.Unmount()
//
// The import graph enforces a strict no-cycle rule: clearqueue (root)
// imports internal/*, but internal/* never imports clearqueue (root).
package clearqueue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/clearqueue/clearqueue/internal/clock"
	"github.com/clearqueue/clearqueue/internal/config"
	"github.com/clearqueue/clearqueue/internal/metrics"
	"github.com/clearqueue/clearqueue/internal/model"
	"github.com/clearqueue/clearqueue/internal/override"
	"github.com/clearqueue/clearqueue/internal/store"
	"github.com/clearqueue/clearqueue/internal/trace"
	"github.com/clearqueue/clearqueue/internal/triageapi"
)

// Engine bundles the ticket store, metrics, trace player, and override
// coordinator behind one lifecycle. Construct with New(), start polling with
// Mount(), stop with Unmount(). Engine has no public fields — use New()
// options to configure it.
type Engine struct {
	cfg    config.Config
	client *triageapi.Client
	store  *store.Store
	player *trace.Player
	over   *override.Coordinator
	logger *slog.Logger
}

// New builds a fully wired engine. Configuration comes from CLEARQUEUE_*
// environment variables (a .env file is loaded if present), then option
// overrides are applied on top. No goroutines start here — call Mount().
func New(opts ...Option) (*Engine, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.baseURL != "" {
		cfg.APIBaseURL = o.baseURL
	}
	if o.apiKeySet {
		cfg.APIKey = o.apiKey
	}
	if o.pollInterval > 0 {
		cfg.PollInterval = o.pollInterval
	}
	if o.replayInterval > 0 {
		cfg.ReplayInterval = o.replayInterval
	}
	if o.onUnavailable != "" {
		cfg.OnUnavailable = o.onUnavailable
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	policy, err := store.ParsePolicy(cfg.OnUnavailable)
	if err != nil {
		return nil, err
	}

	clk := o.clock
	if clk == nil {
		clk = clock.Real()
	}

	client, err := triageapi.NewClient(triageapi.Config{
		BaseURL:    cfg.APIBaseURL,
		APIKey:     cfg.APIKey,
		HTTPClient: o.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("triage client: %w", err)
	}

	st := store.New(store.Config{
		API:          client,
		Clock:        clk,
		Logger:       logger,
		PollInterval: cfg.PollInterval,
		Policy:       policy,
	})
	if o.onChange != nil {
		st.Subscribe(o.onChange)
	}

	player := trace.NewPlayer(trace.PlayerConfig{
		Fetcher:        client,
		Clock:          clk,
		Logger:         logger,
		ReplayInterval: cfg.ReplayInterval,
		OnChange:       o.onChange,
	})

	return &Engine{
		cfg:    cfg,
		client: client,
		store:  st,
		player: player,
		over:   override.NewCoordinator(st, logger),
		logger: logger,
	}, nil
}

// Mount performs the initial ticket fetch and starts the poll timer.
// The initial fetch honours the unavailability policy, so Mount itself
// reports an error only under the surface-error policy.
func (e *Engine) Mount(ctx context.Context) error {
	e.store.Mount()
	return e.store.Refresh(ctx)
}

// Unmount stops the poll timer and any running replay. Safe to call more
// than once.
func (e *Engine) Unmount() {
	e.player.Clear()
	e.store.Unmount()
}

// Store exposes the ticket store for reads, filtering, and subscriptions.
func (e *Engine) Store() *store.Store { return e.store }

// Player exposes the decision trace player.
func (e *Engine) Player() *trace.Player { return e.player }

// Snapshot returns the store's current view hydrated with computed metrics.
func (e *Engine) Snapshot() store.Snapshot { return e.store.Snapshot() }

// Metrics returns the dashboard metrics for the current collection.
func (e *Engine) Metrics() metrics.Dashboard { return e.store.Snapshot().Metrics }

// Refresh forces an immediate refetch under the current filter.
func (e *Engine) Refresh(ctx context.Context) error {
	return e.store.Refresh(ctx)
}

// SetFilter changes the status filter and triggers a refetch under it.
func (e *Engine) SetFilter(ctx context.Context, f model.Filter) error {
	return e.store.SetFilter(ctx, f)
}

// Select loads the decision trace for a ticket into the player.
func (e *Engine) Select(ctx context.Context, t model.Ticket) {
	e.player.Load(ctx, t)
}

// SubmitOverride validates and submits a human override for a ticket, then
// refreshes the collection regardless of the submission result.
func (e *Engine) SubmitOverride(ctx context.Context, ticketID, responseText, reason string) error {
	return e.over.Submit(ctx, ticketID, responseText, reason)
}

// Config returns the resolved configuration the engine was built with.
func (e *Engine) Config() config.Config { return e.cfg }
