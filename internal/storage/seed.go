package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/clearqueue/clearqueue/internal/demo"
	"github.com/clearqueue/clearqueue/internal/model"
	"github.com/clearqueue/clearqueue/internal/trace"
)

// SeedDemo populates an empty database with the demo ticket collection and a
// stored decision trace for each ticket. A non-empty database is left alone,
// so restarts keep accumulated overrides.
func (d *DB) SeedDemo(ctx context.Context, now time.Time) error {
	count, err := d.CountTickets(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, t := range demo.Tickets(now) {
		if err := d.InsertTicket(ctx, t); err != nil {
			return fmt.Errorf("storage: seed: %w", err)
		}
		if err := d.PutTrace(ctx, t.ID, trace.Synthesize(now, t)); err != nil {
			return fmt.Errorf("storage: seed: %w", err)
		}
	}
	d.logger.Info("seeded demo dataset", "tickets", len(demo.Tickets(now)))
	return nil
}

// Tickets returns the full unfiltered collection, for tests and tooling.
func (d *DB) Tickets(ctx context.Context) ([]model.Ticket, error) {
	return d.ListTickets(ctx, model.FilterAll)
}
