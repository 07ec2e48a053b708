package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clearqueue/clearqueue/internal/model"
	"github.com/clearqueue/clearqueue/internal/storage"
	"github.com/clearqueue/clearqueue/internal/testutil"
)

func TestInsertAndGetTicketRoundTrip(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()

	in := testutil.AutoResolvedTicket("TCK-1")
	if err := db.InsertTicket(ctx, in); err != nil {
		t.Fatalf("insert: %v", err)
	}

	out, err := db.GetTicket(ctx, "TCK-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.ID != in.ID || out.Status() != model.StatusAutoResolved {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if resp, ok := out.Response(); !ok || resp != "A reset link has been sent." {
		t.Fatalf("response = %q, %v", resp, ok)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("created_at drifted: %v vs %v", out.CreatedAt, in.CreatedAt)
	}
}

func TestGetTicketNotFound(t *testing.T) {
	db := testutil.OpenDB(t)
	if _, err := db.GetTicket(context.Background(), "TCK-404"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestListTicketsFiltersAndOrders(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()

	older := testutil.EscalatedTicket("TCK-OLD", "fraud review")
	newer := testutil.AutoResolvedTicket("TCK-NEW")
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)
	for _, tk := range []model.Ticket{older, newer} {
		if err := db.InsertTicket(ctx, tk); err != nil {
			t.Fatalf("insert %s: %v", tk.ID, err)
		}
	}

	all, err := db.ListTickets(ctx, model.FilterAll)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 || all[0].ID != "TCK-NEW" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	escalated, err := db.ListTickets(ctx, model.FilterEscalated)
	if err != nil {
		t.Fatalf("list escalated: %v", err)
	}
	if len(escalated) != 1 || escalated[0].ID != "TCK-OLD" {
		t.Fatalf("filter leaked other statuses: %+v", escalated)
	}
}

func TestTraceRoundTripAndReplace(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()

	if err := db.InsertTicket(ctx, testutil.AutoResolvedTicket("TCK-1")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	first := []model.DecisionStep{
		{Step: "Input Validation", Action: model.ActionValidate, Reasoning: "ok", Confidence: 1, Timestamp: base},
		{Step: "Classification", Action: model.ActionClassify, Reasoning: "low", Confidence: 0.9, Timestamp: base.Add(2 * time.Second)},
	}
	if err := db.PutTrace(ctx, "TCK-1", first); err != nil {
		t.Fatalf("put trace: %v", err)
	}

	got, err := db.GetTrace(ctx, "TCK-1")
	if err != nil {
		t.Fatalf("get trace: %v", err)
	}
	if len(got) != 2 || got[0].Action != model.ActionValidate || got[1].Action != model.ActionClassify {
		t.Fatalf("trace order wrong: %+v", got)
	}
	if !got[0].Timestamp.Equal(base) {
		t.Errorf("timestamp drifted: %v", got[0].Timestamp)
	}

	// PutTrace replaces, never appends.
	second := []model.DecisionStep{
		{Step: "Final Validation", Action: model.ActionSkip, Reasoning: "n/a", Confidence: 0, Timestamp: base},
	}
	if err := db.PutTrace(ctx, "TCK-1", second); err != nil {
		t.Fatalf("replace trace: %v", err)
	}
	got, err = db.GetTrace(ctx, "TCK-1")
	if err != nil {
		t.Fatalf("get trace: %v", err)
	}
	if len(got) != 1 || got[0].Action != model.ActionSkip {
		t.Fatalf("trace not replaced: %+v", got)
	}
}

func TestGetTraceEmptyIsNotAnError(t *testing.T) {
	db := testutil.OpenDB(t)
	steps, err := db.GetTrace(context.Background(), "TCK-NONE")
	if err != nil {
		t.Fatalf("get trace: %v", err)
	}
	if len(steps) != 0 {
		t.Fatalf("unexpected steps: %+v", steps)
	}
}

func TestApplyOverride(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := db.InsertTicket(ctx, testutil.AutoResolvedTicket("TCK-1")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	req := model.OverrideRequest{OverrideResponse: "A human rewrote this.", Reason: "tone"}
	if err := db.ApplyOverride(ctx, "TCK-1", req, now); err != nil {
		t.Fatalf("apply override: %v", err)
	}

	got, err := db.GetTicket(ctx, "TCK-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp, _ := got.Response(); resp != "A human rewrote this." {
		t.Fatalf("response = %q", resp)
	}
	// Status must not change.
	if got.Status() != model.StatusAutoResolved {
		t.Fatalf("override changed status to %q", got.Status())
	}
}

func TestApplyOverrideErrors(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	req := model.OverrideRequest{OverrideResponse: "text"}

	if err := db.ApplyOverride(ctx, "TCK-404", req, now); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing ticket: got %v, want ErrNotFound", err)
	}

	if err := db.InsertTicket(ctx, testutil.EscalatedTicket("TCK-2", "needs human")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.ApplyOverride(ctx, "TCK-2", req, now); !errors.Is(err, storage.ErrNoResponse) {
		t.Fatalf("escalated ticket: got %v, want ErrNoResponse", err)
	}
}

func TestSeedDemoIsIdempotent(t *testing.T) {
	db := testutil.OpenDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := db.SeedDemo(ctx, now); err != nil {
		t.Fatalf("seed: %v", err)
	}
	n, err := db.CountTickets(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 6 {
		t.Fatalf("seeded %d tickets, want 6", n)
	}

	// Every seeded ticket carries a stored trace.
	tickets, err := db.ListTickets(ctx, model.FilterAll)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, tk := range tickets {
		steps, err := db.GetTrace(ctx, tk.ID)
		if err != nil {
			t.Fatalf("trace for %s: %v", tk.ID, err)
		}
		if len(steps) == 0 {
			t.Errorf("ticket %s seeded without a trace", tk.ID)
		}
		if err := model.ValidateTrace(steps); err != nil {
			t.Errorf("ticket %s: %v", tk.ID, err)
		}
	}

	// A second seed against a non-empty database is a no-op.
	if err := db.SeedDemo(ctx, now.Add(time.Hour)); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if n, _ := db.CountTickets(ctx); n != 6 {
		t.Fatalf("second seed duplicated data: %d tickets", n)
	}
}
