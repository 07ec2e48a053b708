package clearqueue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clearqueue/clearqueue/internal/clock"
	"github.com/clearqueue/clearqueue/internal/model"
	"github.com/clearqueue/clearqueue/internal/testutil"
)

func backend(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var listCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tickets", func(w http.ResponseWriter, r *http.Request) {
		listCalls.Add(1)
		tickets := []model.Ticket{
			testutil.AutoResolvedTicket("TCK-1"),
			testutil.EscalatedTicket("TCK-2", "needs human"),
		}
		if r.URL.Query().Get("status") == "escalated" {
			tickets = tickets[1:]
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.TicketList{Tickets: tickets})
	})
	mux.HandleFunc("POST /api/tickets/{id}/override", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &listCalls
}

func TestEngineLifecycle(t *testing.T) {
	srv, listCalls := backend(t)
	clk := clock.NewFake(time.Now())

	changes := make(chan struct{}, 16)
	eng, err := New(
		WithBaseURL(srv.URL),
		WithLogger(testutil.Logger()),
		WithClock(clk),
		WithOnChange(func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer eng.Unmount()

	ctx := context.Background()
	if err := eng.Mount(ctx); err != nil {
		t.Fatalf("Mount: %v", err)
	}

	snap := eng.Snapshot()
	if len(snap.Tickets) != 2 {
		t.Fatalf("got %d tickets, want 2", len(snap.Tickets))
	}
	if eng.Metrics().TotalTickets != 2 {
		t.Fatalf("metrics = %+v", eng.Metrics())
	}

	// The poll timer drives further refreshes.
	clk.BlockUntil(1)
	before := listCalls.Load()
	clk.Advance(eng.Config().PollInterval)
	deadline := time.Now().Add(2 * time.Second)
	for listCalls.Load() == before {
		if time.Now().After(deadline) {
			t.Fatal("poll tick never refreshed")
		}
		time.Sleep(time.Millisecond)
	}

	if err := eng.SetFilter(ctx, model.FilterEscalated); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	snap = eng.Snapshot()
	if len(snap.Tickets) != 1 || snap.Tickets[0].ID != "TCK-2" {
		t.Fatalf("filtered tickets = %+v", snap.Tickets)
	}

	// Selecting a ticket synthesizes a trace when the backend has none.
	eng.Select(ctx, snap.Tickets[0])
	player := eng.Player().Snapshot()
	if len(player.Steps) == 0 {
		t.Fatal("no trace after selection")
	}

	if err := eng.SubmitOverride(ctx, "TCK-1", "corrected", ""); err != nil {
		t.Fatalf("SubmitOverride: %v", err)
	}
	if err := eng.SubmitOverride(ctx, "TCK-1", "   ", ""); err == nil {
		t.Fatal("empty override accepted")
	}
}

func TestEngineFallsBackWhenBackendIsDown(t *testing.T) {
	eng, err := New(
		WithBaseURL("http://127.0.0.1:1"), // nothing listens here
		WithLogger(testutil.Logger()),
		WithClock(clock.NewFake(time.Now())),
		WithUnavailabilityPolicy("fallback"),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer eng.Unmount()

	if err := eng.Mount(context.Background()); err != nil {
		t.Fatalf("Mount under fallback policy returned %v", err)
	}
	snap := eng.Snapshot()
	if !snap.Fallback || len(snap.Tickets) != 6 {
		t.Fatalf("fallback=%v tickets=%d, want demo dataset", snap.Fallback, len(snap.Tickets))
	}
}

func TestNewRejectsBadPolicyOption(t *testing.T) {
	if _, err := New(WithUnavailabilityPolicy("explode")); err == nil {
		t.Fatal("unknown policy accepted")
	}
}
