// Package testutil provides shared test helpers: a quiet logger, an
// in-memory backend database, and a canned ticket fixture.
package testutil

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/clearqueue/clearqueue/internal/model"
	"github.com/clearqueue/clearqueue/internal/storage"
)

// Logger returns a logger configured for test output (warnings only).
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// OpenDB opens an in-memory SQLite database with the schema applied and
// registers cleanup.
func OpenDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), ":memory:", Logger())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// AutoResolvedTicket returns a fixed auto-resolved ticket for tests.
func AutoResolvedTicket(id string) model.Ticket {
	return model.Ticket{
		ID:         id,
		Priority:   model.PriorityLow,
		Sentiment:  model.SentimentNeutral,
		Confidence: 0.94,
		CreatedAt:  time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Outcome:    model.AutoResolved{Response: "A reset link has been sent."},
	}
}

// EscalatedTicket returns a fixed escalated ticket for tests.
func EscalatedTicket(id, reason string) model.Ticket {
	return model.Ticket{
		ID:         id,
		Priority:   model.PriorityHigh,
		Sentiment:  model.SentimentNegative,
		Confidence: 0.45,
		CreatedAt:  time.Date(2026, 3, 14, 8, 2, 11, 0, time.UTC),
		Outcome:    model.Escalated{Reason: reason},
	}
}
