// Package storage is the demo backend's embedded SQLite persistence layer:
// tickets, their stored decision traces, and override records.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/clearqueue/clearqueue/internal/model"
)

// ErrNotFound is returned when a ticket does not exist.
var ErrNotFound = errors.New("storage: ticket not found")

// ErrNoResponse is returned when an override targets a ticket that has no
// automated response to replace.
var ErrNoResponse = errors.New("storage: ticket has no automated response to override")

// DB wraps the SQLite handle.
type DB struct {
	sql    *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for an ephemeral database in tests.
func Open(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	// modernc.org/sqlite serializes access per connection; a single
	// connection avoids table-lock errors from concurrent writers.
	handle.SetMaxOpenConns(1)

	db := &DB{sql: handle, logger: logger}
	if err := db.migrate(ctx); err != nil {
		_ = handle.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the database handle.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS tickets (
	id                TEXT PRIMARY KEY,
	status            TEXT NOT NULL,
	priority          TEXT NOT NULL,
	sentiment         TEXT NOT NULL,
	confidence        REAL NOT NULL,
	created_at        TEXT NOT NULL,
	response          TEXT,
	escalation_reason TEXT
);

CREATE TABLE IF NOT EXISTS trace_steps (
	ticket_id  TEXT NOT NULL REFERENCES tickets(id),
	seq        INTEGER NOT NULL,
	step       TEXT NOT NULL,
	action     TEXT NOT NULL,
	reasoning  TEXT NOT NULL,
	confidence REAL NOT NULL,
	timestamp  TEXT NOT NULL,
	PRIMARY KEY (ticket_id, seq)
);

CREATE TABLE IF NOT EXISTS overrides (
	id                TEXT PRIMARY KEY,
	ticket_id         TEXT NOT NULL REFERENCES tickets(id),
	override_response TEXT NOT NULL,
	reason            TEXT,
	created_at        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
CREATE INDEX IF NOT EXISTS idx_overrides_ticket ON overrides(ticket_id);
`
	if _, err := d.sql.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("storage: apply schema: %w", err)
	}
	return nil
}

// ListTickets returns tickets matching the filter, newest first.
func (d *DB) ListTickets(ctx context.Context, filter model.Filter) ([]model.Ticket, error) {
	query := `SELECT id, status, priority, sentiment, confidence, created_at, response, escalation_reason
		FROM tickets`
	args := []any{}
	if filter != model.FilterAll {
		query += ` WHERE status = ?`
		args = append(args, string(filter))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list tickets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tickets []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list tickets: %w", err)
	}
	return tickets, nil
}

// GetTicket returns one ticket by id, or ErrNotFound.
func (d *DB) GetTicket(ctx context.Context, id string) (model.Ticket, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT id, status, priority, sentiment, confidence, created_at, response, escalation_reason
		 FROM tickets WHERE id = ?`, id)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ticket{}, ErrNotFound
	}
	return t, err
}

// InsertTicket stores a new ticket.
func (d *DB) InsertTicket(ctx context.Context, t model.Ticket) error {
	var response, reason sql.NullString
	if r, ok := t.Response(); ok {
		response = sql.NullString{String: r, Valid: true}
	}
	if r, ok := t.EscalationReason(); ok {
		reason = sql.NullString{String: r, Valid: true}
	}

	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO tickets (id, status, priority, sentiment, confidence, created_at, response, escalation_reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Status()), string(t.Priority), string(t.Sentiment),
		t.Confidence, t.CreatedAt.UTC().Format(time.RFC3339Nano), response, reason)
	if err != nil {
		return fmt.Errorf("storage: insert ticket %s: %w", t.ID, err)
	}
	return nil
}

// PutTrace replaces the stored decision trace for a ticket.
func (d *DB) PutTrace(ctx context.Context, ticketID string, steps []model.DecisionStep) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin trace tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trace_steps WHERE ticket_id = ?`, ticketID); err != nil {
		return fmt.Errorf("storage: clear trace for %s: %w", ticketID, err)
	}
	for i, s := range steps {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO trace_steps (ticket_id, seq, step, action, reasoning, confidence, timestamp)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ticketID, i, s.Step, string(s.Action), s.Reasoning, s.Confidence,
			s.Timestamp.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("storage: insert trace step %d for %s: %w", i, ticketID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit trace for %s: %w", ticketID, err)
	}
	return nil
}

// GetTrace returns the stored decision trace for a ticket in step order.
// A ticket with no stored trace yields an empty slice, not an error.
func (d *DB) GetTrace(ctx context.Context, ticketID string) ([]model.DecisionStep, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT step, action, reasoning, confidence, timestamp
		 FROM trace_steps WHERE ticket_id = ? ORDER BY seq`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("storage: get trace for %s: %w", ticketID, err)
	}
	defer func() { _ = rows.Close() }()

	var steps []model.DecisionStep
	for rows.Next() {
		var s model.DecisionStep
		var action, ts string
		if err := rows.Scan(&s.Step, &action, &s.Reasoning, &s.Confidence, &ts); err != nil {
			return nil, fmt.Errorf("storage: scan trace step: %w", err)
		}
		s.Action = model.Action(action)
		if s.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("storage: parse step timestamp: %w", err)
		}
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: get trace for %s: %w", ticketID, err)
	}
	return steps, nil
}

// ApplyOverride records a human correction and replaces the ticket's
// response text. The ticket's status never changes: overriding is a
// side-channel correction, not a state transition. Tickets without an
// automated response (anything not auto-resolved) return ErrNoResponse.
func (d *DB) ApplyOverride(ctx context.Context, ticketID string, req model.OverrideRequest, now time.Time) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin override tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM tickets WHERE id = ?`, ticketID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("storage: look up ticket %s: %w", ticketID, err)
	}
	if model.Status(status) != model.StatusAutoResolved {
		return ErrNoResponse
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE tickets SET response = ? WHERE id = ?`, req.OverrideResponse, ticketID); err != nil {
		return fmt.Errorf("storage: update response for %s: %w", ticketID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO overrides (id, ticket_id, override_response, reason, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), ticketID, req.OverrideResponse, req.Reason,
		now.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("storage: record override for %s: %w", ticketID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit override for %s: %w", ticketID, err)
	}
	return nil
}

// CountTickets returns the total number of stored tickets.
func (d *DB) CountTickets(ctx context.Context) (int, error) {
	var n int
	if err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage: count tickets: %w", err)
	}
	return n, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTicket(row scanner) (model.Ticket, error) {
	var (
		t               model.Ticket
		status, created string
		response        sql.NullString
		reason          sql.NullString
		priority        string
		sentiment       string
	)
	err := row.Scan(&t.ID, &status, &priority, &sentiment, &t.Confidence, &created, &response, &reason)
	if err != nil {
		return model.Ticket{}, err
	}
	t.Priority = model.Priority(priority)
	t.Sentiment = model.Sentiment(sentiment)
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return model.Ticket{}, fmt.Errorf("storage: parse created_at for %s: %w", t.ID, err)
	}

	switch model.Status(status) {
	case model.StatusPending:
		t.Outcome = model.Pending{}
	case model.StatusInProgress:
		t.Outcome = model.InProgress{}
	case model.StatusAutoResolved:
		t.Outcome = model.AutoResolved{Response: response.String}
	case model.StatusEscalated:
		t.Outcome = model.Escalated{Reason: reason.String}
	default:
		return model.Ticket{}, fmt.Errorf("storage: ticket %s has unknown status %q", t.ID, status)
	}
	return t, nil
}
