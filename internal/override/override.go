// Package override submits human corrections of automated ticket responses.
package override

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/clearqueue/clearqueue/internal/model"
)

// ErrEmptyResponse rejects an override whose text is empty after trimming.
// Validation runs before any network call.
var ErrEmptyResponse = errors.New("override: response text must not be empty")

// Submitter is the store operation the coordinator delegates to.
type Submitter interface {
	Override(ctx context.Context, ticketID string, req model.OverrideRequest) error
}

// Coordinator validates and submits overrides. It never retries: a failure
// is surfaced to the caller for display, and any retry is the caller's call.
type Coordinator struct {
	store  Submitter
	logger *slog.Logger
}

// NewCoordinator creates a Coordinator backed by the given store.
func NewCoordinator(store Submitter, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{store: store, logger: logger}
}

// Submit sends a correction for a ticket. The response text is trimmed and
// must be non-empty; the reason may be empty. An override replaces response
// content only — it never changes the ticket's status.
func (c *Coordinator) Submit(ctx context.Context, ticketID, responseText, reason string) error {
	trimmed := strings.TrimSpace(responseText)
	if trimmed == "" {
		return ErrEmptyResponse
	}

	err := c.store.Override(ctx, ticketID, model.OverrideRequest{
		OverrideResponse: trimmed,
		Reason:           reason,
	})
	if err != nil {
		return err
	}
	c.logger.Info("override submitted", "ticket_id", ticketID)
	return nil
}
