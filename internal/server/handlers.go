package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clearqueue/clearqueue/internal/model"
	"github.com/clearqueue/clearqueue/internal/storage"
)

// Handlers holds the backend's request handlers and their dependencies.
type Handlers struct {
	db      *storage.DB
	logger  *slog.Logger
	version string
}

// NewHandlers wires handlers to their dependencies.
func NewHandlers(db *storage.DB, logger *slog.Logger, version string) *Handlers {
	return &Handlers{db: db, logger: logger, version: version}
}

// HandleListTickets serves GET /api/tickets?status={all|pending|auto_resolved|escalated}.
func (h *Handlers) HandleListTickets(w http.ResponseWriter, r *http.Request) {
	filter, err := model.ParseFilter(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	tickets, err := h.db.ListTickets(r.Context(), filter)
	if err != nil {
		h.logger.Error("list tickets failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternal, "failed to list tickets")
		return
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	writeJSON(w, http.StatusOK, model.TicketList{Tickets: tickets})
}

// HandleGetTrace serves GET /api/tickets/{id}/trace.
func (h *Handlers) HandleGetTrace(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, err := h.db.GetTicket(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, model.ErrCodeNotFound, "ticket not found")
			return
		}
		h.logger.Error("ticket lookup failed", "ticket_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternal, "failed to load ticket")
		return
	}

	steps, err := h.db.GetTrace(r.Context(), id)
	if err != nil {
		h.logger.Error("trace lookup failed", "ticket_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternal, "failed to load trace")
		return
	}
	if steps == nil {
		steps = []model.DecisionStep{}
	}
	writeJSON(w, http.StatusOK, model.Trace{Decisions: steps})
}

// HandleOverride serves POST /api/tickets/{id}/override. The correction
// replaces the ticket's response text and is recorded as an override row;
// the ticket's status is untouched.
func (h *Handlers) HandleOverride(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req model.OverrideRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidInput, "malformed request body")
		return
	}
	if strings.TrimSpace(req.OverrideResponse) == "" {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidInput, "override_response must not be empty")
		return
	}

	err := h.db.ApplyOverride(r.Context(), id, req, time.Now())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, model.ErrCodeNotFound, "ticket not found")
	case errors.Is(err, storage.ErrNoResponse):
		writeError(w, http.StatusConflict, model.ErrCodeInvalidInput, "ticket has no automated response to override")
	case err != nil:
		h.logger.Error("override failed", "ticket_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternal, "failed to apply override")
	default:
		h.logger.Info("override applied", "ticket_id", id, "request_id", RequestIDFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleHealth serves GET /health without authentication.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}
