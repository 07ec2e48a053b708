// Package model defines the ticket and decision-trace domain types shared by
// the dashboard engine, the API client, and the demo backend.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the lifecycle state of a ticket. All transitions happen in the
// external triage pipeline; the dashboard only observes the state assigned
// per refresh.
type Status string

const (
	StatusPending      Status = "pending"
	StatusInProgress   Status = "in_progress"
	StatusAutoResolved Status = "auto_resolved"
	StatusEscalated    Status = "escalated"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusAutoResolved, StatusEscalated:
		return true
	}
	return false
}

// Terminal reports whether the dashboard should treat s as final.
// A human override replaces response content without leaving a terminal state.
func (s Status) Terminal() bool {
	return s == StatusAutoResolved || s == StatusEscalated
}

// Priority is assigned once by the external classifier and never changes here.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Sentiment is the classifier's read of the requester's tone.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Valid reports whether s is a known sentiment.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// Outcome is the status-dependent part of a Ticket. Each variant carries only
// the fields valid for its status, so "response XOR escalation reason" is a
// structural guarantee rather than a convention on optional fields.
type Outcome interface {
	Status() Status
}

// Pending is the outcome of a ticket the pipeline has not picked up yet.
type Pending struct{}

// InProgress is the outcome of a ticket the pipeline is working on.
type InProgress struct{}

// AutoResolved carries the generated (or human-overridden) response text.
type AutoResolved struct {
	Response string
}

// Escalated carries the reason the ticket was routed to a human.
type Escalated struct {
	Reason string
}

func (Pending) Status() Status      { return StatusPending }
func (InProgress) Status() Status   { return StatusInProgress }
func (AutoResolved) Status() Status { return StatusAutoResolved }
func (Escalated) Status() Status    { return StatusEscalated }

// Ticket is one support request as the dashboard sees it. ID and CreatedAt
// are immutable; Priority, Sentiment, and Confidence are assigned by the
// external classifier and immutable in this core.
type Ticket struct {
	ID         string
	Priority   Priority
	Sentiment  Sentiment
	Confidence float64
	CreatedAt  time.Time
	Outcome    Outcome
}

// Status returns the lifecycle state implied by the outcome variant.
// A zero Ticket (nil Outcome) reports pending.
func (t Ticket) Status() Status {
	if t.Outcome == nil {
		return StatusPending
	}
	return t.Outcome.Status()
}

// Response returns the generated or overridden response text. The second
// return is false unless the ticket is auto-resolved.
func (t Ticket) Response() (string, bool) {
	if o, ok := t.Outcome.(AutoResolved); ok {
		return o.Response, true
	}
	return "", false
}

// EscalationReason returns the reason the ticket left automated handling.
// The second return is false unless the ticket is escalated.
func (t Ticket) EscalationReason() (string, bool) {
	if o, ok := t.Outcome.(Escalated); ok {
		return o.Reason, true
	}
	return "", false
}

// Validate checks the classifier-assigned fields and the confidence range.
func (t Ticket) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("model: ticket id is required")
	}
	if !t.Status().Valid() {
		return fmt.Errorf("model: ticket %s: unknown status %q", t.ID, t.Status())
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("model: ticket %s: unknown priority %q", t.ID, t.Priority)
	}
	if !t.Sentiment.Valid() {
		return fmt.Errorf("model: ticket %s: unknown sentiment %q", t.ID, t.Sentiment)
	}
	if t.Confidence < 0 || t.Confidence > 1 {
		return fmt.Errorf("model: ticket %s: confidence %v outside [0,1]", t.ID, t.Confidence)
	}
	return nil
}

// ticketJSON is the wire shape of a Ticket. The response and escalation_reason
// fields are mutually exclusive and tied to status; marshalling derives them
// from the outcome variant, unmarshalling enforces the pairing.
type ticketJSON struct {
	ID               string    `json:"id"`
	Status           Status    `json:"status"`
	Priority         Priority  `json:"priority"`
	Sentiment        Sentiment `json:"sentiment"`
	Confidence       float64   `json:"confidence"`
	CreatedAt        time.Time `json:"created_at"`
	Response         *string   `json:"response,omitempty"`
	EscalationReason *string   `json:"escalation_reason,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (t Ticket) MarshalJSON() ([]byte, error) {
	wire := ticketJSON{
		ID:         t.ID,
		Status:     t.Status(),
		Priority:   t.Priority,
		Sentiment:  t.Sentiment,
		Confidence: t.Confidence,
		CreatedAt:  t.CreatedAt,
	}
	switch o := t.Outcome.(type) {
	case AutoResolved:
		wire.Response = &o.Response
	case Escalated:
		wire.EscalationReason = &o.Reason
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler. It rejects payloads that violate
// the status/field pairing: a response is only legal on auto_resolved tickets
// and an escalation reason only on escalated ones.
func (t *Ticket) UnmarshalJSON(data []byte) error {
	var wire ticketJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	outcome, err := outcomeFromWire(wire)
	if err != nil {
		return err
	}

	*t = Ticket{
		ID:         wire.ID,
		Priority:   wire.Priority,
		Sentiment:  wire.Sentiment,
		Confidence: wire.Confidence,
		CreatedAt:  wire.CreatedAt,
		Outcome:    outcome,
	}
	return nil
}

func outcomeFromWire(wire ticketJSON) (Outcome, error) {
	if wire.Response != nil && wire.Status != StatusAutoResolved {
		return nil, fmt.Errorf("model: ticket %s: response present on status %q", wire.ID, wire.Status)
	}
	if wire.EscalationReason != nil && wire.Status != StatusEscalated {
		return nil, fmt.Errorf("model: ticket %s: escalation_reason present on status %q", wire.ID, wire.Status)
	}

	switch wire.Status {
	case StatusPending:
		return Pending{}, nil
	case StatusInProgress:
		return InProgress{}, nil
	case StatusAutoResolved:
		if wire.Response == nil {
			return nil, fmt.Errorf("model: ticket %s: auto_resolved without response", wire.ID)
		}
		return AutoResolved{Response: *wire.Response}, nil
	case StatusEscalated:
		if wire.EscalationReason == nil {
			return nil, fmt.Errorf("model: ticket %s: escalated without escalation_reason", wire.ID)
		}
		return Escalated{Reason: *wire.EscalationReason}, nil
	default:
		return nil, fmt.Errorf("model: ticket %s: unknown status %q", wire.ID, wire.Status)
	}
}
