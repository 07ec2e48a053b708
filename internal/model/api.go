package model

// Wire envelopes shared by the API client and the demo backend.

// TicketList is the body of GET /api/tickets.
type TicketList struct {
	Tickets []Ticket `json:"tickets"`
}

// Trace is the body of GET /api/tickets/{id}/trace.
type Trace struct {
	Decisions []DecisionStep `json:"decisions"`
}

// OverrideRequest is the body of POST /api/tickets/{id}/override.
type OverrideRequest struct {
	OverrideResponse string `json:"override_response"`
	Reason           string `json:"reason"`
}

// APIError is the error body returned by the backend on non-2xx responses.
type APIError struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code and a human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes used by the backend.
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeInternal     = "INTERNAL"
)
