// Package triageapi is the HTTP client for the ticket-triage APIs the
// dashboard consumes: ticket listing, per-ticket decision traces, and
// override submission.
package triageapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clearqueue/clearqueue/internal/model"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the triage backend (e.g. "http://localhost:8080").
	BaseURL string

	// APIKey is sent in the X-API-Key header on every request. An empty key
	// sends an empty header value rather than failing — the backend decides
	// whether to reject it.
	APIKey string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// with a 30-second timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 30 seconds.
	Timeout time.Duration
}

// Client is an HTTP client for the triage API. All methods are safe for
// concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a Client from the given configuration.
// Returns an error if BaseURL is empty.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("triageapi: BaseURL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  httpClient,
	}, nil
}

// ListTickets retrieves the ticket collection scoped to the given filter.
func (c *Client) ListTickets(ctx context.Context, filter model.Filter) ([]model.Ticket, error) {
	params := url.Values{}
	params.Set("status", string(filter))

	var resp model.TicketList
	if err := c.get(ctx, "/api/tickets?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Tickets, nil
}

// FetchTrace retrieves the decision trace for one ticket. Steps come back in
// the server's array order; callers do not re-sort by timestamp.
func (c *Client) FetchTrace(ctx context.Context, ticketID string) ([]model.DecisionStep, error) {
	var resp model.Trace
	if err := c.get(ctx, "/api/tickets/"+url.PathEscape(ticketID)+"/trace", &resp); err != nil {
		return nil, err
	}
	return resp.Decisions, nil
}

// SubmitOverride posts a human correction for a ticket's automated response.
func (c *Client) SubmitOverride(ctx context.Context, ticketID string, req model.OverrideRequest) error {
	return c.post(ctx, "/api/tickets/"+url.PathEscape(ticketID)+"/override", req, nil)
}

// Health checks the backend's health endpoint. Does not require a valid key.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("triageapi: create request: %w", err)
	}
	return c.do(req, dest)
}

func (c *Client) post(ctx context.Context, path string, body any, dest any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("triageapi: marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("triageapi: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("triageapi: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("triageapi: read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, body)
	}
	if resp.StatusCode == http.StatusNoContent || dest == nil {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("triageapi: decode response: %w", err)
	}
	return nil
}

func parseErrorResponse(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}

	var envelope model.APIError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Code = http.StatusText(statusCode)
		apiErr.Message = string(body)
	}
	return apiErr
}
