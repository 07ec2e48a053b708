package clearqueue

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/clearqueue/clearqueue/internal/clock"
)

// Option configures an Engine.
type Option func(*resolvedOptions)

// resolvedOptions holds all overrides after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	logger         *slog.Logger
	clock          clock.Clock
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	apiKeySet      bool
	pollInterval   time.Duration
	replayInterval time.Duration
	onUnavailable  string
	onChange       func()
}

// WithLogger sets the structured logger for the engine.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithClock replaces the wall clock. Tests inject a fake clock to drive the
// poll timer and replay animation deterministically.
func WithClock(clk clock.Clock) Option {
	return func(o *resolvedOptions) { o.clock = clk }
}

// WithHTTPClient replaces the HTTP client used for triage API requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *resolvedOptions) { o.httpClient = c }
}

// WithBaseURL overrides the triage backend URL from config (CLEARQUEUE_API_URL env var).
func WithBaseURL(url string) Option {
	return func(o *resolvedOptions) { o.baseURL = url }
}

// WithAPIKey overrides the API key from config (CLEARQUEUE_API_KEY env var).
// An explicitly empty key is honoured: the X-API-Key header is sent with an
// empty value and the backend decides whether to reject it.
func WithAPIKey(key string) Option {
	return func(o *resolvedOptions) {
		o.apiKey = key
		o.apiKeySet = true
	}
}

// WithPollInterval overrides the refresh cadence (CLEARQUEUE_POLL_INTERVAL env var).
func WithPollInterval(d time.Duration) Option {
	return func(o *resolvedOptions) { o.pollInterval = d }
}

// WithReplayInterval overrides the replay animation pace (CLEARQUEUE_REPLAY_INTERVAL env var).
func WithReplayInterval(d time.Duration) Option {
	return func(o *resolvedOptions) { o.replayInterval = d }
}

// WithUnavailabilityPolicy overrides what happens when the backend cannot be
// reached (CLEARQUEUE_ON_UNAVAILABLE env var): "fallback" swaps in the demo
// dataset, "surface-error-keep-stale" keeps the last good data and exposes
// the error.
func WithUnavailabilityPolicy(policy string) Option {
	return func(o *resolvedOptions) { o.onUnavailable = policy }
}

// WithOnChange registers a callback invoked after every observable state
// change in the store or the player. Frontends use it to schedule a redraw.
// The callback must not block.
func WithOnChange(fn func()) Option {
	return func(o *resolvedOptions) { o.onChange = fn }
}
