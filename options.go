package vaultsandbox

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/vaultsandbox/client-go/internal/delivery"
)

// DeliveryStrategy selects how inboxes learn about new email.
type DeliveryStrategy string

const (
	// StrategySSE keeps a push connection per inbox and reconciles on
	// every (re)connect. The default.
	StrategySSE DeliveryStrategy = "sse"
	// StrategyPolling reconciles on a fixed interval instead of holding
	// a connection open.
	StrategyPolling DeliveryStrategy = "polling"
)

const defaultBaseURL = "https://api.vaultsandbox.com"

type clientOptions struct {
	baseURL      string
	httpClient   *http.Client
	logger       *slog.Logger
	strategy     DeliveryStrategy
	pollInterval time.Duration
	sseConfig    delivery.SSEConfig
}

func defaultClientOptions() clientOptions {
	return clientOptions{
		baseURL:      defaultBaseURL,
		strategy:     StrategySSE,
		pollInterval: delivery.DefaultPollInterval,
		sseConfig:    delivery.DefaultSSEConfig(),
	}
}

// Option configures a Client.
type Option func(*clientOptions)

// WithBaseURL points the client at a non-default gateway.
func WithBaseURL(url string) Option {
	return func(o *clientOptions) { o.baseURL = url }
}

// WithHTTPClient supplies a custom HTTP client, e.g. for proxies or
// custom TLS. Event streams reuse its transport but not its timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithLogger enables the client's internal logging. Without it,
// background delivery failures are silently absorbed.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithDeliveryStrategy selects push (SSE) or polling delivery for all
// inboxes of this client.
func WithDeliveryStrategy(s DeliveryStrategy) Option {
	return func(o *clientOptions) { o.strategy = s }
}

// WithPollInterval sets the polling cadence for StrategyPolling.
func WithPollInterval(d time.Duration) Option {
	return func(o *clientOptions) { o.pollInterval = d }
}

// WithSSERetry bounds the SSE reconnect behaviour: maxRetries consecutive
// failed attempts with an exponential backoff starting at delay.
func WithSSERetry(maxRetries int, delay time.Duration) Option {
	return func(o *clientOptions) {
		o.sseConfig.MaxRetries = maxRetries
		o.sseConfig.RetryDelay = delay
	}
}

// InboxOption configures CreateInbox.
type InboxOption func(*inboxOptions)

type inboxOptions struct {
	ttl          time.Duration
	emailAddress string
}

// WithTTL sets the inbox lifetime. The gateway clamps it to its
// advertised maximum.
func WithTTL(ttl time.Duration) InboxOption {
	return func(o *inboxOptions) { o.ttl = ttl }
}

// WithEmailAddress requests a specific address instead of a generated
// one. The gateway rejects addresses outside its allowed domains.
func WithEmailAddress(address string) InboxOption {
	return func(o *inboxOptions) { o.emailAddress = address }
}
