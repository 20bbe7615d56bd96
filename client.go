package vaultsandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vaultsandbox/client-go/internal/api"
	"github.com/vaultsandbox/client-go/internal/crypto"
	"github.com/vaultsandbox/client-go/internal/delivery"
)

// Client talks to one VaultSandbox gateway and owns the inboxes created
// or imported through it. Closing the client disposes all of them.
type Client struct {
	api    *api.Client
	opts   clientOptions
	logger *slog.Logger

	sse     *delivery.SSEStrategy
	polling *delivery.PollingStrategy

	mu      sync.Mutex
	info    *api.ServerInfo
	inboxes map[string]*Inbox // keyed by inbox hash
	closed  bool
}

// New creates a client for the given API key.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("vaultsandbox: API key is required")
	}

	o := defaultClientOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	apiClient := api.New(o.baseURL, apiKey, o.httpClient, logger)
	return &Client{
		api:     apiClient,
		opts:    o,
		logger:  logger,
		sse:     delivery.NewSSE(apiClient, o.sseConfig, logger),
		polling: delivery.NewPolling(logger),
		inboxes: make(map[string]*Inbox),
	}, nil
}

// ServerInfo describes the gateway's capabilities.
type ServerInfo struct {
	ServerSigPk    string
	Context        string
	MaxTTL         int
	DefaultTTL     int
	SSEConsole     bool
	AllowedDomains []string
}

// GetServerInfo fetches the gateway's capabilities and pinned signing
// key.
func (c *Client) GetServerInfo(ctx context.Context) (*ServerInfo, error) {
	info, err := c.serverInfo(ctx)
	if err != nil {
		return nil, err
	}
	return &ServerInfo{
		ServerSigPk:    info.ServerSigPk,
		Context:        info.Context,
		MaxTTL:         info.MaxTTL,
		DefaultTTL:     info.DefaultTTL,
		SSEConsole:     info.SSEConsole,
		AllowedDomains: info.AllowedDomains,
	}, nil
}

// serverInfo fetches and caches the gateway's server-info response, and
// rejects servers advertising an algorithm suite this client does not
// implement.
func (c *Client) serverInfo(ctx context.Context) (*api.ServerInfo, error) {
	c.mu.Lock()
	cached := c.info
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	info, err := c.api.GetServerInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch server info: %w", err)
	}
	if err := info.Algs.Check(); err != nil {
		return nil, fmt.Errorf("vaultsandbox: %w", err)
	}

	c.mu.Lock()
	c.info = info
	c.mu.Unlock()
	return info, nil
}

// CreateInbox registers a new inbox. The KEM key pair is generated
// locally; only the public half is sent to the gateway.
func (c *Client) CreateInbox(ctx context.Context, opts ...InboxOption) (*Inbox, error) {
	var o inboxOptions
	for _, opt := range opts {
		opt(&o)
	}

	info, err := c.serverInfo(ctx)
	if err != nil {
		return nil, err
	}

	keys, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("vaultsandbox: %w", err)
	}
	kemPk, err := keys.PublicBase64()
	if err != nil {
		return nil, fmt.Errorf("vaultsandbox: %w", err)
	}

	req := &api.CreateInboxRequest{
		ClientKemPk:  kemPk,
		EmailAddress: o.emailAddress,
	}
	if o.ttl > 0 {
		req.TTL = int(o.ttl / time.Second)
	}

	resp, err := c.api.CreateInbox(ctx, req)
	if err != nil {
		return nil, err
	}

	serverSigPk := resp.ServerSigPk
	if serverSigPk == "" {
		serverSigPk = info.ServerSigPk
	}

	inbox := c.newInbox(resp.EmailAddress, resp.InboxHash, resp.ExpiresAt, keys, serverSigPk, info.Context)
	c.register(inbox)
	return inbox, nil
}

// ImportInbox reconstructs an inbox from a previous Export. The imported
// inbox keeps the exported server signing key pin.
func (c *Client) ImportInbox(ctx context.Context, exp *ExportedInbox) (*Inbox, error) {
	if exp == nil {
		return nil, errors.New("vaultsandbox: nil exported inbox")
	}

	keys, err := crypto.KeyPairFromBase64(exp.PublicKeyB64, exp.SecretKeyB64)
	if err != nil {
		return nil, fmt.Errorf("vaultsandbox: invalid exported keys: %w", err)
	}

	info, err := c.serverInfo(ctx)
	if err != nil {
		return nil, err
	}

	inbox := c.newInbox(exp.EmailAddress, exp.InboxHash, exp.ExpiresAt, keys, exp.ServerSigPk, info.Context)
	c.register(inbox)
	return inbox, nil
}

// DeleteInbox removes an inbox from the gateway and disposes the local
// handle if this client owns one.
func (c *Client) DeleteInbox(ctx context.Context, emailAddress string) error {
	if err := c.api.DeleteInbox(ctx, emailAddress); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return ErrInboxNotFound
		}
		return err
	}

	c.mu.Lock()
	var match *Inbox
	for hash, inbox := range c.inboxes {
		if inbox.EmailAddress() == emailAddress {
			match = inbox
			delete(c.inboxes, hash)
			break
		}
	}
	c.mu.Unlock()

	if match != nil {
		match.Dispose()
	}
	return nil
}

// Close disposes every inbox owned by this client. Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	inboxes := make([]*Inbox, 0, len(c.inboxes))
	for _, inbox := range c.inboxes {
		inboxes = append(inboxes, inbox)
	}
	c.inboxes = make(map[string]*Inbox)
	c.mu.Unlock()

	for _, inbox := range inboxes {
		inbox.Dispose()
	}
}

func (c *Client) register(inbox *Inbox) {
	c.mu.Lock()
	c.inboxes[inbox.InboxHash()] = inbox
	c.mu.Unlock()
}

// strategy returns the delivery strategy configured for this client.
func (c *Client) strategy() delivery.Strategy {
	if c.opts.strategy == StrategyPolling {
		return c.polling
	}
	return c.sse
}
