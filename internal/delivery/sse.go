package delivery

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/vaultsandbox/client-go/internal/api"
)

// SSEConfig bounds the reconnect behaviour of the streaming strategy.
type SSEConfig struct {
	// MaxRetries is the number of consecutive failed attempts tolerated
	// before the subscription gives up and reports disconnected. Failed
	// dials and short-lived streams both count; only a connection that
	// stays up for healthyConnAge resets the counter.
	MaxRetries int
	// RetryDelay is the base backoff between attempts; it doubles per
	// consecutive failure up to MaxRetryDelay, with jitter.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// healthyConnAge is how long a stream must stay up before it counts as
// a recovery rather than another flap.
const healthyConnAge = 30 * time.Second

// DefaultSSEConfig matches the gateway's recommended client behaviour.
func DefaultSSEConfig() SSEConfig {
	return SSEConfig{
		MaxRetries:    10,
		RetryDelay:    time.Second,
		MaxRetryDelay: 30 * time.Second,
	}
}

type sseSub struct {
	cancel    context.CancelFunc
	connected bool
}

// SSEStrategy keeps one long-lived event stream per subscribed inbox and
// reconciles on every (re)connect, since a connection gap may have missed
// events.
type SSEStrategy struct {
	api    *api.Client
	cfg    SSEConfig
	logger *slog.Logger

	mu   sync.Mutex
	subs map[string]*sseSub
}

func NewSSE(apiClient *api.Client, cfg SSEConfig, logger *slog.Logger) *SSEStrategy {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultSSEConfig().MaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultSSEConfig().RetryDelay
	}
	if cfg.MaxRetryDelay <= 0 {
		cfg.MaxRetryDelay = DefaultSSEConfig().MaxRetryDelay
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SSEStrategy{
		api:    apiClient,
		cfg:    cfg,
		logger: logger,
		subs:   make(map[string]*sseSub),
	}
}

func (s *SSEStrategy) Subscribe(ctx context.Context, sub Subscription) {
	s.mu.Lock()
	if _, ok := s.subs[sub.InboxHash]; ok {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	entry := &sseSub{cancel: cancel}
	s.subs[sub.InboxHash] = entry
	s.mu.Unlock()

	go s.run(ctx, sub, entry)
}

func (s *SSEStrategy) Unsubscribe(inboxHash string) {
	s.mu.Lock()
	entry, ok := s.subs[inboxHash]
	if ok {
		delete(s.subs, inboxHash)
	}
	s.mu.Unlock()

	if ok {
		entry.cancel()
	}
}

func (s *SSEStrategy) Connected(inboxHash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.subs[inboxHash]
	return ok && entry.connected
}

// run owns one inbox's connect/reconnect loop. Exhausting the retry
// budget leaves the subscription registered but disconnected; callers
// detect loss of freshness through Connected, never through an error.
func (s *SSEStrategy) run(ctx context.Context, sub Subscription, entry *sseSub) {
	retries := 0
	for ctx.Err() == nil {
		stream, err := s.api.OpenEventStream(ctx, sub.EmailAddress)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("sse connect failed",
				"inbox", sub.EmailAddress, "attempt", retries+1, "error", err)
		} else {
			connectedAt := time.Now()
			s.setConnected(entry, true)

			// The gap before (or between) connections may have dropped
			// events; reconcile before consuming the stream.
			safeCall(s.logger, "reconcile", sub.OnReconcile)

			for event := range stream.Events() {
				if sub.OnEvent == nil {
					continue
				}
				ev := Event{InboxHash: event.InboxID, EmailID: event.EmailID}
				safeCall(s.logger, "event", func() { sub.OnEvent(ev) })
			}

			s.setConnected(entry, false)
			if err := stream.Err(); err != nil {
				s.logger.Warn("sse stream dropped", "inbox", sub.EmailAddress, "error", err)
			}
			if ctx.Err() != nil {
				return
			}
			// A stream that dies right after connecting burns the same
			// budget as a failed dial, so a gateway that accepts and
			// immediately closes cannot drive a zero-delay reconnect loop.
			if time.Since(connectedAt) >= healthyConnAge {
				retries = 0
			}
		}

		retries++
		if retries > s.cfg.MaxRetries {
			s.logger.Error("sse retries exhausted, subscription going dark",
				"inbox", sub.EmailAddress)
			return
		}
		if !sleepCtx(ctx, s.backoff(retries)) {
			return
		}
	}
}

func (s *SSEStrategy) setConnected(entry *sseSub, v bool) {
	s.mu.Lock()
	entry.connected = v
	s.mu.Unlock()
}

func (s *SSEStrategy) backoff(attempt int) time.Duration {
	d := s.cfg.RetryDelay << (attempt - 1)
	if d <= 0 || d > s.cfg.MaxRetryDelay {
		d = s.cfg.MaxRetryDelay
	}
	// Jitter in [0, d/2) spreads reconnect storms.
	return d + rand.N(d/2+1)
}

// sleepCtx sleeps d unless ctx fires first. Reports false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
