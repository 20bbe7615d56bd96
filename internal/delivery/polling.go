package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval is used when a subscription does not set one.
const DefaultPollInterval = 5 * time.Second

type pollSub struct {
	cancel context.CancelFunc
}

// PollingStrategy re-derives inbox state on a fixed cadence. There is no
// discrete per-email event; every tick runs a full reconciliation, which
// subsumes it.
type PollingStrategy struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[string]*pollSub
}

func NewPolling(logger *slog.Logger) *PollingStrategy {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PollingStrategy{
		logger: logger,
		subs:   make(map[string]*pollSub),
	}
}

func (p *PollingStrategy) Subscribe(ctx context.Context, sub Subscription) {
	p.mu.Lock()
	if _, ok := p.subs[sub.InboxHash]; ok {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.subs[sub.InboxHash] = &pollSub{cancel: cancel}
	p.mu.Unlock()

	interval := sub.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	go func() {
		// First pass runs immediately so a fresh subscription catches up
		// without waiting a full interval.
		safeCall(p.logger, "reconcile", sub.OnReconcile)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				safeCall(p.logger, "reconcile", sub.OnReconcile)
			}
		}
	}()
}

func (p *PollingStrategy) Unsubscribe(inboxHash string) {
	p.mu.Lock()
	entry, ok := p.subs[inboxHash]
	if ok {
		delete(p.subs, inboxHash)
	}
	p.mu.Unlock()

	if ok {
		entry.cancel()
	}
}

// Connected reports whether the poll loop for the inbox is running.
func (p *PollingStrategy) Connected(inboxHash string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.subs[inboxHash]
	return ok
}
