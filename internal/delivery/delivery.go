// Package delivery implements the two ways an inbox learns about new
// email: a persistent SSE subscription and interval polling. Both feed
// the same callbacks; the inbox above owns de-duplication.
package delivery

import (
	"context"
	"log/slog"
	"time"
)

// Event is one pushed notification naming a newly arrived email.
type Event struct {
	InboxHash string
	EmailID   string
}

// Subscription describes one inbox's delivery callbacks. OnReconcile runs
// on every (re)connect of the SSE strategy and on every tick of the
// polling strategy; OnEvent only fires for pushed notifications.
type Subscription struct {
	EmailAddress string
	InboxHash    string

	// Interval is the polling cadence. The SSE strategy ignores it.
	Interval time.Duration

	OnEvent     func(Event)
	OnReconcile func()
}

// Strategy is the common contract of the SSE and polling variants. A
// strategy is selected once per inbox at subscription time, never
// switched mid-flight.
type Strategy interface {
	// Subscribe starts delivery for one inbox. Subscribing an already
	// subscribed inbox is a no-op.
	Subscribe(ctx context.Context, sub Subscription)
	// Unsubscribe stops delivery for one inbox. Idempotent.
	Unsubscribe(inboxHash string)
	// Connected reports whether delivery for the inbox is currently live.
	Connected(inboxHash string) bool
}

// safeCall isolates a callback so a panicking or slow consumer cannot
// take down the delivery loop.
func safeCall(logger *slog.Logger, name string, fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("delivery callback panicked", "callback", name, "panic", r)
		}
	}()
	fn()
}
