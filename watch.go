package vaultsandbox

import (
	"context"
	"sync"
)

// WatchEmails streams every email that arrives from now on. The channel
// closes when ctx is cancelled or the inbox is disposed. Deletions are
// not reported: an email removed on the server silently disappears from
// future reconciliation, a known limitation of the gateway's event
// contract.
func (i *Inbox) WatchEmails(ctx context.Context) (<-chan *Email, error) {
	if err := i.ensureSubscribed(); err != nil {
		return nil, err
	}

	out := make(chan *Email)
	go func() {
		defer close(out)
		for {
			email, ok, err := i.events.Pop(ctx)
			if err != nil || !ok {
				return
			}
			select {
			case out <- email:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// InboxEvent is one email arriving on one of the watched inboxes.
type InboxEvent struct {
	Inbox *Inbox
	Email *Email
}

// WatchInboxes fans the streams of several inboxes into one channel,
// ordered by arrival. A failing or disposed inbox drops out without
// affecting the others; the channel closes when ctx is cancelled and
// every per-inbox watcher has stopped.
func (c *Client) WatchInboxes(ctx context.Context, inboxes ...*Inbox) <-chan *InboxEvent {
	out := make(chan *InboxEvent)

	var wg sync.WaitGroup
	for _, inbox := range inboxes {
		stream, err := inbox.WatchEmails(ctx)
		if err != nil {
			c.logger.Warn("watch skipped", "inbox", inbox.EmailAddress(), "error", err)
			continue
		}

		wg.Add(1)
		go func(inbox *Inbox) {
			defer wg.Done()
			for email := range stream {
				select {
				case out <- &InboxEvent{Inbox: inbox, Email: email}:
				case <-ctx.Done():
					return
				}
			}
		}(inbox)
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
