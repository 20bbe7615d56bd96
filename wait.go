package vaultsandbox

import (
	"context"
	"regexp"
	"time"
)

// DefaultWaitTimeout applies when no WithWaitTimeout option is given.
const DefaultWaitTimeout = 60 * time.Second

type waitConfig struct {
	timeout    time.Duration
	predicates []func(*Email) bool
}

func newWaitConfig(opts []WaitOption) waitConfig {
	cfg := waitConfig{timeout: DefaultWaitTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (cfg *waitConfig) matches(email *Email) bool {
	for _, p := range cfg.predicates {
		if !p(email) {
			return false
		}
	}
	return true
}

// WaitOption configures WaitForEmail and WaitForEmailCount. Filter
// options combine with AND.
type WaitOption func(*waitConfig)

// WithWaitTimeout sets the maximum time to wait. The caller's context
// can still cancel the wait earlier.
func WithWaitTimeout(d time.Duration) WaitOption {
	return func(cfg *waitConfig) { cfg.timeout = d }
}

// WithSubject matches emails with this exact subject.
func WithSubject(subject string) WaitOption {
	return func(cfg *waitConfig) {
		cfg.predicates = append(cfg.predicates, func(e *Email) bool {
			return e.Subject == subject
		})
	}
}

// WithSubjectRegex matches emails whose subject matches the pattern.
func WithSubjectRegex(re *regexp.Regexp) WaitOption {
	return func(cfg *waitConfig) {
		cfg.predicates = append(cfg.predicates, func(e *Email) bool {
			return re.MatchString(e.Subject)
		})
	}
}

// WithFrom matches emails with this exact sender.
func WithFrom(from string) WaitOption {
	return func(cfg *waitConfig) {
		cfg.predicates = append(cfg.predicates, func(e *Email) bool {
			return e.From == from
		})
	}
}

// WithFromRegex matches emails whose sender matches the pattern.
func WithFromRegex(re *regexp.Regexp) WaitOption {
	return func(cfg *waitConfig) {
		cfg.predicates = append(cfg.predicates, func(e *Email) bool {
			return re.MatchString(e.From)
		})
	}
}

// WithPredicate matches emails satisfying an arbitrary predicate.
func WithPredicate(p func(*Email) bool) WaitOption {
	return func(cfg *waitConfig) { cfg.predicates = append(cfg.predicates, p) }
}

// WaitForEmail blocks until an email matching the options arrives.
// Emails already in the inbox are checked first, so a match that arrived
// before the call is returned immediately. The timeout races
// independently of connectivity: an unreachable gateway still produces a
// WaitTimeoutError rather than a hang.
func (i *Inbox) WaitForEmail(ctx context.Context, opts ...WaitOption) (*Email, error) {
	if err := i.ensureSubscribed(); err != nil {
		return nil, err
	}
	cfg := newWaitConfig(opts)

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	// Check what the server already holds. Fetch failures are absorbed:
	// the stream may still produce a match before the deadline.
	if existing, err := i.GetEmails(ctx); err == nil {
		for _, email := range existing {
			if cfg.matches(email) {
				return email, nil
			}
		}
	} else {
		i.client.logger.Warn("initial fetch failed, falling back to stream",
			"inbox", i.emailAddress, "error", err)
	}

	for {
		email, ok, err := i.events.Pop(ctx)
		if err != nil {
			return nil, i.waitErr(ctx, &cfg)
		}
		if !ok {
			return nil, ErrInboxDisposed
		}
		if cfg.matches(email) {
			return email, nil
		}
	}
}

// WaitForEmailCount blocks until the inbox holds at least n matching
// emails and returns them. Without filter options the authoritative
// server count decides, re-queried after every stream arrival, since a
// queued email does not necessarily advance the count by exactly one
// when deletions interleave. With filters, matches are counted locally.
func (i *Inbox) WaitForEmailCount(ctx context.Context, n int, opts ...WaitOption) ([]*Email, error) {
	if err := i.ensureSubscribed(); err != nil {
		return nil, err
	}
	cfg := newWaitConfig(opts)

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	for {
		if emails, done := i.countReached(ctx, n, &cfg); done {
			return emails, nil
		}

		_, ok, err := i.events.Pop(ctx)
		if err != nil {
			return nil, i.waitErr(ctx, &cfg)
		}
		if !ok {
			return nil, ErrInboxDisposed
		}
	}
}

// countReached checks the completion condition and, when met, returns
// the matching emails.
func (i *Inbox) countReached(ctx context.Context, n int, cfg *waitConfig) ([]*Email, bool) {
	if len(cfg.predicates) == 0 {
		status, err := i.client.api.GetSyncStatus(ctx, i.emailAddress)
		if err != nil {
			i.client.logger.Warn("sync status fetch failed", "inbox", i.emailAddress, "error", err)
			return nil, false
		}
		if status.EmailCount < n {
			return nil, false
		}
		emails, err := i.GetEmails(ctx)
		if err != nil {
			i.client.logger.Warn("email fetch failed", "inbox", i.emailAddress, "error", err)
			return nil, false
		}
		return emails, true
	}

	emails, err := i.GetEmails(ctx)
	if err != nil {
		i.client.logger.Warn("email fetch failed", "inbox", i.emailAddress, "error", err)
		return nil, false
	}
	matched := make([]*Email, 0, n)
	for _, email := range emails {
		if cfg.matches(email) {
			matched = append(matched, email)
		}
	}
	if len(matched) < n {
		return nil, false
	}
	return matched, true
}

// waitErr distinguishes our own deadline from the caller's cancellation.
func (i *Inbox) waitErr(ctx context.Context, cfg *waitConfig) error {
	if ctx.Err() == context.DeadlineExceeded {
		return &WaitTimeoutError{Timeout: cfg.timeout}
	}
	return ctx.Err()
}
