package vaultsandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEmails(t *testing.T, stream <-chan *Email, n int, timeout time.Duration) []*Email {
	t.Helper()
	var got []*Email
	deadline := time.After(timeout)
	for len(got) < n {
		select {
		case email, ok := <-stream:
			require.True(t, ok, "stream closed after %d emails", len(got))
			got = append(got, email)
		case <-deadline:
			t.Fatalf("timed out with %d of %d emails", len(got), n)
		}
	}
	return got
}

func assertNoEmail(t *testing.T, stream <-chan *Email, d time.Duration) {
	t.Helper()
	select {
	case email, ok := <-stream:
		if ok {
			t.Fatalf("unexpected email %s", email.ID)
		}
	case <-time.After(d):
	}
}

func TestAtMostOnceDelivery(t *testing.T) {
	gw := newFakeGateway(t)
	_, inbox := newTestInbox(t, gw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := inbox.WatchEmails(ctx)
	require.NoError(t, err)

	// Let the push connection establish before sending.
	time.Sleep(100 * time.Millisecond)

	gw.addEmail("m1", "a@example.com", "first", "hello")
	got := collectEmails(t, stream, 1, 5*time.Second)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "first", got[0].Subject)

	// The same id pushed repeatedly, plus whatever reconciliation
	// discovers, must never surface twice.
	gw.pushDuplicate("m1")
	gw.pushDuplicate("m1")
	gw.pushDuplicate("m1")

	assertNoEmail(t, stream, 300*time.Millisecond)
}

func TestReconciliationConvergence(t *testing.T) {
	gw := newFakeGateway(t)

	// Emails exist before the inbox ever subscribes; polling-driven
	// reconciliation must surface all of them.
	gw.addEmail("m1", "a@example.com", "one", "")
	gw.addEmail("m2", "a@example.com", "two", "")
	gw.addEmail("m3", "a@example.com", "three", "")

	_, inbox := newTestInbox(t, gw, pollingOpts(20*time.Millisecond)...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := inbox.WatchEmails(ctx)
	require.NoError(t, err)

	got := collectEmails(t, stream, 3, 5*time.Second)
	ids := map[string]bool{}
	for _, email := range got {
		ids[email.ID] = true
	}
	assert.True(t, ids["m1"] && ids["m2"] && ids["m3"])

	// Nothing further: fingerprints now match, and matching
	// fingerprints must not re-deliver.
	assertNoEmail(t, stream, 200*time.Millisecond)
}

func TestReconciliationDropsRemovedIDs(t *testing.T) {
	gw := newFakeGateway(t)
	gw.addEmail("m1", "a@example.com", "one", "")

	_, inbox := newTestInbox(t, gw, pollingOpts(20*time.Millisecond)...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := inbox.WatchEmails(ctx)
	require.NoError(t, err)
	collectEmails(t, stream, 1, 5*time.Second)

	// Server-side deletion: silently dropped, no event.
	gw.removeEmail("m1")
	time.Sleep(100 * time.Millisecond)
	assertNoEmail(t, stream, 100*time.Millisecond)

	// The slot is free again: the same id re-appearing is new mail.
	gw.addEmail("m1", "a@example.com", "one again", "")
	got := collectEmails(t, stream, 1, 5*time.Second)
	assert.Equal(t, "one again", got[0].Subject)
}

func TestFailedFetchReleasesSlot(t *testing.T) {
	gw := newFakeGateway(t)
	_, inbox := newTestInbox(t, gw, pollingOpts(20*time.Millisecond)...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := inbox.WatchEmails(ctx)
	require.NoError(t, err)

	gw.failNextGets("m1", 2)
	gw.addEmail("m1", "a@example.com", "flaky", "")

	// Delivery succeeds once the transient failures pass; the id was
	// not blacklisted by the failed attempts.
	got := collectEmails(t, stream, 1, 5*time.Second)
	assert.Equal(t, "m1", got[0].ID)
	assert.GreaterOrEqual(t, gw.getCallCount("m1"), 3)
}

func TestDisposeTerminatesWatch(t *testing.T) {
	gw := newFakeGateway(t)
	_, inbox := newTestInbox(t, gw)

	stream, err := inbox.WatchEmails(context.Background())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for range stream {
		}
		close(done)
	}()

	inbox.Dispose()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watch stream did not end after dispose")
	}

	// Terminal state: everything fails fast, re-dispose is a no-op.
	_, err = inbox.GetEmails(context.Background())
	assert.ErrorIs(t, err, ErrInboxDisposed)
	_, err = inbox.WaitForEmail(context.Background())
	assert.ErrorIs(t, err, ErrInboxDisposed)
	inbox.Dispose()
}

func TestGetEmailsDoesNotConsumeStream(t *testing.T) {
	gw := newFakeGateway(t)
	_, inbox := newTestInbox(t, gw, pollingOpts(20*time.Millisecond)...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := inbox.WatchEmails(ctx)
	require.NoError(t, err)

	gw.addEmail("m1", "a@example.com", "subject", "body")

	// A point-in-time read sees the email regardless of stream state.
	emails, err := inbox.GetEmails(context.Background())
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, "body", emails[0].Text)

	// And the stream still delivers it exactly once.
	got := collectEmails(t, stream, 1, 5*time.Second)
	assert.Equal(t, "m1", got[0].ID)
}

func TestGetEmailNotFound(t *testing.T) {
	gw := newFakeGateway(t)
	_, inbox := newTestInbox(t, gw)

	_, err := inbox.GetEmail(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEmailNotFound)
}

func TestGetRawEmail(t *testing.T) {
	gw := newFakeGateway(t)
	_, inbox := newTestInbox(t, gw)

	gw.addEmail("m1", "a@example.com", "subject", "body")

	raw, err := inbox.GetRawEmail(context.Background(), "m1")
	require.NoError(t, err)
	assert.Contains(t, raw, "raw source of m1")
}

func TestGetEmailMetadata(t *testing.T) {
	gw := newFakeGateway(t)
	_, inbox := newTestInbox(t, gw)

	gw.addEmail("m1", "sender@example.com", "meta view", "body text")

	metas, err := inbox.GetEmailMetadata(context.Background())
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "sender@example.com", metas[0].From)
	assert.Equal(t, "meta view", metas[0].Subject)
}

func TestGetSyncStatus(t *testing.T) {
	gw := newFakeGateway(t)
	_, inbox := newTestInbox(t, gw)

	status, err := inbox.GetSyncStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, status.EmailCount)

	gw.addEmail("m1", "a@example.com", "one", "")
	gw.addEmail("m2", "a@example.com", "two", "")

	status, err = inbox.GetSyncStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, status.EmailCount)
	assert.NotEmpty(t, status.EmailsHash)
}

func TestDeleteEmailFreesDedupSlot(t *testing.T) {
	gw := newFakeGateway(t)
	_, inbox := newTestInbox(t, gw, pollingOpts(20*time.Millisecond)...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := inbox.WatchEmails(ctx)
	require.NoError(t, err)

	gw.addEmail("m1", "a@example.com", "one", "")
	collectEmails(t, stream, 1, 5*time.Second)

	require.NoError(t, inbox.DeleteEmail(context.Background(), "m1"))

	gw.addEmail("m1", "a@example.com", "resurrected", "")
	got := collectEmails(t, stream, 1, 5*time.Second)
	assert.Equal(t, "resurrected", got[0].Subject)
}
