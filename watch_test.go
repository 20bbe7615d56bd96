package vaultsandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectInboxEvents(t *testing.T, stream <-chan *InboxEvent, n int, timeout time.Duration) []*InboxEvent {
	t.Helper()
	var got []*InboxEvent
	deadline := time.After(timeout)
	for len(got) < n {
		select {
		case ev, ok := <-stream:
			require.True(t, ok, "stream closed after %d events", len(got))
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("timed out with %d of %d events", len(got), n)
		}
	}
	return got
}

func TestWatchEmailsContextCancelClosesStream(t *testing.T) {
	gw := newFakeGateway(t)
	_, inbox := newTestInbox(t, gw)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := inbox.WatchEmails(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-stream:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not close after cancel")
	}
}

func TestWatchInboxesFanIn(t *testing.T) {
	gw := newFakeGateway(t)
	client, first := newTestInbox(t, gw, pollingOpts(20*time.Millisecond)...)

	second, err := client.CreateInbox(t.Context())
	require.NoError(t, err)
	require.NotEqual(t, first.InboxHash(), second.InboxHash())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := client.WatchInboxes(ctx, first, second)

	// The fake gateway shares one mail store, so a single arrival shows
	// up once per watched inbox.
	gw.addEmail("m1", "a@example.com", "fan-in", "")

	got := collectInboxEvents(t, stream, 2, 5*time.Second)
	seen := map[string]bool{}
	for _, ev := range got {
		require.NotNil(t, ev.Inbox)
		assert.Equal(t, "m1", ev.Email.ID)
		seen[ev.Inbox.InboxHash()] = true
	}
	assert.True(t, seen[first.InboxHash()])
	assert.True(t, seen[second.InboxHash()])
}

func TestWatchInboxesSurvivesOneDisposal(t *testing.T) {
	gw := newFakeGateway(t)
	client, first := newTestInbox(t, gw, pollingOpts(20*time.Millisecond)...)

	second, err := client.CreateInbox(t.Context())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := client.WatchInboxes(ctx, first, second)

	second.Dispose()

	gw.addEmail("m1", "a@example.com", "still flowing", "")

	got := collectInboxEvents(t, stream, 1, 5*time.Second)
	assert.Equal(t, first.InboxHash(), got[0].Inbox.InboxHash())
}

func TestWatchInboxesSkipsDisposedInbox(t *testing.T) {
	gw := newFakeGateway(t)
	client, first := newTestInbox(t, gw, pollingOpts(20*time.Millisecond)...)

	second, err := client.CreateInbox(t.Context())
	require.NoError(t, err)
	second.Dispose()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream := client.WatchInboxes(ctx, first, second)

	gw.addEmail("m1", "a@example.com", "one watcher", "")

	got := collectInboxEvents(t, stream, 1, 5*time.Second)
	assert.Equal(t, first.InboxHash(), got[0].Inbox.InboxHash())
}

func TestWatchInboxesClosesOnCancel(t *testing.T) {
	gw := newFakeGateway(t)
	client, first := newTestInbox(t, gw)

	ctx, cancel := context.WithCancel(context.Background())
	stream := client.WatchInboxes(ctx, first)

	cancel()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-stream:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("fan-in stream did not close after cancel")
		}
	}
}
