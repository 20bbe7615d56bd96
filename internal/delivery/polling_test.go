package delivery

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestPollingReconcilesEachTick(t *testing.T) {
	p := NewPolling(nil)

	var count atomic.Int64
	p.Subscribe(context.Background(), Subscription{
		InboxHash:   "h1",
		Interval:    10 * time.Millisecond,
		OnReconcile: func() { count.Add(1) },
	})
	defer p.Unsubscribe("h1")

	waitFor(t, func() bool { return count.Load() >= 3 }, "expected repeated reconciliation ticks")
	assert.True(t, p.Connected("h1"))
}

func TestPollingUnsubscribeStopsLoop(t *testing.T) {
	p := NewPolling(nil)

	var count atomic.Int64
	p.Subscribe(context.Background(), Subscription{
		InboxHash:   "h1",
		Interval:    10 * time.Millisecond,
		OnReconcile: func() { count.Add(1) },
	})
	waitFor(t, func() bool { return count.Load() >= 1 }, "loop never started")

	p.Unsubscribe("h1")
	assert.False(t, p.Connected("h1"))

	settled := count.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, count.Load(), settled+1, "loop kept ticking after unsubscribe")

	// Idempotent.
	p.Unsubscribe("h1")
}

func TestPollingSubscribeTwiceIsNoop(t *testing.T) {
	p := NewPolling(nil)
	defer p.Unsubscribe("h1")

	var count atomic.Int64
	sub := Subscription{
		InboxHash:   "h1",
		Interval:    time.Hour,
		OnReconcile: func() { count.Add(1) },
	}
	p.Subscribe(context.Background(), sub)
	p.Subscribe(context.Background(), sub)

	// Only the immediate first pass of the single loop should run.
	waitFor(t, func() bool { return count.Load() >= 1 }, "loop never started")
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, int64(1), count.Load())
}

func TestPollingSurvivesPanickingCallback(t *testing.T) {
	p := NewPolling(nil)
	defer p.Unsubscribe("h1")

	var count atomic.Int64
	p.Subscribe(context.Background(), Subscription{
		InboxHash: "h1",
		Interval:  10 * time.Millisecond,
		OnReconcile: func() {
			count.Add(1)
			panic("bad reconcile")
		},
	})

	waitFor(t, func() bool { return count.Load() >= 3 }, "loop died after callback panic")
}
