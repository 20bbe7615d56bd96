package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Push(2)
	q.Push(3)

	ctx := context.Background()
	for want := 1; want <= 3; want++ {
		got, ok, err := q.Pop(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueuePopBlocksUntilPush(t *testing.T) {
	q := New[string]()

	done := make(chan string, 1)
	go func() {
		v, ok, err := q.Pop(context.Background())
		if err == nil && ok {
			done <- v
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push("hello")

	select {
	case v := <-done:
		assert.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake after Push")
	}
}

func TestQueuePopCancellation(t *testing.T) {
	q := New[int]()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, _, err := q.Pop(ctx)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Pop did not observe cancellation")
	}
}

func TestQueueClose(t *testing.T) {
	t.Run("wakes blocked readers with end-of-stream", func(t *testing.T) {
		q := New[int]()

		okCh := make(chan bool, 1)
		go func() {
			_, ok, err := q.Pop(context.Background())
			if err == nil {
				okCh <- ok
			}
		}()

		time.Sleep(20 * time.Millisecond)
		q.Close()

		select {
		case ok := <-okCh:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("Pop did not observe Close")
		}
	})

	t.Run("buffered items survive close", func(t *testing.T) {
		q := New[int]()
		q.Push(42)
		q.Close()

		v, ok, err := q.Pop(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 42, v)

		_, ok, err = q.Pop(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("push after close is dropped", func(t *testing.T) {
		q := New[int]()
		q.Close()
		q.Push(1)
		assert.Equal(t, 0, q.Len())
	})

	t.Run("idempotent", func(t *testing.T) {
		q := New[int]()
		q.Close()
		q.Close()
		assert.True(t, q.Closed())
	})
}

func TestQueueTryPop(t *testing.T) {
	q := New[int]()
	_, ok := q.TryPop()
	assert.False(t, ok)

	q.Push(7)
	v, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, 7, v)
}
