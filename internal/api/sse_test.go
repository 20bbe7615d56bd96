package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sseHandler(t *testing.T, frames []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)

		for _, frame := range frames {
			fmt.Fprint(w, frame)
			flusher.Flush()
		}
		<-r.Context().Done()
	}
}

func TestEventStreamParsesFrames(t *testing.T) {
	frames := []string{
		": connected\n\n",
		"event: email\ndata: {\"inboxId\":\"h1\",\"emailId\":\"m1\"}\n\n",
		"data: {\"inboxId\":\"h1\",\"emailId\":\"m2\"}\n\n",
		"event: chaos\ndata: {\"emailId\":\"ignored\"}\n\n",
		"event: email\ndata: {\"inboxId\":\"h1\",\n" + "data: \"emailId\":\"m3\"}\n\n",
	}
	srv := httptest.NewServer(sseHandler(t, frames))
	defer srv.Close()

	c := New(srv.URL, "k", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := c.OpenEventStream(ctx, "a@b.test")
	require.NoError(t, err)
	defer stream.Close()

	var ids []string
	timeout := time.After(5 * time.Second)
	for len(ids) < 3 {
		select {
		case ev, ok := <-stream.Events():
			require.True(t, ok, "stream ended early")
			ids = append(ids, ev.EmailID)
		case <-timeout:
			t.Fatalf("timed out, got %v", ids)
		}
	}
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids)
}

func TestEventStreamCloseEndsChannel(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, []string{": connected\n\n"}))
	defer srv.Close()

	c := New(srv.URL, "k", nil, nil)
	stream, err := c.OpenEventStream(context.Background(), "a@b.test")
	require.NoError(t, err)

	stream.Close()

	select {
	case _, ok := <-stream.Events():
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("events channel did not close")
	}
	assert.NoError(t, stream.Err())
}

func TestOpenEventStreamRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"nope"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "k", nil, nil)
	_, err := c.OpenEventStream(context.Background(), "a@b.test")
	assert.ErrorIs(t, err, ErrNotFound)
}
