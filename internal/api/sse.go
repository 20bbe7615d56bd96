package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// sse buffer bounds: a single event carries at most one encrypted
// metadata payload, so 1MB of headroom is generous.
const (
	sseInitialBuffer = 64 * 1024
	sseMaxBuffer     = 1024 * 1024
)

// EventStream is one open SSE connection to an inbox's event endpoint.
// Events are delivered on Events until the connection drops or the
// context is cancelled, after which the channel closes and Err reports
// the cause.
type EventStream struct {
	events chan *SSEEvent

	mu  sync.Mutex
	err error

	cancel context.CancelFunc
}

// OpenEventStream connects to the push channel of one inbox. The returned
// stream uses its own unbounded-lifetime HTTP request; the configured
// request timeout does not apply.
func (c *Client) OpenEventStream(ctx context.Context, emailAddress string) (*EventStream, error) {
	ctx, cancel := context.WithCancel(ctx)

	path := c.baseURL + "/api/inboxes/" + url.PathEscape(emailAddress) + "/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// The streaming request must outlive the regular request timeout.
	streamClient := &http.Client{Transport: c.http.Transport}

	resp, err := streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		cancel()
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		msg := errorMessage(resp.Body)
		resp.Body.Close()
		cancel()
		return nil, &Error{StatusCode: resp.StatusCode, Message: msg}
	}

	s := &EventStream{
		events: make(chan *SSEEvent),
		cancel: cancel,
	}

	go func() {
		defer close(s.events)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, sseInitialBuffer), sseMaxBuffer)

		var eventName string
		var data strings.Builder

		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				s.dispatch(ctx, eventName, data.String())
				eventName = ""
				data.Reset()
			case strings.HasPrefix(line, ":"):
				// Comment/keepalive.
			case strings.HasPrefix(line, "event:"):
				eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			s.setErr(err)
		}
	}()

	return s, nil
}

// dispatch parses one complete SSE frame and forwards email events.
func (s *EventStream) dispatch(ctx context.Context, name, data string) {
	if data == "" {
		return
	}
	if name != "" && name != "email" {
		return
	}

	var event SSEEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		// Malformed frames are skipped; reconciliation covers any gap.
		return
	}

	select {
	case s.events <- &event:
	case <-ctx.Done():
	}
}

// Events returns the channel of pushed events. It closes when the
// connection ends for any reason.
func (s *EventStream) Events() <-chan *SSEEvent { return s.events }

// Err reports why the stream ended. It is nil after a clean shutdown via
// Close or context cancellation.
func (s *EventStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *EventStream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Close tears the connection down. Safe to call more than once.
func (s *EventStream) Close() { s.cancel() }
