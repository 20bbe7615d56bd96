package vaultsandbox

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vaultsandbox/client-go/internal/api"
	"github.com/vaultsandbox/client-go/internal/synchash"
)

// fakeGateway is an in-memory stand-in for the VaultSandbox gateway,
// serving plaintext (non-encrypted) inbox records.
type fakeGateway struct {
	t *testing.T

	mu       sync.Mutex
	inboxSeq int
	order    []string
	emails   map[string]*api.RawEmail
	failGets map[string]int // id -> remaining GetEmail failures
	getCalls map[string]int
	sse      []chan string

	srv *httptest.Server
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	gw := &fakeGateway{
		t:        t,
		emails:   make(map[string]*api.RawEmail),
		failGets: make(map[string]int),
		getCalls: make(map[string]int),
	}
	gw.srv = httptest.NewServer(http.HandlerFunc(gw.handle))
	t.Cleanup(gw.srv.Close)
	return gw
}

func (gw *fakeGateway) URL() string { return gw.srv.URL }

// addEmail stores a plaintext record and pushes an SSE notification to
// every connected stream.
func (gw *fakeGateway) addEmail(id, from, subject, text string) {
	meta, _ := json.Marshal(map[string]any{
		"from":    from,
		"to":      []string{"inbox@vaultsandbox.test"},
		"subject": subject,
	})
	parsed, _ := json.Marshal(map[string]any{
		"text": text,
	})
	raw := &api.RawEmail{
		ID:         id,
		ReceivedAt: time.Now().UTC(),
		Metadata:   base64.StdEncoding.EncodeToString(meta),
		Parsed:     base64.StdEncoding.EncodeToString(parsed),
	}

	gw.mu.Lock()
	if _, exists := gw.emails[id]; !exists {
		gw.order = append(gw.order, id)
	}
	gw.emails[id] = raw
	streams := append([]chan string(nil), gw.sse...)
	gw.mu.Unlock()

	frame := fmt.Sprintf("event: email\ndata: {\"inboxId\":\"hash-1\",\"emailId\":%q}\n\n", id)
	for _, ch := range streams {
		select {
		case ch <- frame:
		case <-time.After(time.Second):
		}
	}
}

// pushDuplicate re-announces an existing id on the push channel.
func (gw *fakeGateway) pushDuplicate(id string) {
	gw.mu.Lock()
	streams := append([]chan string(nil), gw.sse...)
	gw.mu.Unlock()

	frame := fmt.Sprintf("event: email\ndata: {\"inboxId\":\"hash-1\",\"emailId\":%q}\n\n", id)
	for _, ch := range streams {
		select {
		case ch <- frame:
		case <-time.After(time.Second):
		}
	}
}

func (gw *fakeGateway) removeEmail(id string) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	delete(gw.emails, id)
	for n, existing := range gw.order {
		if existing == id {
			gw.order = append(gw.order[:n], gw.order[n+1:]...)
			break
		}
	}
}

// failNextGets makes the next n single-email fetches for id fail.
func (gw *fakeGateway) failNextGets(id string, n int) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.failGets[id] = n
}

func (gw *fakeGateway) getCallCount(id string) int {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	return gw.getCalls[id]
}

func (gw *fakeGateway) handle(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/server-info":
		writeJSON(w, map[string]any{"context": "test", "defaultTtl": 3600})
	case path == "/api/inboxes" && r.Method == http.MethodPost:
		gw.mu.Lock()
		gw.inboxSeq++
		n := gw.inboxSeq
		gw.mu.Unlock()
		writeJSON(w, map[string]any{
			"emailAddress": fmt.Sprintf("inbox-%d@vaultsandbox.test", n),
			"inboxHash":    fmt.Sprintf("hash-%d", n),
			"expiresAt":    time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		})
	case strings.HasSuffix(path, "/sync"):
		gw.mu.Lock()
		status := map[string]any{
			"emailCount": len(gw.order),
			"emailsHash": synchash.Compute(gw.order),
		}
		gw.mu.Unlock()
		writeJSON(w, status)
	case strings.HasSuffix(path, "/events"):
		gw.serveSSE(w, r)
	case strings.HasSuffix(path, "/emails"):
		gw.serveList(w, r)
	case strings.HasSuffix(path, "/raw"):
		gw.serveRaw(w, r)
	case strings.HasSuffix(path, "/read"):
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodDelete && strings.Contains(path, "/emails/"):
		gw.removeEmail(lastSegment(path))
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	case strings.Contains(path, "/emails/"):
		gw.serveOne(w, lastSegment(path))
	default:
		http.NotFound(w, r)
	}
}

func (gw *fakeGateway) serveList(w http.ResponseWriter, r *http.Request) {
	metadataOnly := r.URL.Query().Get("metadataOnly") == "true"

	gw.mu.Lock()
	list := make([]*api.RawEmail, 0, len(gw.order))
	for _, id := range gw.order {
		raw := *gw.emails[id]
		if metadataOnly {
			raw.Parsed = ""
		}
		list = append(list, &raw)
	}
	gw.mu.Unlock()

	writeJSON(w, map[string]any{"emails": list})
}

func (gw *fakeGateway) serveOne(w http.ResponseWriter, id string) {
	gw.mu.Lock()
	gw.getCalls[id]++
	if gw.failGets[id] > 0 {
		gw.failGets[id]--
		gw.mu.Unlock()
		http.Error(w, `{"error":"transient"}`, http.StatusInternalServerError)
		return
	}
	raw, ok := gw.emails[id]
	gw.mu.Unlock()

	if !ok {
		http.NotFound(w, nil)
		return
	}
	writeJSON(w, raw)
}

func (gw *fakeGateway) serveRaw(w http.ResponseWriter, r *http.Request) {
	// Path is .../emails/{id}/raw
	parts := strings.Split(strings.TrimSuffix(r.URL.Path, "/raw"), "/")
	id := parts[len(parts)-1]

	gw.mu.Lock()
	_, ok := gw.emails[id]
	gw.mu.Unlock()
	if !ok {
		http.NotFound(w, nil)
		return
	}
	source := "From: test\r\nSubject: raw source of " + id + "\r\n\r\nbody"
	writeJSON(w, map[string]any{
		"id":  id,
		"raw": base64.StdEncoding.EncodeToString([]byte(source)),
	})
}

func (gw *fakeGateway) serveSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	require.True(gw.t, ok)
	w.Header().Set("Content-Type", "text/event-stream")
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ch := make(chan string, 16)
	gw.mu.Lock()
	gw.sse = append(gw.sse, ch)
	gw.mu.Unlock()
	defer func() {
		gw.mu.Lock()
		for n, existing := range gw.sse {
			if existing == ch {
				gw.sse = append(gw.sse[:n], gw.sse[n+1:]...)
				break
			}
		}
		gw.mu.Unlock()
	}()

	for {
		select {
		case frame := <-ch:
			fmt.Fprint(w, frame)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func lastSegment(path string) string {
	parts := strings.Split(path, "/")
	return parts[len(parts)-1]
}

// newTestInbox spins up a client + inbox against the fake gateway.
func newTestInbox(t *testing.T, gw *fakeGateway, opts ...Option) (*Client, *Inbox) {
	t.Helper()
	opts = append([]Option{WithBaseURL(gw.URL())}, opts...)
	client, err := New("test-key", opts...)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	inbox, err := client.CreateInbox(t.Context())
	require.NoError(t, err)
	return client, inbox
}

// pollingOpts makes tests deterministic: reconciliation runs on a tight
// loop instead of a push channel.
func pollingOpts(interval time.Duration) []Option {
	return []Option{
		WithDeliveryStrategy(StrategyPolling),
		WithPollInterval(interval),
	}
}
