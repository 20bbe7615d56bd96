package vaultsandbox

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForEmailAlreadyArrived(t *testing.T) {
	gw := newFakeGateway(t)
	_, inbox := newTestInbox(t, gw)

	gw.addEmail("m1", "noreply@example.com", "Verify your account", "click here")

	// The email predates the wait call; it must be found immediately,
	// not after a delivery round-trip.
	start := time.Now()
	email, err := inbox.WaitForEmail(context.Background(),
		WithSubject("Verify your account"),
		WithWaitTimeout(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "m1", email.ID)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestWaitForEmailArrivesLater(t *testing.T) {
	gw := newFakeGateway(t)
	_, inbox := newTestInbox(t, gw)

	go func() {
		time.Sleep(200 * time.Millisecond)
		gw.addEmail("m1", "noreply@example.com", "password reset", "")
	}()

	email, err := inbox.WaitForEmail(context.Background(),
		WithSubjectRegex(regexp.MustCompile(`(?i)password`)),
		WithWaitTimeout(10*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "m1", email.ID)
}

func TestWaitForEmailFilters(t *testing.T) {
	gw := newFakeGateway(t)
	_, inbox := newTestInbox(t, gw, pollingOpts(20*time.Millisecond)...)

	gw.addEmail("m1", "spam@example.com", "offer", "")
	gw.addEmail("m2", "noreply@shop.example", "receipt", "")

	email, err := inbox.WaitForEmail(context.Background(),
		WithFromRegex(regexp.MustCompile(`@shop\.example$`)),
		WithWaitTimeout(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "m2", email.ID)

	email, err = inbox.WaitForEmail(context.Background(),
		WithFrom("spam@example.com"),
		WithPredicate(func(e *Email) bool { return e.Subject == "offer" }),
		WithWaitTimeout(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "m1", email.ID)
}

func TestWaitForEmailTimeoutPrecision(t *testing.T) {
	gw := newFakeGateway(t)
	_, inbox := newTestInbox(t, gw)

	const timeout = 300 * time.Millisecond
	start := time.Now()
	_, err := inbox.WaitForEmail(context.Background(),
		WithSubject("never arrives"),
		WithWaitTimeout(timeout))
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrWaitTimeout)
	var wte *WaitTimeoutError
	require.ErrorAs(t, err, &wte)
	assert.Equal(t, timeout, wte.Timeout)

	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+2*time.Second)
}

func TestWaitForEmailTimesOutWhenServerUnreachable(t *testing.T) {
	gw := newFakeGateway(t)
	_, inbox := newTestInbox(t, gw, pollingOpts(50*time.Millisecond)...)

	// Kill the gateway: fetches fail, but the timeout still fires.
	gw.srv.Close()

	start := time.Now()
	_, err := inbox.WaitForEmail(context.Background(), WithWaitTimeout(300*time.Millisecond))
	assert.ErrorIs(t, err, ErrWaitTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWaitForEmailCallerCancellation(t *testing.T) {
	gw := newFakeGateway(t)
	_, inbox := newTestInbox(t, gw)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err := inbox.WaitForEmail(ctx, WithWaitTimeout(time.Minute))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitForEmailCount(t *testing.T) {
	t.Run("already satisfied returns immediately", func(t *testing.T) {
		gw := newFakeGateway(t)
		_, inbox := newTestInbox(t, gw)

		gw.addEmail("m1", "a@example.com", "one", "")
		gw.addEmail("m2", "a@example.com", "two", "")

		emails, err := inbox.WaitForEmailCount(context.Background(), 2,
			WithWaitTimeout(5*time.Second))
		require.NoError(t, err)
		assert.Len(t, emails, 2)
	})

	t.Run("drains arrivals until the count is reached", func(t *testing.T) {
		gw := newFakeGateway(t)
		_, inbox := newTestInbox(t, gw, pollingOpts(20*time.Millisecond)...)

		gw.addEmail("m1", "a@example.com", "one", "")
		go func() {
			time.Sleep(100 * time.Millisecond)
			gw.addEmail("m2", "a@example.com", "two", "")
			time.Sleep(100 * time.Millisecond)
			gw.addEmail("m3", "a@example.com", "three", "")
		}()

		emails, err := inbox.WaitForEmailCount(context.Background(), 3,
			WithWaitTimeout(10*time.Second))
		require.NoError(t, err)
		assert.Len(t, emails, 3)
	})

	t.Run("filtered count", func(t *testing.T) {
		gw := newFakeGateway(t)
		_, inbox := newTestInbox(t, gw, pollingOpts(20*time.Millisecond)...)

		gw.addEmail("m1", "a@example.com", "keep", "")
		gw.addEmail("m2", "a@example.com", "drop", "")
		go func() {
			time.Sleep(100 * time.Millisecond)
			gw.addEmail("m3", "a@example.com", "keep", "")
		}()

		emails, err := inbox.WaitForEmailCount(context.Background(), 2,
			WithSubject("keep"),
			WithWaitTimeout(10*time.Second))
		require.NoError(t, err)
		require.Len(t, emails, 2)
		for _, email := range emails {
			assert.Equal(t, "keep", email.Subject)
		}
	})

	t.Run("times out below the count", func(t *testing.T) {
		gw := newFakeGateway(t)
		_, inbox := newTestInbox(t, gw)

		gw.addEmail("m1", "a@example.com", "one", "")

		_, err := inbox.WaitForEmailCount(context.Background(), 5,
			WithWaitTimeout(300*time.Millisecond))
		assert.ErrorIs(t, err, ErrWaitTimeout)
	})
}
