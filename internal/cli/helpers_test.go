package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultsandbox/client-go/internal/config"
)

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"1h", time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"24h", 24 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"xd", 0, true},
		{"bogus", 0, true},
	}
	for _, tt := range tests {
		got, err := parseTTL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFormatExpiry(t *testing.T) {
	assert.Equal(t, "expired", formatExpiry(time.Now().Add(-time.Minute)))
	assert.Contains(t, formatExpiry(time.Now().Add(49*time.Hour)), "2d")
	assert.Contains(t, formatExpiry(time.Now().Add(90*time.Minute)), "1h")
	assert.Contains(t, formatExpiry(time.Now().Add(5*time.Minute)), "m")
}

func TestFormatRelativeTime(t *testing.T) {
	assert.Equal(t, "just now", formatRelativeTime(time.Now()))
	assert.Equal(t, "5m ago", formatRelativeTime(time.Now().Add(-5*time.Minute)))
	assert.Equal(t, "3h ago", formatRelativeTime(time.Now().Add(-3*time.Hour)))

	old := time.Date(2026, 1, 2, 13, 45, 0, 0, time.Local)
	assert.Equal(t, "2026-01-02 13:45", formatRelativeTime(old))
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "vsb_abc...wxyz", maskAPIKey("vsb_abc123456wxyz"))
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "****", maskAPIKey(""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-10", truncate("exactly-10", 10))
	assert.Equal(t, "a long ...", truncate("a long subject line", 10))
}

func TestResolveInbox(t *testing.T) {
	t.Setenv("VSB_CONFIG_DIR", t.TempDir())

	ks, err := config.LoadKeystore()
	require.NoError(t, err)

	_, err = resolveInbox(ks, "")
	assert.ErrorContains(t, err, "no active inbox")

	require.NoError(t, ks.Add(config.StoredInbox{
		Email:     "abc123@vaultsandbox.test",
		ID:        "hash-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	// Active fallback.
	inbox, err := resolveInbox(ks, "")
	require.NoError(t, err)
	assert.Equal(t, "abc123@vaultsandbox.test", inbox.Email)

	// Partial match.
	inbox, err = resolveInbox(ks, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc123@vaultsandbox.test", inbox.Email)

	_, err = resolveInbox(ks, "missing")
	assert.ErrorContains(t, err, "inbox not found")
}
