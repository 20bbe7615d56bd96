package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	vaultsandbox "github.com/vaultsandbox/client-go"
	"github.com/vaultsandbox/client-go/internal/config"
)

// getOutput resolves the output format: flag > config > default.
func getOutput(cmd *cobra.Command) string {
	if f, err := cmd.Flags().GetString("output"); err == nil && f != "" {
		return f
	}
	return config.Output()
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func getArg(args []string, i int, fallback string) string {
	if i < len(args) {
		return args[i]
	}
	return fallback
}

func loadKeystore() (*config.Keystore, error) {
	ks, err := config.LoadKeystore()
	if err != nil {
		return nil, fmt.Errorf("failed to load keystore: %w", err)
	}
	return ks, nil
}

// resolveInbox picks an inbox by query (exact or partial address), or
// the active inbox when the query is empty.
func resolveInbox(ks *config.Keystore, query string) (*config.StoredInbox, error) {
	if query != "" {
		inbox, err := ks.Find(query)
		if err != nil {
			return nil, fmt.Errorf("inbox not found: %s", query)
		}
		return inbox, nil
	}
	inbox, err := ks.Active()
	if err != nil {
		return nil, fmt.Errorf("no active inbox. Create one with 'vsb inbox create' or set with 'vsb inbox use'")
	}
	return inbox, nil
}

// openInbox resolves a stored inbox and imports it into a fresh client.
// The cleanup closes the client and must always be called.
func openInbox(ctx context.Context, query string) (*vaultsandbox.Inbox, func(), error) {
	noop := func() {}

	ks, err := loadKeystore()
	if err != nil {
		return nil, noop, err
	}
	stored, err := resolveInbox(ks, query)
	if err != nil {
		return nil, noop, err
	}

	client, err := config.NewClient()
	if err != nil {
		return nil, noop, err
	}
	cleanup := func() { client.Close() }

	inbox, err := client.ImportInbox(ctx, stored.ToExport())
	if err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("failed to import inbox: %w", err)
	}
	return inbox, cleanup, nil
}

// fetchEmail gets an email by id, or the most recent one when id is
// empty.
func fetchEmail(ctx context.Context, inbox *vaultsandbox.Inbox, id string) (*vaultsandbox.Email, error) {
	if id != "" {
		email, err := inbox.GetEmail(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get email %s: %w", id, err)
		}
		return email, nil
	}
	emails, err := inbox.GetEmails(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get emails: %w", err)
	}
	if len(emails) == 0 {
		return nil, fmt.Errorf("no emails found in inbox")
	}
	return emails[0], nil
}

// parseTTL parses durations with a day suffix on top of the standard
// units, e.g. "90m", "24h", "7d".
func parseTTL(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid day value: %s", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// formatExpiry renders time-until-expiry as a compact "2d 4h" style
// string, or "expired".
func formatExpiry(expiresAt time.Time) string {
	left := time.Until(expiresAt)
	if left <= 0 {
		return "expired"
	}
	switch {
	case left >= 24*time.Hour:
		days := int(left.Hours()) / 24
		hours := int(left.Hours()) % 24
		return fmt.Sprintf("%dd %dh", days, hours)
	case left >= time.Hour:
		return fmt.Sprintf("%dh %dm", int(left.Hours()), int(left.Minutes())%60)
	default:
		return fmt.Sprintf("%dm", int(left.Minutes())+1)
	}
}

// formatRelativeTime renders a past timestamp as "3m ago" style text.
func formatRelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// maskAPIKey shows just enough of a key to recognize it.
func maskAPIKey(key string) string {
	if len(key) >= 11 {
		return key[:7] + "..." + key[len(key)-4:]
	}
	return "****"
}

func emailToMap(email *vaultsandbox.Email) map[string]any {
	return map[string]any{
		"id":         email.ID,
		"subject":    email.Subject,
		"from":       email.From,
		"to":         strings.Join(email.To, ", "),
		"receivedAt": email.ReceivedAt.Format(time.RFC3339),
		"text":       email.Text,
		"html":       email.HTML,
		"links":      email.Links,
		"headers":    email.Headers,
		"isRead":     email.IsRead,
	}
}
