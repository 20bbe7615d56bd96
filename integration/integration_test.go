//go:build integration

// Package integration contains tests that run against a live
// VaultSandbox Gateway and, optionally, an SMTP server for inbound
// mail.
//
// Required environment variables:
//   - VAULTSANDBOX_API_KEY: API key for authentication
//   - VAULTSANDBOX_URL: Gateway URL (e.g., https://api.vaultsandbox.com)
//   - SMTP_HOST: SMTP server host for sending test emails (optional)
//   - SMTP_PORT: SMTP server port (default: 25)
//
// Run with:
//
//	go test -tags=integration -v -timeout 10m ./integration/...
package integration

import (
	"fmt"
	"net/smtp"
	"os"
	"testing"

	"github.com/joho/godotenv"

	vaultsandbox "github.com/vaultsandbox/client-go"
)

var (
	apiKey  string
	baseURL string
)

func TestMain(m *testing.M) {
	if err := godotenv.Load("../.env"); err != nil {
		fmt.Fprintln(os.Stderr, "Note: .env file not found at project root")
	}

	apiKey = os.Getenv("VAULTSANDBOX_API_KEY")
	baseURL = os.Getenv("VAULTSANDBOX_URL")

	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "Skipping integration tests: VAULTSANDBOX_API_KEY not set")
		os.Exit(0)
	}
	if baseURL == "" {
		fmt.Fprintln(os.Stderr, "Skipping integration tests: VAULTSANDBOX_URL not set")
		os.Exit(0)
	}

	os.Exit(m.Run())
}

// newClient builds a client against the configured gateway. The client
// is closed when the test finishes.
func newClient(t *testing.T, opts ...vaultsandbox.Option) *vaultsandbox.Client {
	t.Helper()

	opts = append([]vaultsandbox.Option{vaultsandbox.WithBaseURL(baseURL)}, opts...)
	client, err := vaultsandbox.New(apiKey, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func getSMTPConfig() (host, port string) {
	host = os.Getenv("SMTP_HOST")
	port = os.Getenv("SMTP_PORT")
	if port == "" {
		port = "25"
	}
	return host, port
}

func skipIfNoSMTP(t *testing.T) {
	t.Helper()
	if host, _ := getSMTPConfig(); host == "" {
		t.Skip("skipping: SMTP_HOST not set")
	}
}

// sendTestEmail sends a plain text email via SMTP to a sandbox address.
func sendTestEmail(t *testing.T, to, subject, body string) {
	t.Helper()
	skipIfNoSMTP(t)

	host, port := getSMTPConfig()
	from := "test@example.com"
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		from, to, subject, body)

	addr := fmt.Sprintf("%s:%s", host, port)
	if err := smtp.SendMail(addr, nil, from, []string{to}, []byte(msg)); err != nil {
		t.Fatalf("sendTestEmail() error = %v", err)
	}
	t.Logf("Sent email to %s with subject: %s", to, subject)
}

// sendTestHTMLEmail sends a multipart/alternative email with both text
// and HTML bodies.
func sendTestHTMLEmail(t *testing.T, to, subject, textBody, htmlBody string) {
	t.Helper()
	skipIfNoSMTP(t)

	host, port := getSMTPConfig()
	from := "test@example.com"
	boundary := "boundary-integration-12345"

	msg := fmt.Sprintf(`From: %s
To: %s
Subject: %s
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="%s"

--%s
Content-Type: text/plain; charset=utf-8

%s

--%s
Content-Type: text/html; charset=utf-8

%s

--%s--
`, from, to, subject, boundary, boundary, textBody, boundary, htmlBody, boundary)

	addr := fmt.Sprintf("%s:%s", host, port)
	if err := smtp.SendMail(addr, nil, from, []string{to}, []byte(msg)); err != nil {
		t.Fatalf("sendTestHTMLEmail() error = %v", err)
	}
}
