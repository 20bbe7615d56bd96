package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	vaultsandbox "github.com/vaultsandbox/client-go"
)

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for an email matching criteria (CI/CD)",
	Long: `Block until an email matching the specified criteria arrives.

Designed for CI/CD pipelines and automated testing. Returns exit code 0
when a matching email is found, 1 on timeout.

Filter Options:
  --subject       Exact subject match
  --subject-regex Subject regex pattern
  --from          Exact sender match
  --from-regex    Sender regex pattern

Examples:
  # Wait for password reset email
  vsb wait --subject-regex "password reset" --timeout 30s

  # Extract verification link
  LINK=$(vsb wait --subject "Verify" --extract-link)

  # JSON output for parsing
  vsb wait --from "noreply@example.com" -o json | jq .subject`,
	RunE: runWait,
}

var (
	waitInbox        string
	waitSubject      string
	waitSubjectRegex string
	waitFrom         string
	waitFromRegex    string
	waitTimeout      time.Duration
	waitCount        int
	waitQuiet        bool
	waitExtractLink  bool
)

func init() {
	rootCmd.AddCommand(waitCmd)

	waitCmd.Flags().StringVar(&waitInbox, "inbox", "",
		"Use specific inbox (default: active)")
	waitCmd.Flags().StringVar(&waitSubject, "subject", "",
		"Exact subject match")
	waitCmd.Flags().StringVar(&waitSubjectRegex, "subject-regex", "",
		"Subject regex pattern")
	waitCmd.Flags().StringVar(&waitFrom, "from", "",
		"Exact sender match")
	waitCmd.Flags().StringVar(&waitFromRegex, "from-regex", "",
		"Sender regex pattern")
	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 60*time.Second,
		"Maximum time to wait")
	waitCmd.Flags().IntVar(&waitCount, "count", 1,
		"Number of matching emails to wait for")
	waitCmd.Flags().BoolVarP(&waitQuiet, "quiet", "q", false,
		"No output, exit code only")
	waitCmd.Flags().BoolVar(&waitExtractLink, "extract-link", false,
		"Output first link from email")
}

func runWait(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	inbox, cleanup, err := openInbox(ctx, waitInbox)
	if err != nil {
		return err
	}
	defer cleanup()

	opts, err := buildWaitOptions()
	if err != nil {
		return err
	}

	if !waitQuiet {
		fmt.Fprintf(os.Stderr, "Waiting for email on %s (timeout: %s)...\n",
			inbox.EmailAddress(), waitTimeout)
	}

	var emails []*vaultsandbox.Email
	if waitCount > 1 {
		emails, err = inbox.WaitForEmailCount(ctx, waitCount, opts...)
	} else {
		var email *vaultsandbox.Email
		email, err = inbox.WaitForEmail(ctx, opts...)
		if err == nil {
			emails = []*vaultsandbox.Email{email}
		}
	}
	if err != nil {
		if errors.Is(err, vaultsandbox.ErrWaitTimeout) {
			return fmt.Errorf("timeout waiting for email")
		}
		return err
	}

	outputWaitResult(cmd, emails)
	return nil
}

func buildWaitOptions() ([]vaultsandbox.WaitOption, error) {
	opts := []vaultsandbox.WaitOption{
		vaultsandbox.WithWaitTimeout(waitTimeout),
	}

	if waitSubject != "" {
		opts = append(opts, vaultsandbox.WithSubject(waitSubject))
	}
	if waitSubjectRegex != "" {
		re, err := regexp.Compile(waitSubjectRegex)
		if err != nil {
			return nil, fmt.Errorf("invalid subject regex: %w", err)
		}
		opts = append(opts, vaultsandbox.WithSubjectRegex(re))
	}
	if waitFrom != "" {
		opts = append(opts, vaultsandbox.WithFrom(waitFrom))
	}
	if waitFromRegex != "" {
		re, err := regexp.Compile(waitFromRegex)
		if err != nil {
			return nil, fmt.Errorf("invalid from regex: %w", err)
		}
		opts = append(opts, vaultsandbox.WithFromRegex(re))
	}

	return opts, nil
}

func outputWaitResult(cmd *cobra.Command, emails []*vaultsandbox.Email) {
	if waitQuiet {
		return
	}
	for _, email := range emails {
		switch {
		case getOutput(cmd) == "json":
			_ = outputJSON(emailToMap(email))
		case waitExtractLink:
			if len(email.Links) > 0 {
				fmt.Println(email.Links[0])
			}
		default:
			fmt.Printf("Subject: %s\n", email.Subject)
			fmt.Printf("From: %s\n", email.From)
			fmt.Printf("Received: %s\n", email.ReceivedAt.Format(time.RFC3339))
			if len(email.Links) > 0 {
				fmt.Printf("Links: %d found\n", len(email.Links))
			}
		}
	}
}
