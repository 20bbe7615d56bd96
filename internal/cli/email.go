package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vaultsandbox/client-go/internal/styles"
)

var emailCmd = &cobra.Command{
	Use:   "email",
	Short: "Read and manage emails in an inbox",
}

var emailListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List emails in the active inbox",
	Aliases: []string{"ls"},
	RunE:    runEmailList,
}

var emailGetCmd = &cobra.Command{
	Use:   "get [email-id]",
	Short: "Show a decrypted email",
	Long: `Display a decrypted email. Without an id the most recent email
is shown.

Examples:
  vsb email get             # Most recent email
  vsb email get abc123      # Specific email
  vsb email get -o json     # JSON output`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEmailGet,
}

var emailRawCmd = &cobra.Command{
	Use:   "raw [email-id]",
	Short: "Print the original RFC 822 source",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEmailRaw,
}

var emailDeleteCmd = &cobra.Command{
	Use:     "delete <email-id>",
	Short:   "Delete an email from the server",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE:    runEmailDelete,
}

var emailInboxFlag string

func init() {
	rootCmd.AddCommand(emailCmd)
	emailCmd.AddCommand(emailListCmd, emailGetCmd, emailRawCmd, emailDeleteCmd)

	emailCmd.PersistentFlags().StringVar(&emailInboxFlag, "inbox", "",
		"Use specific inbox (default: active)")
}

func runEmailList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	inbox, cleanup, err := openInbox(ctx, emailInboxFlag)
	if err != nil {
		return err
	}
	defer cleanup()

	metas, err := inbox.GetEmailMetadata(ctx)
	if err != nil {
		return fmt.Errorf("failed to get emails: %w", err)
	}

	if getOutput(cmd) == "json" {
		result := make([]map[string]any, 0, len(metas))
		for _, m := range metas {
			result = append(result, map[string]any{
				"id":         m.ID,
				"subject":    m.Subject,
				"from":       m.From,
				"receivedAt": m.ReceivedAt,
				"isRead":     m.IsRead,
			})
		}
		return outputJSON(result)
	}

	if len(metas) == 0 {
		fmt.Println("No emails in inbox")
		return nil
	}

	fmt.Printf("  %-*s %-*s %-*s %s\n",
		styles.ColWidthID, "ID",
		styles.ColWidthSubject, "SUBJECT",
		styles.ColWidthFrom, "FROM",
		"RECEIVED")
	for _, m := range metas {
		fmt.Printf("  %-*s %-*s %-*s %s\n",
			styles.ColWidthID, m.ID,
			styles.ColWidthSubject, truncate(m.Subject, styles.ColWidthSubject),
			styles.ColWidthFrom, truncate(m.From, styles.ColWidthFrom),
			formatRelativeTime(m.ReceivedAt))
	}
	fmt.Printf("\n  %d email(s)\n\n", len(metas))
	return nil
}

func runEmailGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	inbox, cleanup, err := openInbox(ctx, emailInboxFlag)
	if err != nil {
		return err
	}
	defer cleanup()

	email, err := fetchEmail(ctx, inbox, getArg(args, 0, ""))
	if err != nil {
		return err
	}

	if getOutput(cmd) == "json" {
		return outputJSON(emailToMap(email))
	}

	label := styles.LabelStyle
	fmt.Println()
	fmt.Printf("%s %s\n", label.Render("From:"), email.From)
	fmt.Printf("%s %s\n", label.Render("To:"), strings.Join(email.To, ", "))
	fmt.Printf("%s %s\n", label.Render("Subject:"), email.Subject)
	fmt.Printf("%s %s\n", label.Render("Received:"), email.ReceivedAt.Format("2006-01-02 15:04:05"))
	if len(email.Links) > 0 {
		fmt.Printf("%s %d found\n", label.Render("Links:"), len(email.Links))
	}
	if len(email.Attachments) > 0 {
		fmt.Printf("%s %d files\n", label.Render("Attach:"), len(email.Attachments))
	}
	fmt.Println()
	body := email.Text
	if body == "" {
		body = "(no text content)"
	}
	fmt.Println(body)
	fmt.Println()
	return nil
}

func runEmailRaw(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	inbox, cleanup, err := openInbox(ctx, emailInboxFlag)
	if err != nil {
		return err
	}
	defer cleanup()

	id := getArg(args, 0, "")
	if id == "" {
		email, err := fetchEmail(ctx, inbox, "")
		if err != nil {
			return err
		}
		id = email.ID
	}

	raw, err := inbox.GetRawEmail(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get raw email: %w", err)
	}
	fmt.Print(raw)
	return nil
}

func runEmailDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	inbox, cleanup, err := openInbox(ctx, emailInboxFlag)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := inbox.DeleteEmail(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to delete email: %w", err)
	}
	fmt.Println(styles.PassStyle.Render("✓ Email deleted"))
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
