package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	vaultsandbox "github.com/vaultsandbox/client-go"
	"github.com/vaultsandbox/client-go/internal/config"
	"github.com/vaultsandbox/client-go/internal/styles"
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Manage temporary inboxes",
}

var inboxCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new temporary inbox",
	Long: `Create a new temporary encrypted email inbox.

The inbox uses ML-KEM-768 for key encapsulation and ML-DSA-65 for signatures.
Your private key never leaves your machine - all decryption happens locally.

Examples:
  vsb inbox create
  vsb inbox create --ttl 1h
  vsb inbox create --ttl 7d`,
	RunE: runInboxCreate,
}

var inboxListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List all stored inboxes",
	Aliases: []string{"ls"},
	RunE:    runInboxList,
}

var inboxUseCmd = &cobra.Command{
	Use:   "use <email>",
	Short: "Switch active inbox",
	Long: `Set the active inbox for commands.

Supports partial matching - if only one inbox contains the given string,
it will be selected automatically.`,
	Args: cobra.ExactArgs(1),
	RunE: runInboxUse,
}

var inboxDeleteCmd = &cobra.Command{
	Use:     "delete <email>",
	Short:   "Delete an inbox",
	Long:    `Delete an inbox from both the server and local keystore.`,
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE:    runInboxDelete,
}

var inboxInfoCmd = &cobra.Command{
	Use:   "info [email]",
	Short: "Show inbox details",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInboxInfo,
}

var (
	inboxCreateTTL   string
	inboxListAll     bool
	inboxDeleteLocal bool
)

func init() {
	rootCmd.AddCommand(inboxCmd)
	inboxCmd.AddCommand(inboxCreateCmd, inboxListCmd, inboxUseCmd, inboxDeleteCmd, inboxInfoCmd)

	inboxCreateCmd.Flags().StringVar(&inboxCreateTTL, "ttl", "24h",
		"Inbox lifetime (e.g., 1h, 24h, 7d)")
	inboxListCmd.Flags().BoolVarP(&inboxListAll, "all", "a", false,
		"Show expired inboxes too")
	inboxDeleteCmd.Flags().BoolVarP(&inboxDeleteLocal, "local", "l", false,
		"Only remove from local keystore, don't delete on server")
}

func runInboxCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonMode := getOutput(cmd) == "json"

	ttl, err := parseTTL(inboxCreateTTL)
	if err != nil {
		return fmt.Errorf("invalid TTL format: %w", err)
	}

	if !jsonMode {
		fmt.Println(styles.MutedStyle.Render("• Generating keys..."))
	}

	client, err := config.NewClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if !jsonMode {
		fmt.Println(styles.MutedStyle.Render("• Registering with VaultSandbox..."))
	}

	inbox, err := client.CreateInbox(ctx, vaultsandbox.WithTTL(ttl))
	if err != nil {
		return fmt.Errorf("failed to create inbox: %w", err)
	}

	ks, err := loadKeystore()
	if err != nil {
		return err
	}
	stored := config.FromExport(inbox.Export())
	if err := ks.Add(stored); err != nil {
		return fmt.Errorf("failed to save inbox: %w", err)
	}

	if jsonMode {
		return outputJSON(map[string]any{
			"email":     stored.Email,
			"expiresAt": stored.ExpiresAt.Format(time.RFC3339),
			"createdAt": stored.CreatedAt.Format(time.RFC3339),
		})
	}
	printInboxCreated(stored)
	return nil
}

func printInboxCreated(inbox config.StoredInbox) {
	title := styles.SuccessTitleStyle.Render("Inbox Ready!")
	emailBox := styles.EmailBoxStyle.Render(inbox.Email)

	details := fmt.Sprintf(`

  Address:  %s
  Expires:  %s

Run 'vsb' to see emails arrive live.`,
		emailBox, formatExpiry(inbox.ExpiresAt))

	fmt.Println()
	fmt.Println(styles.SuccessBoxStyle.Render(title + details))
	fmt.Println()
}

func runInboxList(cmd *cobra.Command, args []string) error {
	ks, err := loadKeystore()
	if err != nil {
		return err
	}

	var inboxes []config.StoredInbox
	for _, inbox := range ks.List() {
		if inbox.Expired() && !inboxListAll {
			continue
		}
		inboxes = append(inboxes, inbox)
	}

	if getOutput(cmd) == "json" {
		result := make([]map[string]any, 0, len(inboxes))
		for _, inbox := range inboxes {
			result = append(result, map[string]any{
				"email":     inbox.Email,
				"expiresAt": inbox.ExpiresAt.Format(time.RFC3339),
				"expired":   inbox.Expired(),
				"active":    inbox.Email == ks.ActiveInbox,
			})
		}
		return outputJSON(result)
	}

	if len(inboxes) == 0 {
		fmt.Println("No inboxes found. Create one with 'vsb inbox create'")
		return nil
	}

	fmt.Printf("   %-*s  %s\n", styles.ColWidthEmail, "EMAIL", "EXPIRES")
	for _, inbox := range inboxes {
		marker := "  "
		if inbox.Email == ks.ActiveInbox {
			marker = styles.ActiveStyle.Render("> ")
		}

		email := fmt.Sprintf("%-*s", styles.ColWidthEmail, inbox.Email)
		expiry := formatExpiry(inbox.ExpiresAt)
		if inbox.Expired() {
			email = styles.ExpiredStyle.Render(email)
			expiry = styles.ExpiredStyle.Render(expiry)
		} else if inbox.Email == ks.ActiveInbox {
			email = styles.ActiveStyle.Render(email)
		}
		fmt.Printf("%s%s  %s\n", marker, email, expiry)
	}
	fmt.Println()
	return nil
}

func runInboxUse(cmd *cobra.Command, args []string) error {
	ks, err := loadKeystore()
	if err != nil {
		return err
	}
	inbox, err := resolveInbox(ks, args[0])
	if err != nil {
		return err
	}
	if err := ks.SetActive(inbox.Email); err != nil {
		return err
	}
	fmt.Println(styles.PassStyle.Render(fmt.Sprintf("✓ Active inbox set to %s", inbox.Email)))
	return nil
}

func runInboxDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	ks, err := loadKeystore()
	if err != nil {
		return err
	}
	inbox, err := resolveInbox(ks, args[0])
	if err != nil {
		return err
	}
	email := inbox.Email

	if !inboxDeleteLocal {
		client, err := config.NewClient()
		if err != nil {
			return err
		}
		defer client.Close()

		// Keystore removal proceeds even when the server side fails,
		// e.g. for an already-expired inbox.
		if err := client.DeleteInbox(ctx, email); err != nil {
			fmt.Println(styles.FailStyle.Render(fmt.Sprintf("✗ Warning: server deletion failed: %v", err)))
		} else {
			fmt.Println(styles.PassStyle.Render("✓ Deleted from server"))
		}
	}

	if err := ks.Remove(email); err != nil {
		if errors.Is(err, config.ErrInboxNotFound) {
			return fmt.Errorf("inbox not found in keystore: %s", email)
		}
		return err
	}
	fmt.Println(styles.PassStyle.Render("✓ Deleted from keystore"))
	return nil
}

func runInboxInfo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	ks, err := loadKeystore()
	if err != nil {
		return err
	}
	stored, err := resolveInbox(ks, getArg(args, 0, ""))
	if err != nil {
		return err
	}

	emailCount, syncErr := fetchEmailCount(ctx, stored)
	isActive := stored.Email == ks.ActiveInbox

	if getOutput(cmd) == "json" {
		data := map[string]any{
			"email":     stored.Email,
			"id":        stored.ID,
			"createdAt": stored.CreatedAt.Format(time.RFC3339),
			"expiresAt": stored.ExpiresAt.Format(time.RFC3339),
			"expired":   stored.Expired(),
			"active":    isActive,
		}
		if syncErr == nil {
			data["emailCount"] = emailCount
		} else {
			data["syncError"] = syncErr.Error()
		}
		return outputJSON(data)
	}

	label := styles.LabelStyle

	title := styles.TitleStyle.Render(stored.Email)
	if isActive {
		title += "  " + styles.BadgeStyle.Background(styles.Green).Render("ACTIVE")
	}

	content := title + "\n\n"
	content += fmt.Sprintf("%s %s\n", label.Render("ID:"), stored.ID)
	content += fmt.Sprintf("%s %s\n", label.Render("Created:"), stored.CreatedAt.Format("2006-01-02 15:04"))
	if stored.Expired() {
		content += fmt.Sprintf("%s %s\n", label.Render("Expires:"), styles.FailStyle.Render("EXPIRED"))
	} else {
		content += fmt.Sprintf("%s %s (%s)\n", label.Render("Expires:"),
			stored.ExpiresAt.Format("2006-01-02 15:04"), formatExpiry(stored.ExpiresAt))
	}
	if syncErr != nil {
		content += fmt.Sprintf("%s %s\n", label.Render("Emails:"), styles.WarnStyle.Render("(sync error)"))
	} else {
		content += fmt.Sprintf("%s %d\n", label.Render("Emails:"), emailCount)
	}

	fmt.Println()
	fmt.Println(styles.BoxStyle.Render(content))
	fmt.Println()
	return nil
}

func fetchEmailCount(ctx context.Context, stored *config.StoredInbox) (int, error) {
	client, err := config.NewClient()
	if err != nil {
		return 0, err
	}
	defer client.Close()

	inbox, err := client.ImportInbox(ctx, stored.ToExport())
	if err != nil {
		return 0, err
	}
	status, err := inbox.GetSyncStatus(ctx)
	if err != nil {
		return 0, err
	}
	return status.EmailCount, nil
}
