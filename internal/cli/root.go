// Package cli implements the vsb command tree.
package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	vaultsandbox "github.com/vaultsandbox/client-go"
	"github.com/vaultsandbox/client-go/internal/config"
	"github.com/vaultsandbox/client-go/internal/tui/watch"
)

var cfgFile string

var (
	rootAll   bool
	rootEmail string
)

var rootCmd = &cobra.Command{
	Use:   "vsb",
	Short: "VaultSandbox CLI - Test email flows with quantum-safe encryption",
	Long: `vsb is a developer companion for testing email flows.

It provides temporary inboxes with end-to-end encryption using
quantum-safe algorithms (ML-KEM-768, ML-DSA-65).

The server never sees your email content - all decryption
happens locally on your machine.

Running 'vsb' with no subcommand opens the real-time email dashboard.

Examples:
  vsb                 # Watch active inbox
  vsb -a              # Watch all stored inboxes
  vsb --email abc@vaultsandbox.com`,
	RunE: runRoot,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(func() { _ = config.Load(cfgFile) })

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.config/vsb/config.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "",
		"Output format: pretty, json")

	rootCmd.Flags().BoolVarP(&rootAll, "all", "a", false,
		"Watch all stored inboxes")
	rootCmd.Flags().StringVar(&rootEmail, "email", "",
		"Watch specific inbox by email address")
}

func runRoot(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	ks, err := loadKeystore()
	if err != nil {
		return err
	}

	var stored []config.StoredInbox
	if rootAll {
		stored = ks.List()
		if len(stored) == 0 {
			return fmt.Errorf("no inboxes found. Create one with 'vsb inbox create'")
		}
	} else {
		inbox, err := resolveInbox(ks, rootEmail)
		if err != nil {
			return err
		}
		stored = []config.StoredInbox{*inbox}
	}

	client, err := config.NewClient()
	if err != nil {
		return err
	}
	defer client.Close()

	var inboxes []*vaultsandbox.Inbox
	for _, s := range stored {
		inbox, err := client.ImportInbox(ctx, s.ToExport())
		if err != nil {
			return fmt.Errorf("failed to import inbox %s: %w", s.Email, err)
		}
		inboxes = append(inboxes, inbox)
	}

	model := watch.NewModel(client, inboxes)
	p := tea.NewProgram(&model, tea.WithAltScreen())

	// Feed the program before running it so nothing arrives unobserved.
	model.WatchEmails(p)
	model.LoadExistingEmails(p)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
