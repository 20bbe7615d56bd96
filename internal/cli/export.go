package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vaultsandbox/client-go/internal/config"
	"github.com/vaultsandbox/client-go/internal/styles"
)

var exportCmd = &cobra.Command{
	Use:   "export [email-address]",
	Short: "Export inbox with private keys",
	Long: `Export an inbox's keys and metadata to a JSON file for backup or sharing.

WARNING: The exported file contains your PRIVATE KEY. Anyone with this file
can read emails sent to your inbox. Handle it securely!

Examples:
  vsb export                     # Export active inbox
  vsb export abc@vsb.com         # Export specific inbox
  vsb export --out ~/backup.json # Specify output file`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import an exported inbox",
	Long: `Import an inbox from a file written by 'vsb export'.

The imported inbox is stored in the keystore and becomes active.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var exportOut string

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	exportCmd.Flags().StringVar(&exportOut, "out", "",
		"Output file path (default: <email>.json)")
}

func runExport(cmd *cobra.Command, args []string) error {
	ks, err := loadKeystore()
	if err != nil {
		return err
	}
	stored, err := resolveInbox(ks, getArg(args, 0, ""))
	if err != nil {
		return err
	}

	if stored.Expired() {
		fmt.Println(styles.WarningBoxStyle.Render(
			styles.WarningTitleStyle.Render("Warning: This inbox has expired")))
	}

	outPath := exportOut
	if outPath == "" {
		outPath = sanitizeFilename(stored.Email) + ".json"
	}
	absPath, err := filepath.Abs(outPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absPath); err == nil {
		return fmt.Errorf("file already exists: %s (use --out to specify different path)", absPath)
	}

	data, err := json.MarshalIndent(stored.ToExportFile(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(absPath, data, 0600); err != nil {
		return err
	}

	printExportWarning(absPath, stored.Email)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var f config.ExportFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid export file: %w", err)
	}
	if f.EmailAddress == "" || f.Keys.KEMPrivate == "" {
		return fmt.Errorf("invalid export file: missing address or keys")
	}

	// Verify the keys parse before persisting anything.
	client, err := config.NewClient()
	if err != nil {
		return err
	}
	defer client.Close()
	if _, err := client.ImportInbox(ctx, f.ToExport()); err != nil {
		return fmt.Errorf("failed to import inbox: %w", err)
	}

	ks, err := loadKeystore()
	if err != nil {
		return err
	}
	if err := ks.Add(f.ToStoredInbox()); err != nil {
		return fmt.Errorf("failed to save inbox: %w", err)
	}

	fmt.Println(styles.PassStyle.Render(fmt.Sprintf("✓ Imported %s", f.EmailAddress)))
	return nil
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}

func printExportWarning(path, email string) {
	warning := fmt.Sprintf(`%s

This file contains your PRIVATE KEY for:
  %s

Anyone with this file can read emails sent to this inbox.
Keep it secure and do not commit it to version control!

File: %s`,
		styles.WarningTitleStyle.Render("SECURITY WARNING"),
		email,
		path)

	fmt.Println()
	fmt.Println(styles.WarningBoxStyle.Render(warning))
	fmt.Println()
	fmt.Println(styles.PassStyle.Render("✓ Export complete"))
}
