package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vaultsandbox/client-go/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure API key and server URL",
	Long: `Manage VaultSandbox CLI configuration.

Examples:
  vsb config show               # Show current configuration
  vsb config set api-key <key>  # Set API key
  vsb config set base-url <url> # Set base URL
  vsb config set strategy polling`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Available keys:
  api-key   - Your VaultSandbox API key
  base-url  - API server URL
  strategy  - Email delivery: sse (default) or polling
  output    - Default output format: pretty or json`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	path, err := config.Path()
	if err != nil {
		return err
	}

	masked := ""
	if key := config.APIKey(); key != "" {
		masked = maskAPIKey(key)
	}

	if getOutput(cmd) == "json" {
		return outputJSON(map[string]any{
			"configFile": path,
			"apiKey":     masked,
			"baseUrl":    config.BaseURL(),
			"strategy":   config.Strategy(),
			"output":     config.Output(),
		})
	}

	if masked == "" {
		masked = "(not set)"
	}
	fmt.Printf("Config file: %s\n\n", path)
	fmt.Printf("api-key:  %s\n", masked)
	fmt.Printf("base-url: %s\n", config.BaseURL())
	fmt.Printf("strategy: %s\n", config.Strategy())
	fmt.Printf("output:   %s\n", config.Output())
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	f, err := config.ReadFile()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch key {
	case "api-key":
		f.APIKey = value
	case "base-url":
		f.BaseURL = value
	case "strategy":
		if value != "sse" && value != "polling" {
			return fmt.Errorf("invalid strategy: %s (valid: sse, polling)", value)
		}
		f.Strategy = value
	case "output":
		if value != "pretty" && value != "json" {
			return fmt.Errorf("invalid output: %s (valid: pretty, json)", value)
		}
		f.Output = value
	default:
		return fmt.Errorf("unknown config key: %s (valid keys: api-key, base-url, strategy, output)", key)
	}

	if err := config.WriteFile(f); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Printf("Set %s successfully\n", key)
	return nil
}
