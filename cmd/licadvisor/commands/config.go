package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TimurManjosov/licadvisor/internal/api"
	"github.com/TimurManjosov/licadvisor/internal/cli"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the licadvisor CLI configuration file.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long: `Create a default configuration file in the XDG config directory
(usually ~/.config/licadvisor/config.yaml).

Example:
  licadvisor config init`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.InitConfig(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", cli.GetConfigPath())
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Default Environment: %s\n\n", cfg.DefaultEnv)
		fmt.Fprintln(out, "Environments:")

		names := make([]string, 0, len(cfg.Environments))
		for name := range cfg.Environments {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			envCfg := cfg.Environments[name]
			fmt.Fprintf(out, "  %s:\n", name)
			fmt.Fprintf(out, "    base_url: %s\n", envCfg.BaseURL)
			fmt.Fprintf(out, "    api_key: %s\n", maskKey(envCfg.APIKey))
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <env.key>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value.

Examples:
  licadvisor config get local.base_url
  licadvisor config get local.api_key`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		envName, key, err := splitConfigKey(args[0])
		if err != nil {
			return err
		}

		envCfg, ok := cfg.Environments[envName]
		if !ok {
			return fmt.Errorf("environment '%s' not found", envName)
		}
		switch key {
		case "base_url":
			fmt.Fprintln(cmd.OutOrStdout(), envCfg.BaseURL)
		case "api_key":
			fmt.Fprintln(cmd.OutOrStdout(), envCfg.APIKey)
		default:
			return fmt.Errorf("unknown key '%s', valid keys: base_url, api_key", key)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <env.key> <value>",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value.

Examples:
  licadvisor config set local.base_url http://localhost:8080
  licadvisor config set prod.api_key my-secret-key`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cli.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		envName, key, err := splitConfigKey(args[0])
		if err != nil {
			return err
		}

		envCfg := cfg.Environments[envName]
		switch key {
		case "base_url":
			envCfg.BaseURL = args[1]
		case "api_key":
			envCfg.APIKey = args[1]
		default:
			return fmt.Errorf("unknown key '%s', valid keys: base_url, api_key", key)
		}
		cfg.Environments[envName] = envCfg

		if err := cli.SaveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Successfully set %s.%s\n", envName, key)
		return nil
	},
}

func splitConfigKey(s string) (envName, key string, err error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid key format, expected 'env.key' (e.g., 'local.base_url')")
	}
	return parts[0], parts[1], nil
}

var configHashKeyCmd = &cobra.Command{
	Use:   "hash-key <admin-key>",
	Short: "Print a bcrypt hash for ADMIN_API_KEY_HASH",
	Long: `Hash an admin API key so the server can be configured with
ADMIN_API_KEY_HASH instead of the plaintext ADMIN_API_KEY.

Example:
  licadvisor config hash-key "$(openssl rand -hex 24)"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := api.HashAdminKey(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func maskKey(k string) string {
	if len(k) > 4 {
		return k[:4] + "***"
	}
	return "***"
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configHashKeyCmd)
}
