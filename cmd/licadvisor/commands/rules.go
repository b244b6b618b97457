package commands

import (
	"fmt"

	"github.com/TimurManjosov/licadvisor/internal/cli"
	"github.com/TimurManjosov/licadvisor/internal/rules"
	"github.com/spf13/cobra"
)

var (
	rulesRemote    bool
	rulesCatalog   string
	rulesAuthority string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect catalog rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog rules",
	Long: `List the rules of the embedded catalog, a catalog file, or the
catalog a server is currently serving.

Examples:
  licadvisor rules list
  licadvisor rules list --catalog requirements.yaml --format yaml
  licadvisor rules list --remote --authority "Israel Police"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var list []rules.Rule
		if rulesRemote {
			c, err := newAPIClient()
			if err != nil {
				return err
			}
			cat, err := c.ListRequirements(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list requirements: %w", err)
			}
			logf(cmd.ErrOrStderr(), "Catalog etag %s", cat.ETag)
			list = cat.Requirements
		} else {
			local, _, err := loadLocalCatalog(cmd.Context(), rulesCatalog)
			if err != nil {
				return fmt.Errorf("failed to load catalog: %w", err)
			}
			list = local
		}

		if rulesAuthority != "" {
			var filtered []rules.Rule
			for _, r := range list {
				if r.Authority == rulesAuthority {
					filtered = append(filtered, r)
				}
			}
			list = filtered
		}

		if quiet {
			return nil
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No rules found")
			return nil
		}
		return cli.PrintRules(cmd.OutOrStdout(), list, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)

	rulesListCmd.Flags().BoolVar(&rulesRemote, "remote", false, "List the server's active catalog")
	rulesListCmd.Flags().StringVar(&rulesCatalog, "catalog", "", "Catalog file (JSON or YAML); defaults to the embedded catalog")
	rulesListCmd.Flags().StringVar(&rulesAuthority, "authority", "", "Only show rules of this authority")
}
