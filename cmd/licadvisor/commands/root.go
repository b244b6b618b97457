package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	baseURL string
	apiKey  string
	env     string
	format  string
	quiet   bool
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "licadvisor",
	Short: "Licensing requirements for food businesses",
	Long: `licadvisor matches a business profile against the licensing catalog
and lists the requirements that apply, most urgent first.

It can run fully offline against the embedded catalog or a catalog file,
or talk to a licadvisor server.

Examples:
  licadvisor assess --size 120 --seats 80 --alcohol --gas
  licadvisor assess --size 50 --seats 20 --remote --format json
  licadvisor rules list --catalog requirements.yaml
  licadvisor catalog validate requirements.json
  licadvisor catalog sync requirements.json --store sqlite --dsn licadvisor.db`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the licadvisor API")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Admin API key")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "Named environment from the CLI config file")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}
