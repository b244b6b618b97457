package commands

import (
	"fmt"
	"os"

	"github.com/TimurManjosov/licadvisor/internal/catalog"
	"github.com/TimurManjosov/licadvisor/internal/cli"
	"github.com/TimurManjosov/licadvisor/internal/rules"
	"github.com/TimurManjosov/licadvisor/internal/store"
	"github.com/spf13/cobra"
)

var (
	syncStore  string
	syncDSN    string
	syncDryRun bool

	exportOutput string
	exportRemote bool
	exportStore  string
	exportDSN    string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Validate, load and reload licensing catalogs",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a catalog file rule by rule",
	Long: `Validate a JSON or YAML catalog file. Every rule is checked and
reported, followed by totals and the authorities found. The command
fails when the file or any rule is invalid.

Example:
  licadvisor catalog validate requirements.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		doc, err := catalog.DecodeUnchecked(data, catalog.FormatFromPath(args[0]))
		if err != nil {
			return fmt.Errorf("invalid catalog: %w", err)
		}
		if doc.SchemaVersion != "" {
			logf(cmd.ErrOrStderr(), "Schema version %s", doc.SchemaVersion)
		}

		inspection := catalog.Inspect(doc.Rules)
		if !quiet {
			if err := cli.PrintInspection(cmd.OutOrStdout(), inspection); err != nil {
				return err
			}
		}
		if !inspection.OK() {
			return fmt.Errorf("%d of %d rules are invalid", inspection.Invalid, len(inspection.Checks))
		}
		return nil
	},
}

var catalogSyncCmd = &cobra.Command{
	Use:   "sync <file>",
	Short: "Load a catalog file into a rule store",
	Long: `Validate a catalog file and replace the rules table of a SQLite or
Postgres store with its contents in one transaction.

Examples:
  licadvisor catalog sync requirements.json --store sqlite --dsn licadvisor.db
  licadvisor catalog sync requirements.yaml --store postgres --dsn postgres://localhost/licadvisor
  licadvisor catalog sync requirements.json --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := catalog.NewFileSource(args[0])
		list, err := src.Load(cmd.Context())
		if err != nil {
			return err
		}
		logf(cmd.ErrOrStderr(), "Found %d valid rule(s) in %s", len(list), args[0])

		if syncDryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "Dry run: %d rule(s) would be written to the %s store\n", len(list), syncStore)
			return nil
		}
		if syncStore != "memory" && syncDSN == "" {
			return fmt.Errorf("--dsn is required for the %s store", syncStore)
		}

		st, err := store.NewStore(cmd.Context(), syncStore, syncDSN)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()

		if err := st.ReplaceAll(cmd.Context(), list); err != nil {
			return fmt.Errorf("failed to write catalog: %w", err)
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d rule(s) to the %s store\n", len(list), syncStore)
		}
		return nil
	},
}

var catalogReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Ask a server to reload its catalog",
	Long: `Trigger a catalog reload on a running server. Requires the admin API key.

Example:
  licadvisor catalog reload --base-url http://localhost:8080 --api-key admin-123`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPIClient()
		if err != nil {
			return err
		}
		res, err := c.ReloadCatalog(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to reload catalog: %w", err)
		}
		if !quiet {
			state := "unchanged"
			if res.Changed {
				state = "changed"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Catalog %s: %d rule(s) from %s, etag %s\n", state, res.Count, res.Source, res.ETag)
		}
		return nil
	},
}

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a catalog to a file",
	Long: `Export the embedded catalog, a server's active catalog, or the rules
held in a store as a versioned catalog document. The output can be fed
back to "catalog validate", "catalog sync" or CATALOG_PATH.

The format follows the output file extension; for stdout it follows
--format, with table output falling back to YAML.

Examples:
  licadvisor catalog export --output requirements.yaml
  licadvisor catalog export --remote --format json > backup.json
  licadvisor catalog export --store sqlite --dsn licadvisor.db -o rules.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, origin, err := exportRules(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		outFormat := catalog.FormatYAML
		if format == "json" {
			outFormat = catalog.FormatJSON
		}
		if exportOutput != "" && exportOutput != "-" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
			outFormat = catalog.FormatFromPath(exportOutput)
		}

		if err := catalog.Encode(out, list, outFormat); err != nil {
			return fmt.Errorf("failed to encode catalog: %w", err)
		}
		if exportOutput != "" && exportOutput != "-" && !quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d rule(s) from %s to %s\n", len(list), origin, exportOutput)
		}
		return nil
	},
}

func exportRules(cmd *cobra.Command) ([]rules.Rule, string, error) {
	switch {
	case exportRemote:
		c, err := newAPIClient()
		if err != nil {
			return nil, "", err
		}
		cat, err := c.ListRequirements(cmd.Context())
		if err != nil {
			return nil, "", fmt.Errorf("failed to list requirements: %w", err)
		}
		return cat.Requirements, "server", nil
	case exportStore != "":
		st, err := store.NewStore(cmd.Context(), exportStore, exportDSN)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()
		list, err := st.ListRules(cmd.Context())
		if err != nil {
			return nil, "", fmt.Errorf("failed to read rules: %w", err)
		}
		return list, exportStore + " store", nil
	default:
		return loadLocalCatalog(cmd.Context(), "")
	}
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogSyncCmd)
	catalogCmd.AddCommand(catalogReloadCmd)
	catalogCmd.AddCommand(catalogExportCmd)

	catalogSyncCmd.Flags().StringVar(&syncStore, "store", "sqlite", "Store type (sqlite, postgres)")
	catalogSyncCmd.Flags().StringVar(&syncDSN, "dsn", "", "Store connection string or SQLite file path")
	catalogSyncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Validate without writing")

	catalogExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	catalogExportCmd.Flags().BoolVar(&exportRemote, "remote", false, "Export the server's active catalog")
	catalogExportCmd.Flags().StringVar(&exportStore, "store", "", "Export from a store (sqlite, postgres)")
	catalogExportCmd.Flags().StringVar(&exportDSN, "dsn", "", "Store connection string or SQLite file path")
}
