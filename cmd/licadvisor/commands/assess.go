package commands

import (
	"fmt"

	"github.com/TimurManjosov/licadvisor/internal/cli"
	"github.com/TimurManjosov/licadvisor/internal/engine"
	"github.com/TimurManjosov/licadvisor/internal/report"
	"github.com/TimurManjosov/licadvisor/internal/validation"
	"github.com/spf13/cobra"
)

var (
	assessSize     float64
	assessSeats    float64
	assessAlcohol  bool
	assessGas      bool
	assessMisting  bool
	assessDelivery bool
	assessRemote   bool
	assessCatalog  string
	assessReport   bool
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "List the requirements that apply to a business",
	Long: `Assess a business profile and print the matching requirements in
priority order.

Runs locally against the embedded catalog (or --catalog) unless --remote
is given, in which case the configured server answers.

Examples:
  licadvisor assess --size 120 --seats 80 --alcohol --gas
  licadvisor assess --size 20 --seats 0 --delivery --report
  licadvisor assess --size 500 --seats 350 --gas --remote --base-url http://localhost:8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input := validation.ProfileInput{
			SizeM2:         &assessSize,
			Seats:          &assessSeats,
			ServesAlcohol:  &assessAlcohol,
			UsesGas:        &assessGas,
			HasMisting:     &assessMisting,
			OffersDelivery: &assessDelivery,
		}
		result, p := validation.ValidateProfile(input)
		if !result.Valid {
			for _, field := range result.Fields() {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", field, result.Errors[field])
			}
			return fmt.Errorf("invalid profile")
		}

		var out *cli.Assessment
		if assessRemote {
			c, err := newAPIClient()
			if err != nil {
				return err
			}
			resp, err := c.Assess(cmd.Context(), p, assessReport)
			if err != nil {
				return fmt.Errorf("failed to assess: %w", err)
			}
			out = &cli.Assessment{
				AssessmentID: resp.AssessmentID,
				Profile:      resp.Profile,
				Matches:      resp.Matches,
				Rules:        resp.Rules,
				Report:       resp.Report,
				ETag:         resp.ETag,
			}
		} else {
			list, name, err := loadLocalCatalog(cmd.Context(), assessCatalog)
			if err != nil {
				return fmt.Errorf("failed to load catalog: %w", err)
			}
			logf(cmd.ErrOrStderr(), "Loaded %d rules from %s", len(list), name)

			matched := engine.Evaluate(p, list)
			out = &cli.Assessment{Profile: p, Matches: matched.IDs(), Rules: matched}
			if assessReport {
				rep, err := report.TemplateGenerator{}.Generate(cmd.Context(), p, matched)
				if err != nil {
					return fmt.Errorf("failed to build report: %w", err)
				}
				out.Report = rep
			}
		}

		if quiet {
			return nil
		}
		return cli.PrintAssessment(cmd.OutOrStdout(), out, cli.OutputFormat(format))
	},
}

func init() {
	rootCmd.AddCommand(assessCmd)

	assessCmd.Flags().Float64Var(&assessSize, "size", 0, "Floor area in square metres")
	assessCmd.Flags().Float64Var(&assessSeats, "seats", 0, "Number of seats")
	assessCmd.Flags().BoolVar(&assessAlcohol, "alcohol", false, "Business serves alcohol")
	assessCmd.Flags().BoolVar(&assessGas, "gas", false, "Business uses gas")
	assessCmd.Flags().BoolVar(&assessMisting, "misting", false, "Business runs misting systems")
	assessCmd.Flags().BoolVar(&assessDelivery, "delivery", false, "Business offers delivery")
	assessCmd.Flags().BoolVar(&assessRemote, "remote", false, "Ask the server instead of evaluating locally")
	assessCmd.Flags().StringVar(&assessCatalog, "catalog", "", "Catalog file (JSON or YAML); defaults to the embedded catalog")
	assessCmd.Flags().BoolVar(&assessReport, "report", false, "Include the narrative report")
	_ = assessCmd.MarkFlagRequired("size")
	_ = assessCmd.MarkFlagRequired("seats")
}
