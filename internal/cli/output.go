package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/TimurManjosov/licadvisor/internal/catalog"
	"github.com/TimurManjosov/licadvisor/internal/profile"
	"github.com/TimurManjosov/licadvisor/internal/report"
	"github.com/TimurManjosov/licadvisor/internal/rules"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// Assessment is the printable result of one assessment, local or remote.
type Assessment struct {
	AssessmentID string                  `json:"assessment_id,omitempty" yaml:"assessment_id,omitempty"`
	Profile      profile.BusinessProfile `json:"profile" yaml:"profile"`
	Matches      []string                `json:"matches" yaml:"matches"`
	Rules        []*rules.Rule           `json:"rules" yaml:"rules"`
	Report       *report.Report          `json:"report,omitempty" yaml:"report,omitempty"`
	ETag         string                  `json:"etag,omitempty" yaml:"etag,omitempty"`
}

// PrintRules outputs catalog rules in the specified format
func PrintRules(w io.Writer, list []rules.Rule, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]rules.Rule{"requirements": list})
	case FormatYAML:
		return printYAML(w, map[string][]rules.Rule{"requirements": list})
	case FormatTable:
		ptrs := make([]*rules.Rule, len(list))
		for i := range list {
			ptrs[i] = &list[i]
		}
		return printRuleTable(w, ptrs)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintAssessment outputs an ordered match list in the specified format
func PrintAssessment(w io.Writer, a *Assessment, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, a)
	case FormatYAML:
		return printYAML(w, a)
	case FormatTable:
		if len(a.Rules) == 0 {
			_, err := fmt.Fprintln(w, "No requirements apply to this profile")
			return err
		}
		if err := printRuleTable(w, a.Rules); err != nil {
			return err
		}
		if a.Report != nil {
			_, err := fmt.Fprintf(w, "\n%s\n", a.Report.Summary)
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintInspection writes a per-rule validation listing followed by totals
// and the distinct authorities of the valid rules.
func PrintInspection(w io.Writer, in *catalog.Inspection) error {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()

	for _, c := range in.Checks {
		id := c.ID
		if id == "" {
			id = "rule[" + strconv.Itoa(c.Index) + "]"
		}
		if c.Err != nil {
			fmt.Fprintf(w, "%s %s: %v\n", bad("✗"), id, c.Err)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", ok("✓"), id)
	}

	fmt.Fprintf(w, "\nTotal: %d  Valid: %d  Invalid: %d\n", len(in.Checks), in.Valid, in.Invalid)
	fmt.Fprintln(w, "Authorities:")
	for _, a := range in.Authorities {
		fmt.Fprintf(w, "  - %s\n", a)
	}
	return nil
}

// ColorPriority renders a priority in red, yellow or blue.
func ColorPriority(p rules.Priority) string {
	switch p {
	case rules.PriorityHigh:
		return color.New(color.FgRed, color.Bold).Sprint(string(p))
	case rules.PriorityMedium:
		return color.New(color.FgYellow).Sprint(string(p))
	case rules.PriorityLow:
		return color.New(color.FgBlue).Sprint(string(p))
	default:
		return string(p)
	}
}

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printRuleTable(w io.Writer, list []*rules.Rule) error {
	table := tablewriter.NewWriter(w)
	table.Header("#", "ID", "Priority", "Authority", "Title")

	for i, r := range list {
		title := r.Title
		if len([]rune(title)) > 48 {
			title = string([]rune(title)[:45]) + "..."
		}
		if err := table.Append(
			strconv.Itoa(i+1),
			r.ID,
			ColorPriority(r.Priority),
			r.Authority,
			title,
		); err != nil {
			return err
		}
	}

	return table.Render()
}
