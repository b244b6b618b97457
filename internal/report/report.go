// Package report turns an ordered list of matched rules into a narrative
// licensing report, either from a fixed bilingual template or from an LLM.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/TimurManjosov/licadvisor/internal/profile"
	"github.com/TimurManjosov/licadvisor/internal/rules"
)

var (
	// ErrInvalidInput indicates a matched rule missing a field the report needs.
	ErrInvalidInput = errors.New("invalid report input")
	// ErrUnknownReference indicates a report section citing a rule outside the match list.
	ErrUnknownReference = errors.New("report references unknown rule ids")
)

// Section groups the requirements of one authority.
type Section struct {
	Title    string   `json:"title" yaml:"title"`
	Content  string   `json:"content" yaml:"content"`
	RuleIDs  []string `json:"rule_ids" yaml:"rule_ids"`
	Priority string   `json:"priority" yaml:"priority"`
}

// Report is the structured narrative returned alongside an assessment.
type Report struct {
	Summary           string    `json:"summary" yaml:"summary"`
	Sections          []Section `json:"sections" yaml:"sections"`
	TotalRules        int       `json:"total_rules" yaml:"total_rules"`
	HighPriorityCount int       `json:"high_priority_count" yaml:"high_priority_count"`
	Recommendations   []string  `json:"recommendations" yaml:"recommendations"`
	Authorities       []string  `json:"authorities" yaml:"authorities"`
}

// Generator builds a report for a profile and its ordered match list.
type Generator interface {
	Generate(ctx context.Context, p profile.BusinessProfile, matched []*rules.Rule) (*Report, error)
}

// ValidateReferences returns ErrUnknownReference listing every section rule id
// that is not in ids.
func ValidateReferences(r *Report, ids []string) error {
	known := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}

	var unknown []string
	seen := make(map[string]struct{})
	for _, s := range r.Sections {
		for _, id := range s.RuleIDs {
			if _, ok := known[id]; ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			unknown = append(unknown, id)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("%w: %s", ErrUnknownReference, strings.Join(unknown, ", "))
}

func validateInput(matched []*rules.Rule) error {
	for i, r := range matched {
		if r == nil {
			return fmt.Errorf("%w: rule[%d] is nil", ErrInvalidInput, i)
		}
		switch {
		case r.ID == "":
			return fmt.Errorf("%w: rule[%d] missing id", ErrInvalidInput, i)
		case r.Title == "":
			return fmt.Errorf("%w: rule %q missing title", ErrInvalidInput, r.ID)
		case strings.TrimSpace(r.DescEN) == "":
			return fmt.Errorf("%w: rule %q missing desc_en", ErrInvalidInput, r.ID)
		case strings.TrimSpace(r.DescHE) == "":
			return fmt.Errorf("%w: rule %q missing desc_he", ErrInvalidInput, r.ID)
		case r.Authority == "":
			return fmt.Errorf("%w: rule %q missing authority", ErrInvalidInput, r.ID)
		case r.Priority == "":
			return fmt.Errorf("%w: rule %q missing priority", ErrInvalidInput, r.ID)
		}
	}
	return nil
}

func ruleIDs(matched []*rules.Rule) []string {
	ids := make([]string, len(matched))
	for i, r := range matched {
		ids[i] = r.ID
	}
	return ids
}

func highPriorityCount(matched []*rules.Rule) int {
	n := 0
	for _, r := range matched {
		if r.Priority == rules.PriorityHigh {
			n++
		}
	}
	return n
}

func sortedAuthorities(matched []*rules.Rule) []string {
	set := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range matched {
		if _, ok := set[r.Authority]; !ok {
			set[r.Authority] = struct{}{}
			out = append(out, r.Authority)
		}
	}
	sort.Strings(out)
	return out
}
