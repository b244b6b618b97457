package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/TimurManjosov/licadvisor/internal/profile"
	"github.com/TimurManjosov/licadvisor/internal/rules"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
)

var baseRecommendations = []string{
	"Contact relevant authorities early in the planning process",
	"פנו לרשויות הרלוונטיות בשלב מוקדם של התכנון",
	"Ensure all high-priority requirements are addressed first",
	"וודאו שכל הדרישות בעדיפות גבוהה מטופלות ראשונות",
}

// TemplateGenerator renders a deterministic bilingual report without any
// external calls. It is also the fallback for LLMGenerator.
type TemplateGenerator struct{}

// Generate groups matched rules by authority in first-seen order.
func (TemplateGenerator) Generate(ctx context.Context, p profile.BusinessProfile, matched []*rules.Rule) (*Report, error) {
	if err := validateInput(matched); err != nil {
		return nil, err
	}

	high := highPriorityCount(matched)
	authorities := sortedAuthorities(matched)

	return &Report{
		Summary:           summary(p, len(matched), high, len(authorities)),
		Sections:          sections(matched),
		TotalRules:        len(matched),
		HighPriorityCount: high,
		Recommendations:   recommendations(high),
		Authorities:       authorities,
	}, nil
}

func sections(matched []*rules.Rule) []Section {
	var order []string
	groups := make(map[string][]*rules.Rule)
	for _, r := range matched {
		if _, ok := groups[r.Authority]; !ok {
			order = append(order, r.Authority)
		}
		groups[r.Authority] = append(groups[r.Authority], r)
	}

	out := make([]Section, 0, len(order))
	for _, authority := range order {
		group := groups[authority]

		priority := string(rules.PriorityMedium)
		ids := make([]string, 0, len(group))
		var b strings.Builder
		fmt.Fprintf(&b, "Requirements from %s:\n", authority)
		fmt.Fprintf(&b, "רישיונות מ%s:\n\n", authority)
		for _, r := range group {
			ids = append(ids, r.ID)
			if r.Priority == rules.PriorityHigh {
				priority = string(rules.PriorityHigh)
			}
			fmt.Fprintf(&b, "• %s - %s\n", r.Title, r.DescEN)
			fmt.Fprintf(&b, "• %s\n\n", r.DescHE)
		}

		out = append(out, Section{
			Title:    authority + " Requirements",
			Content:  b.String(),
			RuleIDs:  ids,
			Priority: priority,
		})
	}
	return out
}

func recommendations(high int) []string {
	out := append([]string(nil), baseRecommendations...)
	if high > 0 {
		out = append(out,
			fmt.Sprintf("Focus immediate attention on %d high-priority requirements", high),
			fmt.Sprintf("התמקדו בתשומת לב מיידית ב-%d דרישות בעדיפות גבוהה", high),
		)
	}
	return out
}

func yesNo(v bool) (string, string) {
	if v {
		return "Yes", "כן"
	}
	return "No", "לא"
}

func summary(p profile.BusinessProfile, total, high, authorities int) string {
	size := humanize.Commaf(p.SizeM2)
	seats := humanize.Comma(int64(p.Seats))
	alcEN, alcHE := yesNo(p.ServesAlcohol)
	gasEN, gasHE := yesNo(p.UsesGas)

	var b strings.Builder
	b.WriteString("Business Profile Assessment Summary / סיכום הערכת פרופיל עסקי\n\n")
	fmt.Fprintf(&b, "Size: %sm² | Seats: %s | גודל: %sמ״ר | מקומות ישיבה: %s\n", size, seats, size, seats)
	fmt.Fprintf(&b, "Alcohol: %s | Gas: %s | אלכוהול: %s | גז: %s\n\n", alcEN, gasEN, alcHE, gasHE)
	fmt.Fprintf(&b, "Total Requirements: %d | High Priority: %d\n", total, high)
	fmt.Fprintf(&b, "סה״כ דרישות: %d | עדיפות גבוהה: %d\n\n", total, high)
	fmt.Fprintf(&b, "This assessment identified licensing requirements from %s.\n",
		english.Plural(authorities, "authority", "authorities"))
	fmt.Fprintf(&b, "הערכה זו זיהתה דרישות רישוי מ-%d רשויות.", authorities)
	return b.String()
}
