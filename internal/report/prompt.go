package report

import (
	"fmt"
	"strings"

	"github.com/TimurManjosov/licadvisor/internal/profile"
	"github.com/TimurManjosov/licadvisor/internal/rules"
)

const systemPrompt = "You are an expert Israeli business licensing consultant. " +
	"Generate structured reports in both Hebrew and English. Reply with a single JSON object only."

// buildPrompt lists the profile and every matched rule and asks for the Report JSON shape.
func buildPrompt(p profile.BusinessProfile, matched []*rules.Rule) string {
	var b strings.Builder
	b.WriteString("Generate a licensing report for an Israeli food business.\n\n")
	b.WriteString("BUSINESS PROFILE:\n")
	fmt.Fprintf(&b, "- Size: %gm²\n", p.SizeM2)
	fmt.Fprintf(&b, "- Seats: %d\n", p.Seats)
	fmt.Fprintf(&b, "- Serves Alcohol: %t\n", p.ServesAlcohol)
	fmt.Fprintf(&b, "- Uses Gas: %t\n", p.UsesGas)
	fmt.Fprintf(&b, "- Has Misting: %t\n", p.HasMisting)
	fmt.Fprintf(&b, "- Offers Delivery: %t\n\n", p.OffersDelivery)

	fmt.Fprintf(&b, "MATCHED RULES (%d total, already in priority order):\n", len(matched))
	for _, r := range matched {
		fmt.Fprintf(&b, "ID: %s | Authority: %s | Priority: %s\n", r.ID, r.Authority, r.Priority)
		fmt.Fprintf(&b, "Title: %s\nEN: %s\nHE: %s\n\n", r.Title, r.DescEN, r.DescHE)
	}

	b.WriteString(`REQUIREMENTS:
1. Write a summary in Hebrew and English.
2. Group rules by authority into sections.
3. Provide actionable recommendations.
4. Reference only the rule IDs listed above.
5. Focus on practical implementation steps.

Respond with JSON of the form:
{"summary": string, "sections": [{"title": string, "content": string, "rule_ids": [string], "priority": "high"|"medium"|"low"}], "total_rules": number, "high_priority_count": number, "recommendations": [string], "authorities": [string]}`)
	return b.String()
}
