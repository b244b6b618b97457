package engine

import (
	"sort"

	"github.com/TimurManjosov/licadvisor/internal/profile"
	"github.com/TimurManjosov/licadvisor/internal/rules"
)

// Evaluate returns the catalog rules that apply to p, after the exemption
// override, in priority order. It is a pure function of its inputs.
func Evaluate(p profile.BusinessProfile, catalog []rules.Rule) Result {
	return EvaluateWithPolicy(p, catalog, DefaultPolicy())
}

// EvaluateWithPolicy is Evaluate with explicit policy values.
func EvaluateWithPolicy(p profile.BusinessProfile, catalog []rules.Rule, policy Policy) Result {
	matched := make(Result, 0, len(catalog))
	for i := range catalog {
		if Matches(&catalog[i], &p) {
			matched = append(matched, &catalog[i])
		}
	}

	matched = applyExemption(matched, policy)
	sortResult(matched, policy)
	return matched
}

// applyExemption drops every rule of the exempt authority except the sentinel
// when the sentinel itself matched.
func applyExemption(matched Result, policy Policy) Result {
	if !matched.Contains(policy.ExemptionRuleID) {
		return matched
	}

	kept := matched[:0]
	for _, rule := range matched {
		if rule.Authority != policy.ExemptAuthority || rule.ID == policy.ExemptionRuleID {
			kept = append(kept, rule)
		}
	}
	return kept
}

// sortResult orders by priority rank, then tightness, then authority.
// The sort is stable, so full ties keep catalog order.
func sortResult(matched Result, policy Policy) {
	type key struct {
		rank      int
		tightness float64
	}
	keys := make(map[*rules.Rule]key, len(matched))
	for _, rule := range matched {
		keys[rule] = key{rank: rule.Priority.Rank(), tightness: Tightness(rule, policy)}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		ka, kb := keys[a], keys[b]
		if ka.rank != kb.rank {
			return ka.rank < kb.rank
		}
		if ka.tightness != kb.tightness {
			return ka.tightness < kb.tightness
		}
		return a.Authority < b.Authority
	})
}

// Tightness sums the widths of the rule's area and seats ranges. Only present
// sections contribute; missing maxima use the policy ceilings. Smaller values
// describe more narrowly scoped rules.
func Tightness(rule *rules.Rule, policy Policy) float64 {
	t := rule.Triggers
	if t == nil {
		return 0
	}

	total := 0.0
	if t.Area != nil {
		total += t.Area.Width(policy.AreaCeiling)
	}
	if t.Seats != nil {
		total += t.Seats.Width(policy.SeatsCeiling)
	}
	return total
}
