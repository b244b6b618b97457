package engine

import "github.com/TimurManjosov/licadvisor/internal/rules"

// Exemption and ordering policy values.
const (
	// ExemptionRuleID is the sentinel rule whose match exempts a business from
	// every other rule issued by ExemptAuthority.
	ExemptionRuleID = "R-Police-Exemption-NoAlcohol-<=200"
	// ExemptAuthority is the only authority subject to the exemption override.
	ExemptAuthority = "Israel Police"

	// DefaultAreaCeiling stands in for a missing area.max when computing tightness.
	DefaultAreaCeiling = 1000.0
	// DefaultSeatsCeiling stands in for a missing seats.max when computing tightness.
	DefaultSeatsCeiling = 500.0
)

// Policy carries the external policy values used by EvaluateWithPolicy.
// It covers exactly one sentinel and one authority.
type Policy struct {
	ExemptionRuleID string
	ExemptAuthority string
	AreaCeiling     float64
	SeatsCeiling    float64
}

// DefaultPolicy returns the policy used by Evaluate.
func DefaultPolicy() Policy {
	return Policy{
		ExemptionRuleID: ExemptionRuleID,
		ExemptAuthority: ExemptAuthority,
		AreaCeiling:     DefaultAreaCeiling,
		SeatsCeiling:    DefaultSeatsCeiling,
	}
}

// Result is the ordered list of matched rules. Entries point into the catalog
// passed to Evaluate; they are references, not copies.
type Result []*rules.Rule

// IDs returns the rule ids in result order.
func (r Result) IDs() []string {
	ids := make([]string, len(r))
	for i, rule := range r {
		ids[i] = rule.ID
	}
	return ids
}

// Contains reports whether a rule with the given id is in the result.
func (r Result) Contains(id string) bool {
	for _, rule := range r {
		if rule.ID == id {
			return true
		}
	}
	return false
}
