package engine

import (
	"github.com/TimurManjosov/licadvisor/internal/profile"
	"github.com/TimurManjosov/licadvisor/internal/rules"
)

// Matches reports whether rule is activated for p.
//
// Checks run in order area, seats, flags and stop at the first failure.
// A rule without triggers, or with empty triggers, matches every profile.
func Matches(rule *rules.Rule, p *profile.BusinessProfile) bool {
	t := rule.Triggers
	if t == nil {
		return true
	}

	if !t.Area.Contains(p.SizeM2) {
		return false
	}
	if !t.Seats.Contains(float64(p.Seats)) {
		return false
	}

	for name, required := range t.Flags {
		if p.FlagValue(name) != required {
			return false
		}
	}
	return true
}
