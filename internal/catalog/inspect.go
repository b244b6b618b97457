package catalog

import (
	"fmt"
	"sort"

	"github.com/TimurManjosov/licadvisor/internal/rules"
)

// RuleCheck is the validation outcome of one catalog entry.
type RuleCheck struct {
	Index int
	ID    string
	Err   error
}

// Inspection summarises a rule-by-rule check of a catalog. Unlike
// rules.ValidateCatalog it does not stop at the first defect.
type Inspection struct {
	Checks      []RuleCheck
	Valid       int
	Invalid     int
	Authorities []string // distinct, sorted, from valid rules only
}

// OK reports whether every rule passed.
func (in *Inspection) OK() bool { return in.Invalid == 0 }

// Inspect validates each rule independently and flags repeated ids.
func Inspect(list []rules.Rule) *Inspection {
	in := &Inspection{Checks: make([]RuleCheck, 0, len(list))}
	seen := make(map[string]int, len(list))
	authorities := make(map[string]struct{})

	for i, r := range list {
		err := rules.ValidateRule(r)
		if err == nil {
			if first, dup := seen[r.ID]; dup {
				err = fmt.Errorf("%w: %q already used by rule[%d]", rules.ErrDuplicateID, r.ID, first)
			} else {
				seen[r.ID] = i
			}
		}

		in.Checks = append(in.Checks, RuleCheck{Index: i, ID: r.ID, Err: err})
		if err != nil {
			in.Invalid++
			continue
		}
		in.Valid++
		authorities[r.Authority] = struct{}{}
	}

	for a := range authorities {
		in.Authorities = append(in.Authorities, a)
	}
	sort.Strings(in.Authorities)
	return in
}
