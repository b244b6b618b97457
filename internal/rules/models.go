package rules

import "github.com/TimurManjosov/licadvisor/internal/profile"

// Priority is the urgency class of a licensing rule.
type Priority string

// Canonical priorities (string values for clean JSON serialization).
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities for sorting: high=0, medium=1, low=2.
// Any other value ranks 3, after every canonical priority.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// IsValid reports whether p is one of the canonical priorities.
func (p Priority) IsValid() bool {
	return p.Rank() < 3
}

// Bounds is an inclusive numeric range. A nil Min or Max leaves that side open.
type Bounds struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Contains reports whether v lies within the bounds (inclusive on both ends).
func (b *Bounds) Contains(v float64) bool {
	if b == nil {
		return true
	}
	if b.Min != nil && v < *b.Min {
		return false
	}
	if b.Max != nil && v > *b.Max {
		return false
	}
	return true
}

// Width is Max-Min, substituting 0 for a missing Min and ceiling for a missing Max.
// A Min above the ceiling yields 0, never a negative width.
func (b *Bounds) Width(ceiling float64) float64 {
	lo, hi := 0.0, ceiling
	if b.Min != nil {
		lo = *b.Min
	}
	if b.Max != nil {
		hi = *b.Max
	}
	if hi < lo {
		return 0
	}
	return hi - lo
}

// Triggers holds the activation conditions of a rule. All present parts must
// hold (AND semantics); an empty Triggers matches every profile.
type Triggers struct {
	Area  *Bounds               `json:"area,omitempty" yaml:"area,omitempty"`
	Seats *Bounds               `json:"seats,omitempty" yaml:"seats,omitempty"`
	Flags map[profile.Flag]bool `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// Rule is one licensing requirement from the catalog.
// Rules are shared read-only across assessments and must not be mutated after load.
type Rule struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	DescEN    string    `json:"desc_en" yaml:"desc_en"`
	DescHE    string    `json:"desc_he" yaml:"desc_he"`
	Authority string    `json:"authority" yaml:"authority"`
	Priority  Priority  `json:"priority" yaml:"priority"`
	SourceRef string    `json:"source_ref" yaml:"source_ref"`
	Triggers  *Triggers `json:"triggers" yaml:"triggers"`
}

// Float is a convenience for building optional bounds in code and tests.
func Float(v float64) *float64 { return &v }
