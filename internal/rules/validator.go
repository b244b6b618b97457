package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/TimurManjosov/licadvisor/internal/profile"
)

// Sentinel errors returned by ValidateRule and ValidateCatalog.
var (
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidTriggers = errors.New("invalid triggers")
	ErrInvalidBounds   = errors.New("invalid bounds")
	ErrUnknownFlag     = errors.New("unknown flag")
	ErrDuplicateID     = errors.New("duplicate rule id")
)

// ValidateRule performs strict validation of a single catalog Rule.
// It is a pure function: it never mutates r and has no side effects.
func ValidateRule(r Rule) error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: rule id must not be empty", ErrMissingField)
	}

	required := []struct {
		name  string
		value string
	}{
		{"title", r.Title},
		{"authority", r.Authority},
		{"priority", string(r.Priority)},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: rule %q has empty %s", ErrMissingField, r.ID, f.name)
		}
	}

	if !r.Priority.IsValid() {
		return fmt.Errorf("%w: rule %q has priority %q, want high, medium or low", ErrInvalidPriority, r.ID, r.Priority)
	}

	if r.Triggers == nil {
		return fmt.Errorf("%w: rule %q has no triggers object", ErrInvalidTriggers, r.ID)
	}

	return validateTriggers(r.ID, r.Triggers)
}

func validateTriggers(id string, t *Triggers) error {
	if err := validateBounds(id, "area", t.Area); err != nil {
		return err
	}
	if err := validateBounds(id, "seats", t.Seats); err != nil {
		return err
	}
	for name := range t.Flags {
		if !profile.IsKnownFlag(name) {
			return fmt.Errorf("%w: rule %q requires flag %q", ErrUnknownFlag, id, name)
		}
	}
	return nil
}

func validateBounds(id, field string, b *Bounds) error {
	if b == nil {
		return nil
	}
	if b.Min != nil && *b.Min < 0 {
		return fmt.Errorf("%w: rule %q %s.min is negative", ErrInvalidBounds, id, field)
	}
	if b.Max != nil && *b.Max < 0 {
		return fmt.Errorf("%w: rule %q %s.max is negative", ErrInvalidBounds, id, field)
	}
	if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
		return fmt.Errorf("%w: rule %q %s.min %v exceeds max %v", ErrInvalidBounds, id, field, *b.Min, *b.Max)
	}
	return nil
}

// ValidateCatalog validates every rule and checks id uniqueness.
// It stops at the first defect: a catalog is accepted whole or not at all.
func ValidateCatalog(catalog []Rule) error {
	seen := make(map[string]struct{}, len(catalog))
	for i, r := range catalog {
		if err := ValidateRule(r); err != nil {
			return fmt.Errorf("rule[%d]: %w", i, err)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("rule[%d]: %w: %q", i, ErrDuplicateID, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}
