// Package validation checks business profile input before it reaches the engine.
package validation

import (
	"math"
	"sort"

	"github.com/TimurManjosov/licadvisor/internal/profile"
)

const (
	// MaxSizeM2 is the largest accepted floor area in square metres
	MaxSizeM2 = 1_000_000
	// MaxSeats is the largest accepted seat count
	MaxSeats = 100_000
)

// ValidationResult holds the result of validation
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// NewValidationResult creates a new validation result
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:  true,
		Errors: make(map[string]string),
	}
}

// AddError adds a field error and marks the result as invalid
func (v *ValidationResult) AddError(field, message string) {
	v.Valid = false
	v.Errors[field] = message
}

// Fields returns the names of the failed fields in sorted order.
func (v *ValidationResult) Fields() []string {
	fields := make([]string, 0, len(v.Errors))
	for field := range v.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Merge combines another validation result into this one
func (v *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	for field, message := range other.Errors {
		v.AddError(field, message)
	}
}

// ProfileInput is the wire shape of a business profile. Pointer fields let
// validation tell a missing field apart from a zero value.
type ProfileInput struct {
	SizeM2         *float64 `json:"size_m2" yaml:"size_m2"`
	Seats          *float64 `json:"seats" yaml:"seats"`
	ServesAlcohol  *bool    `json:"serves_alcohol" yaml:"serves_alcohol"`
	UsesGas        *bool    `json:"uses_gas" yaml:"uses_gas"`
	HasMisting     *bool    `json:"has_misting" yaml:"has_misting"`
	OffersDelivery *bool    `json:"offers_delivery" yaml:"offers_delivery"`
}

// ValidateProfile checks every field and, when valid, returns the profile.
func ValidateProfile(in ProfileInput) (*ValidationResult, profile.BusinessProfile) {
	result := NewValidationResult()
	result.Merge(ValidateSize(in.SizeM2))
	result.Merge(ValidateSeats(in.Seats))

	flags := map[string]*bool{
		string(profile.FlagServesAlcohol):  in.ServesAlcohol,
		string(profile.FlagUsesGas):        in.UsesGas,
		string(profile.FlagHasMisting):     in.HasMisting,
		string(profile.FlagOffersDelivery): in.OffersDelivery,
	}
	for field, v := range flags {
		if v == nil {
			result.AddError(field, "Field is required")
		}
	}

	if !result.Valid {
		return result, profile.BusinessProfile{}
	}
	return result, profile.BusinessProfile{
		SizeM2:         *in.SizeM2,
		Seats:          int(*in.Seats),
		ServesAlcohol:  *in.ServesAlcohol,
		UsesGas:        *in.UsesGas,
		HasMisting:     *in.HasMisting,
		OffersDelivery: *in.OffersDelivery,
	}
}

// ValidateSize validates the floor area
func ValidateSize(size *float64) *ValidationResult {
	result := NewValidationResult()

	switch {
	case size == nil:
		result.AddError("size_m2", "Size is required")
	case math.IsNaN(*size) || math.IsInf(*size, 0):
		result.AddError("size_m2", "Size must be a finite number")
	case *size < 0:
		result.AddError("size_m2", "Size must not be negative")
	case *size > MaxSizeM2:
		result.AddError("size_m2", "Size must not exceed 1000000")
	}
	return result
}

// ValidateSeats validates the seat count
func ValidateSeats(seats *float64) *ValidationResult {
	result := NewValidationResult()

	switch {
	case seats == nil:
		result.AddError("seats", "Seats is required")
	case *seats < 0:
		result.AddError("seats", "Seats must not be negative")
	case *seats != math.Trunc(*seats):
		result.AddError("seats", "Seats must be a whole number")
	case *seats > MaxSeats:
		result.AddError("seats", "Seats must not exceed 100000")
	}
	return result
}
