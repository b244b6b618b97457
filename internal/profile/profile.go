// Package profile defines the business profile assessed against the licensing catalog.
package profile

// Flag names a boolean attribute of a BusinessProfile that rule triggers can require.
type Flag string

// Recognised flags (string values match the catalog's JSON keys).
const (
	FlagServesAlcohol  Flag = "serves_alcohol"
	FlagUsesGas        Flag = "uses_gas"
	FlagHasMisting     Flag = "has_misting"
	FlagOffersDelivery Flag = "offers_delivery"
)

// BusinessProfile describes one business for a single assessment.
// Instances are treated as immutable once built.
type BusinessProfile struct {
	SizeM2         float64 `json:"size_m2"`
	Seats          int     `json:"seats"`
	ServesAlcohol  bool    `json:"serves_alcohol"`
	UsesGas        bool    `json:"uses_gas"`
	HasMisting     bool    `json:"has_misting"`
	OffersDelivery bool    `json:"offers_delivery"`
}

// flagAccessors maps each recognised flag to its field on the profile.
var flagAccessors = map[Flag]func(*BusinessProfile) bool{
	FlagServesAlcohol:  func(p *BusinessProfile) bool { return p.ServesAlcohol },
	FlagUsesGas:        func(p *BusinessProfile) bool { return p.UsesGas },
	FlagHasMisting:     func(p *BusinessProfile) bool { return p.HasMisting },
	FlagOffersDelivery: func(p *BusinessProfile) bool { return p.OffersDelivery },
}

// FlagValue returns the profile's value for the named flag.
//
// A flag name that is not recognised reads as false. Catalog validation
// rejects unknown names, so this only matters for rules built in code.
func (p BusinessProfile) FlagValue(name Flag) bool {
	get, ok := flagAccessors[name]
	if !ok {
		return false
	}
	return get(&p)
}

// IsKnownFlag reports whether name is one of the recognised profile flags.
func IsKnownFlag(name Flag) bool {
	_, ok := flagAccessors[name]
	return ok
}

// KnownFlags returns the recognised flag names in a stable order.
func KnownFlags() []Flag {
	return []Flag{FlagServesAlcohol, FlagUsesGas, FlagHasMisting, FlagOffersDelivery}
}
