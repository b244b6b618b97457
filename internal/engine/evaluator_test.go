package engine

import (
	"reflect"
	"sync"
	"testing"

	"github.com/TimurManjosov/licadvisor/internal/profile"
	"github.com/TimurManjosov/licadvisor/internal/rules"
)

const (
	police = "Israel Police"
	health = "Ministry of Health"
	fire   = "Fire and Rescue Authority"
)

func rule(id, authority string, priority rules.Priority, t *rules.Triggers) rules.Rule {
	return rules.Rule{ID: id, Title: id, Authority: authority, Priority: priority, Triggers: t}
}

func flags(kv ...any) map[profile.Flag]bool {
	m := make(map[profile.Flag]bool, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(profile.Flag)] = kv[i+1].(bool)
	}
	return m
}

// fixtureCatalog is a small catalog exercising every trigger kind.
func fixtureCatalog() []rules.Rule {
	return []rules.Rule{
		rule(ExemptionRuleID, police, rules.PriorityMedium, &rules.Triggers{
			Seats: &rules.Bounds{Max: rules.Float(200)},
			Flags: flags(profile.FlagServesAlcohol, false),
		}),
		rule("R-Police-CCTV-Resolution", police, rules.PriorityHigh, &rules.Triggers{
			Flags: flags(profile.FlagServesAlcohol, true),
		}),
		rule("R-Police-Exterior-Lighting", police, rules.PriorityLow, &rules.Triggers{}),
		rule("R-MoH-Food-Temps", health, rules.PriorityHigh, &rules.Triggers{
			Seats: &rules.Bounds{Min: rules.Float(1)},
		}),
		rule("R-MoH-Water-Supply", health, rules.PriorityHigh, &rules.Triggers{}),
		rule("R-MoH-Legionella-Misting", health, rules.PriorityHigh, &rules.Triggers{
			Flags: flags(profile.FlagHasMisting, true),
		}),
		rule("R-Fire-Gas-Installation", fire, rules.PriorityHigh, &rules.Triggers{
			Flags: flags(profile.FlagUsesGas, true),
		}),
		rule("R-Fire-Extinguishers", fire, rules.PriorityMedium, &rules.Triggers{
			Area: &rules.Bounds{Min: rules.Float(50)},
		}),
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name    string
		t       *rules.Triggers
		profile profile.BusinessProfile
		want    bool
	}{
		{name: "nil triggers", t: nil, profile: profile.BusinessProfile{}, want: true},
		{name: "empty triggers", t: &rules.Triggers{}, profile: profile.BusinessProfile{SizeM2: 9999}, want: true},
		{name: "area min inclusive", t: &rules.Triggers{Area: &rules.Bounds{Min: rules.Float(50)}}, profile: profile.BusinessProfile{SizeM2: 50}, want: true},
		{name: "area below min", t: &rules.Triggers{Area: &rules.Bounds{Min: rules.Float(50)}}, profile: profile.BusinessProfile{SizeM2: 49.5}, want: false},
		{name: "area above max", t: &rules.Triggers{Area: &rules.Bounds{Max: rules.Float(100)}}, profile: profile.BusinessProfile{SizeM2: 100.1}, want: false},
		{name: "seats max inclusive", t: &rules.Triggers{Seats: &rules.Bounds{Max: rules.Float(200)}}, profile: profile.BusinessProfile{Seats: 200}, want: true},
		{name: "seats above max", t: &rules.Triggers{Seats: &rules.Bounds{Max: rules.Float(200)}}, profile: profile.BusinessProfile{Seats: 201}, want: false},
		{name: "seats zero below min", t: &rules.Triggers{Seats: &rules.Bounds{Min: rules.Float(1)}}, profile: profile.BusinessProfile{Seats: 0}, want: false},
		{name: "flag equal true", t: &rules.Triggers{Flags: flags(profile.FlagUsesGas, true)}, profile: profile.BusinessProfile{UsesGas: true}, want: true},
		{name: "flag mismatch", t: &rules.Triggers{Flags: flags(profile.FlagUsesGas, true)}, profile: profile.BusinessProfile{}, want: false},
		{name: "flag required false", t: &rules.Triggers{Flags: flags(profile.FlagServesAlcohol, false)}, profile: profile.BusinessProfile{}, want: true},
		{name: "all flags must hold", t: &rules.Triggers{Flags: flags(profile.FlagUsesGas, true, profile.FlagHasMisting, true)}, profile: profile.BusinessProfile{UsesGas: true}, want: false},
		{name: "unknown flag required false", t: &rules.Triggers{Flags: flags(profile.Flag("delivery"), false)}, profile: profile.BusinessProfile{OffersDelivery: true}, want: true},
		{name: "unknown flag required true", t: &rules.Triggers{Flags: flags(profile.Flag("delivery"), true)}, profile: profile.BusinessProfile{OffersDelivery: true}, want: false},
		{
			name: "area passes seats fails",
			t: &rules.Triggers{
				Area:  &rules.Bounds{Min: rules.Float(10)},
				Seats: &rules.Bounds{Min: rules.Float(10)},
			},
			profile: profile.BusinessProfile{SizeM2: 20, Seats: 5},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rules.Rule{ID: "r", Triggers: tt.t}
			p := tt.profile
			if got := Matches(&r, &p); got != tt.want {
				t.Fatalf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_EmptyCatalog(t *testing.T) {
	got := Evaluate(profile.BusinessProfile{SizeM2: 10, Seats: 10}, nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", got)
	}
}

func TestEvaluate_Determinism(t *testing.T) {
	catalog := fixtureCatalog()
	p := profile.BusinessProfile{SizeM2: 120, Seats: 80, ServesAlcohol: true, UsesGas: true}

	first := Evaluate(p, catalog).IDs()
	for i := 0; i < 50; i++ {
		if got := Evaluate(p, catalog).IDs(); !reflect.DeepEqual(first, got) {
			t.Fatalf("result changed across evaluations: first=%v got=%v", first, got)
		}
	}
}

func TestEvaluate_ReturnsCatalogReferences(t *testing.T) {
	catalog := fixtureCatalog()
	got := Evaluate(profile.BusinessProfile{SizeM2: 60, Seats: 10}, catalog)

	for _, r := range got {
		found := false
		for i := range catalog {
			if r == &catalog[i] {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("result entry %q is not a reference into the catalog", r.ID)
		}
	}
}

func TestEvaluate_MonotonicAreaBound(t *testing.T) {
	const min = 50.0
	catalog := []rules.Rule{
		rule("R-Area", fire, rules.PriorityMedium, &rules.Triggers{Area: &rules.Bounds{Min: rules.Float(min)}}),
	}

	for size := min + 20; size >= 0; size -= 2.5 {
		got := Evaluate(profile.BusinessProfile{SizeM2: size, Seats: 10}, catalog)
		want := size >= min
		if got.Contains("R-Area") != want {
			t.Fatalf("size=%v: contains=%v, want %v", size, got.Contains("R-Area"), want)
		}
	}
}

func TestEvaluate_FlagExactness(t *testing.T) {
	catalog := fixtureCatalog()

	for mask := 0; mask < 8; mask++ {
		for _, seats := range []int{0, 80, 350} {
			p := profile.BusinessProfile{
				SizeM2:         100,
				Seats:          seats,
				ServesAlcohol:  false,
				UsesGas:        mask&1 != 0,
				HasMisting:     mask&2 != 0,
				OffersDelivery: mask&4 != 0,
			}
			if Evaluate(p, catalog).Contains("R-Police-CCTV-Resolution") {
				t.Fatalf("alcohol-gated rule present without alcohol for %+v", p)
			}
		}
	}
}

func TestEvaluate_ExemptionSuppression(t *testing.T) {
	catalog := fixtureCatalog()
	p := profile.BusinessProfile{SizeM2: 50, Seats: 100}

	got := Evaluate(p, catalog)
	if !got.Contains(ExemptionRuleID) {
		t.Fatalf("expected exemption sentinel, got %v", got.IDs())
	}
	for _, r := range got {
		if r.Authority == police && r.ID != ExemptionRuleID {
			t.Fatalf("police rule %q survived the exemption", r.ID)
		}
	}
	if !got.Contains("R-MoH-Food-Temps") || !got.Contains("R-Fire-Extinguishers") {
		t.Fatalf("other authorities must not be exempted, got %v", got.IDs())
	}
}

func TestEvaluate_NoExemptionWithoutSentinel(t *testing.T) {
	catalog := fixtureCatalog()
	got := Evaluate(profile.BusinessProfile{SizeM2: 500, Seats: 350}, catalog)

	if got.Contains(ExemptionRuleID) {
		t.Fatalf("350 seats must not be exempt")
	}
	if !got.Contains("R-Police-Exterior-Lighting") {
		t.Fatalf("expected general police rule, got %v", got.IDs())
	}
}

func TestEvaluate_ExemptionMatchesOnAuthorityOnly(t *testing.T) {
	catalog := []rules.Rule{
		rule(ExemptionRuleID, police, rules.PriorityMedium, &rules.Triggers{}),
		rule("R-Other-Police-Named", health, rules.PriorityHigh, &rules.Triggers{}),
		rule("R-Plain", police, rules.PriorityHigh, &rules.Triggers{}),
	}
	got := Evaluate(profile.BusinessProfile{}, catalog).IDs()
	want := []string{"R-Other-Police-Named", ExemptionRuleID}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
}

func TestEvaluate_Ordering(t *testing.T) {
	catalog := []rules.Rule{
		rule("low-general", health, rules.PriorityLow, &rules.Triggers{}),
		rule("high-wide", health, rules.PriorityHigh, &rules.Triggers{Seats: &rules.Bounds{Min: rules.Float(1)}}),
		rule("unknown", fire, rules.Priority("urgent"), &rules.Triggers{}),
		rule("high-narrow-moh", health, rules.PriorityHigh, &rules.Triggers{}),
		rule("high-narrow-fire", fire, rules.PriorityHigh, &rules.Triggers{}),
		rule("medium-area", police, rules.PriorityMedium, &rules.Triggers{Area: &rules.Bounds{Min: rules.Float(10), Max: rules.Float(20)}}),
	}

	got := Evaluate(profile.BusinessProfile{SizeM2: 15, Seats: 5}, catalog).IDs()
	want := []string{
		"high-narrow-fire", // tightness 0, "Fire..." < "Ministry..."
		"high-narrow-moh",
		"high-wide", // tightness 499
		"medium-area",
		"low-general",
		"unknown",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
}

func TestEvaluate_FullTieKeepsCatalogOrder(t *testing.T) {
	catalog := []rules.Rule{
		rule("b", health, rules.PriorityHigh, &rules.Triggers{}),
		rule("a", health, rules.PriorityHigh, &rules.Triggers{}),
		rule("c", health, rules.PriorityHigh, nil),
	}
	got := Evaluate(profile.BusinessProfile{}, catalog).IDs()
	want := []string{"b", "a", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
}

// A min above the ceiling scores 0, the same as a rule without bounds, so the
// authority tie-break decides between them.
func TestEvaluate_MinAboveCeilingTiesWithUnbounded(t *testing.T) {
	catalog := []rules.Rule{
		rule("huge-venue", "Z-Authority", rules.PriorityHigh, &rules.Triggers{Area: &rules.Bounds{Min: rules.Float(1500)}}),
		rule("general", "A-Authority", rules.PriorityHigh, &rules.Triggers{}),
	}
	res := Evaluate(profile.BusinessProfile{SizeM2: 2000}, catalog)

	for _, r := range res {
		if tt := Tightness(r, DefaultPolicy()); tt < 0 {
			t.Errorf("Tightness(%s) = %v, want non-negative", r.ID, tt)
		}
	}
	got := res.IDs()
	want := []string{"general", "huge-venue"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
}

func TestEvaluateWithPolicy(t *testing.T) {
	catalog := []rules.Rule{
		rule("EXEMPT", fire, rules.PriorityLow, &rules.Triggers{}),
		rule("F-1", fire, rules.PriorityHigh, &rules.Triggers{}),
		rule("P-1", police, rules.PriorityHigh, &rules.Triggers{}),
		rule("wide-area", health, rules.PriorityMedium, &rules.Triggers{Area: &rules.Bounds{}}),
		rule("wide-seats", health, rules.PriorityMedium, &rules.Triggers{Seats: &rules.Bounds{}}),
	}
	policy := Policy{ExemptionRuleID: "EXEMPT", ExemptAuthority: fire, AreaCeiling: 10, SeatsCeiling: 20}

	got := EvaluateWithPolicy(profile.BusinessProfile{}, catalog, policy).IDs()
	want := []string{"P-1", "wide-area", "wide-seats", "EXEMPT"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
}

func TestTightness(t *testing.T) {
	policy := DefaultPolicy()
	tests := []struct {
		name string
		t    *rules.Triggers
		want float64
	}{
		{name: "nil", t: nil, want: 0},
		{name: "flags only", t: &rules.Triggers{Flags: flags(profile.FlagUsesGas, true)}, want: 0},
		{name: "seats max only", t: &rules.Triggers{Seats: &rules.Bounds{Max: rules.Float(200)}}, want: 200},
		{name: "seats min only", t: &rules.Triggers{Seats: &rules.Bounds{Min: rules.Float(1)}}, want: 499},
		{name: "area min only", t: &rules.Triggers{Area: &rules.Bounds{Min: rules.Float(50)}}, want: 950},
		{name: "area min above ceiling", t: &rules.Triggers{Area: &rules.Bounds{Min: rules.Float(1500)}}, want: 0},
		{
			name: "both sections",
			t: &rules.Triggers{
				Area:  &rules.Bounds{Min: rules.Float(100), Max: rules.Float(300)},
				Seats: &rules.Bounds{Max: rules.Float(50)},
			},
			want: 250,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rules.Rule{Triggers: tt.t}
			if got := Tightness(&r, policy); got != tt.want {
				t.Fatalf("Tightness() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_ConcurrentCallers(t *testing.T) {
	catalog := fixtureCatalog()
	p := profile.BusinessProfile{SizeM2: 200, Seats: 200, HasMisting: true}
	want := Evaluate(p, catalog).IDs()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := Evaluate(p, catalog).IDs(); !reflect.DeepEqual(got, want) {
				t.Errorf("concurrent result differs: %v vs %v", got, want)
			}
		}()
	}
	wg.Wait()
}
