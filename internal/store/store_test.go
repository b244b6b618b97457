package store

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/TimurManjosov/licadvisor/internal/profile"
	"github.com/TimurManjosov/licadvisor/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCatalog() []rules.Rule {
	return []rules.Rule{
		{
			ID:        "R-Police-Exemption-NoAlcohol-<=200",
			Title:     "Police exemption",
			DescEN:    "Exempt from police licensing.",
			DescHE:    "פטור",
			Authority: "Israel Police",
			Priority:  rules.PriorityMedium,
			SourceRef: "§3.1",
			Triggers: &rules.Triggers{
				Seats: &rules.Bounds{Max: rules.Float(200)},
				Flags: map[profile.Flag]bool{profile.FlagServesAlcohol: false},
			},
		},
		{
			ID:        "R-Fire-Extinguishers",
			Title:     "Extinguishers",
			Authority: "Fire and Rescue Authority",
			Priority:  rules.PriorityMedium,
			Triggers:  &rules.Triggers{Area: &rules.Bounds{Min: rules.Float(50)}},
		},
		{
			ID:        "R-MoH-Water-Supply",
			Title:     "Water",
			Authority: "Ministry of Health",
			Priority:  rules.PriorityHigh,
			Triggers:  &rules.Triggers{},
		},
	}
}

// runStoreContract exercises behaviour every Store implementation must share.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.ListRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.GetRule(ctx, "R-MoH-Water-Supply")
	assert.ErrorIs(t, err, ErrRuleNotFound)

	catalog := sampleCatalog()
	require.NoError(t, s.ReplaceAll(ctx, catalog))

	got, err = s.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, catalog, got, "rules must round-trip in catalog order")

	r, err := s.GetRule(ctx, "R-Police-Exemption-NoAlcohol-<=200")
	require.NoError(t, err)
	require.NotNil(t, r.Triggers.Seats)
	assert.Equal(t, 200.0, *r.Triggers.Seats.Max)
	assert.Nil(t, r.Triggers.Seats.Min)
	assert.Equal(t, false, r.Triggers.Flags[profile.FlagServesAlcohol])
	_, hasFlag := r.Triggers.Flags[profile.FlagServesAlcohol]
	assert.True(t, hasFlag)

	// Replacing drops rules that are no longer present.
	require.NoError(t, s.ReplaceAll(ctx, catalog[2:]))
	got, err = s.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "R-MoH-Water-Supply", got[0].ID)
	_, err = s.GetRule(ctx, "R-Fire-Extinguishers")
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	runStoreContract(t, s)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.ReplaceAll(ctx, sampleCatalog()))

	got, err := s.ListRules(ctx)
	require.NoError(t, err)
	got[0].Title = "mutated"

	again, err := s.ListRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Police exemption", again[0].Title)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	catalog := sampleCatalog()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.ReplaceAll(ctx, catalog)
		}()
		go func() {
			defer wg.Done()
			_, _ = s.ListRules(ctx)
			_, _ = s.GetRule(ctx, "R-MoH-Water-Supply")
		}()
	}
	wg.Wait()

	got, err := s.ListRules(ctx)
	require.NoError(t, err)
	assert.Len(t, got, len(catalog))
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()
	runStoreContract(t, s)
}

func TestSQLiteStore_MigrationIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.migrate(ctx))

	var version int
	require.NoError(t, s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	assert.Equal(t, 1, version)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	s, err := NewPostgresStore(ctx, pool)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.ReplaceAll(ctx, nil))
	runStoreContract(t, s)
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	s, err := NewStore(ctx, "memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	require.NoError(t, s.Close())

	s, err = NewStore(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = NewStore(ctx, "invalid-type", "")
	require.EqualError(t, err, "unsupported store type: invalid-type")

	_, err = NewStore(ctx, "postgres", "://bad")
	require.Error(t, err)
}

func TestTriggersCodec(t *testing.T) {
	b, err := encodeTriggers(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))

	tr, err := decodeTriggers(nil)
	require.NoError(t, err)
	assert.Equal(t, &rules.Triggers{}, tr)

	_, err = decodeTriggers([]byte(`"nope"`))
	assert.Error(t, err)
}
