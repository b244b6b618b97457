package store

import (
	"context"
	"errors"

	"github.com/TimurManjosov/licadvisor/internal/rules"
)

// ErrRuleNotFound is returned by GetRule when no rule has the requested id.
var ErrRuleNotFound = errors.New("rule not found")

// Store defines the interface for rule catalog persistence.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// ListRules returns every stored rule in catalog order.
	// Returns an empty slice if the store holds no rules.
	ListRules(ctx context.Context) ([]rules.Rule, error)

	// GetRule retrieves a single rule by its id.
	// Returns ErrRuleNotFound if the rule does not exist.
	GetRule(ctx context.Context, id string) (*rules.Rule, error)

	// ReplaceAll atomically swaps the stored catalog for the given rules.
	// Either every rule is written or none are.
	ReplaceAll(ctx context.Context, catalog []rules.Rule) error

	// Close releases any resources held by the store.
	// After Close is called, the store should not be used.
	Close() error
}
