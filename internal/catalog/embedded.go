package catalog

import (
	_ "embed"

	"github.com/TimurManjosov/licadvisor/internal/rules"
)

//go:embed data/requirements.json
var defaultCatalog []byte

// Default decodes the catalog compiled into the binary.
func Default() ([]rules.Rule, error) {
	doc, err := Decode(defaultCatalog, FormatJSON)
	if err != nil {
		return nil, err
	}
	return doc.Rules, nil
}

// DefaultBytes returns the raw embedded catalog document.
func DefaultBytes() []byte {
	out := make([]byte, len(defaultCatalog))
	copy(out, defaultCatalog)
	return out
}
