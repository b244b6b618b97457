package catalog

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/TimurManjosov/licadvisor/internal/rules"
	"gopkg.in/yaml.v3"
)

// CurrentVersion is the schema_version written by Encode.
const CurrentVersion = "1.0.0"

// Encode writes list as a versioned catalog envelope that Decode accepts.
func Encode(w io.Writer, list []rules.Rule, format Format) error {
	doc := Document{SchemaVersion: CurrentVersion, Rules: list}
	if doc.Rules == nil {
		doc.Rules = []rules.Rule{}
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported catalog format: %s", format)
	}
}
