// Package catalog loads licensing rule catalogs, validates them and keeps the
// active catalog available to concurrent readers.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/TimurManjosov/licadvisor/internal/rules"
	"gopkg.in/yaml.v3"
)

var (
	// ErrMalformed indicates input that is not parseable JSON or YAML.
	ErrMalformed = errors.New("malformed catalog")
	// ErrSchemaViolation indicates a document that does not fit the catalog schema.
	ErrSchemaViolation = errors.New("catalog schema violation")
	// ErrUnsupportedVersion indicates an envelope schema_version outside SupportedVersions.
	ErrUnsupportedVersion = errors.New("unsupported catalog schema version")
)

// SupportedVersions is the semver constraint envelope documents must satisfy.
const SupportedVersions = "^1"

var supported = mustConstraint(SupportedVersions)

func mustConstraint(c string) *semver.Constraints {
	sc, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return sc
}

// Format is the encoding of a catalog document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension. Anything that is not
// .yaml or .yml is treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Document is a decoded and validated catalog.
type Document struct {
	// SchemaVersion is empty for bare rule arrays.
	SchemaVersion string       `json:"schema_version,omitempty" yaml:"schema_version,omitempty"`
	Rules         []rules.Rule `json:"rules" yaml:"rules"`
}

// Decode parses a catalog in the given format, checks it against the catalog
// schema and the version gate, then runs rules.ValidateCatalog. The first
// defect rejects the whole catalog.
func Decode(data []byte, format Format) (*Document, error) {
	doc, err := DecodeUnchecked(data, format)
	if err != nil {
		return nil, err
	}
	if err := rules.ValidateCatalog(doc.Rules); err != nil {
		return nil, err
	}
	return doc, nil
}

// DecodeUnchecked performs every step of Decode except rules.ValidateCatalog,
// so callers can report per-rule defects themselves.
func DecodeUnchecked(data []byte, format Format) (*Document, error) {
	raw, err := normalize(data, format)
	if err != nil {
		return nil, err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := defaultSchema.Validate(generic); err != nil {
		return nil, err
	}

	doc := &Document{}
	if _, isList := generic.([]any); isList {
		if err := json.Unmarshal(raw, &doc.Rules); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return doc, nil
	}

	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := checkVersion(doc.SchemaVersion); err != nil {
		return nil, err
	}
	if doc.Rules == nil {
		doc.Rules = []rules.Rule{}
	}
	return doc, nil
}

func checkVersion(v string) error {
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q is not a semantic version", ErrUnsupportedVersion, v)
	}
	if !supported.Check(ver) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedVersion, v, SupportedVersions)
	}
	return nil
}

// normalize returns the document as JSON bytes.
func normalize(data []byte, format Format) ([]byte, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}

	switch format {
	case FormatJSON, "":
		return data, nil
	case FormatYAML:
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		out, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown catalog format %q", format)
	}
}
