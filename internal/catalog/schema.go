package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "https://licadvisor.dev/schemas/catalog.schema.json"

//go:embed data/catalog.schema.json
var schemaJSON []byte

// Schema validates decoded catalog documents against the catalog JSON schema.
// Uses [github.com/santhosh-tekuri/jsonschema/v6].
type Schema struct {
	schema *jsonschema.Schema
}

// NewSchema compiles the given JSON schema document.
func NewSchema(url string, schemaData []byte) (*Schema, error) {
	var doc any
	if err := json.Unmarshal(schemaData, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	jss, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: jss}, nil
}

// MustNewSchema is NewSchema that panics on error.
func MustNewSchema(url string, schemaData []byte) *Schema {
	s, err := NewSchema(url, schemaData)
	if err != nil {
		panic(err)
	}
	return s
}

var defaultSchema = MustNewSchema(schemaURL, schemaJSON)

// Validate checks a generic JSON value (maps, slices, float64, ...) against the schema.
// Violations are reported as ErrSchemaViolation with the most specific instance path.
func (s *Schema) Validate(doc any) error {
	err := s.schema.Validate(doc)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}

	loc := deepestLocation(verr)
	return fmt.Errorf("%w: at /%s: %v", ErrSchemaViolation, strings.Join(loc, "/"), verr)
}

// deepestLocation returns the longest instance location in the cause tree.
func deepestLocation(err *jsonschema.ValidationError) []string {
	longest := err.InstanceLocation
	for _, cause := range err.Causes {
		if loc := deepestLocation(cause); len(loc) > len(longest) {
			longest = loc
		}
	}
	return longest
}
