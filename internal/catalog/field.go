package catalog

import (
	"fmt"
	"io"
)

// GeneratorType enumerates the synthetic-value generators a Field Catalog
// entry may declare for the GET .../json preview endpoint.
type GeneratorType string

const (
	GenString   GeneratorType = "string"
	GenInteger  GeneratorType = "integer"
	GenFloat    GeneratorType = "float"
	GenDate     GeneratorType = "date"
	GenEnum     GeneratorType = "enum"
	GenObjectID GeneratorType = "objectId"
	GenBoolean  GeneratorType = "boolean"
)

// Generator describes how to synthesize a value for a field in test
// messages. Min/Max apply to integer and float, Values to enum, and
// DefaultValue/DefaultRandom to every type; see validateGenerator.
type Generator struct {
	Type          GeneratorType `json:"type"`
	Min           any           `json:"min,omitempty"`
	Max           any           `json:"max,omitempty"`
	Values        []any         `json:"values,omitempty"`
	DefaultValue  any           `json:"default_value,omitempty"`
	DefaultRandom *float64      `json:"default_random,omitempty"`
}

// FieldEntry is one row of the Field Catalog: a mapping from a source
// field to a canonical logical (and, optionally, wire-short) name.
type FieldEntry struct {
	Src          string     `json:"src"`
	Dst          string     `json:"dst"`
	ShortDst     string     `json:"shortDst,omitempty"`
	MessageTypes []int      `json:"message_types"`
	Generator    *Generator `json:"generator,omitempty"`
}

// LoadFieldCatalog decodes and validates a Field Catalog from r.
func LoadFieldCatalog(r io.Reader) ([]FieldEntry, error) {
	var entries []FieldEntry
	if err := decodeJSON(r, &entries); err != nil {
		return nil, fmt.Errorf("field catalog: %w", err)
	}
	if err := validateFieldCatalog(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func validateFieldCatalog(entries []FieldEntry) error {
	seenShort := 0
	for i := range entries {
		e := &entries[i]
		label := fmt.Sprintf("#%d (%s)", i, e.Dst)

		if e.Src == "" {
			return invalidf("field", label, "src must be non-empty")
		}
		if e.Dst == "" {
			return invalidf("field", label, "dst must be non-empty")
		}
		if len(e.MessageTypes) == 0 {
			return invalidf("field", label, "message_types must be a non-empty integer sequence")
		}
		if e.ShortDst != "" {
			seenShort++
		}
		if e.Generator != nil {
			if err := validateGenerator(e.Generator); err != nil {
				return invalidf("field", label, "generator: %v", err)
			}
		}
	}

	// Short-name mode is "on" for the catalog as a whole once any entry
	// declares a shortDst; in that case every entry must declare one.
	if seenShort > 0 && seenShort != len(entries) {
		return invalidf("field", "*", "short-name mode requires every entry to declare shortDst (%d/%d do)", seenShort, len(entries))
	}
	return nil
}

func validateGenerator(g *Generator) error {
	switch g.Type {
	case GenString, GenInteger, GenFloat, GenDate, GenEnum, GenObjectID, GenBoolean:
	default:
		return fmt.Errorf("unknown generator type %q", g.Type)
	}

	if g.Type == GenEnum && len(g.Values) == 0 {
		return fmt.Errorf("enum generator requires non-empty values")
	}

	if g.DefaultRandom != nil && (*g.DefaultRandom < 0 || *g.DefaultRandom > 1) {
		return fmt.Errorf("default_random must be in [0,1], got %v", *g.DefaultRandom)
	}

	if g.DefaultValue != nil {
		if err := validateDefaultValue(g.Type, g.DefaultValue); err != nil {
			return fmt.Errorf("default_value: %w", err)
		}
	}

	return nil
}

// validateDefaultValue checks that default_value matches the declared
// generator type, or is a non-empty sequence of matching values.
func validateDefaultValue(t GeneratorType, v any) error {
	if seq, ok := v.([]any); ok {
		if len(seq) == 0 {
			return fmt.Errorf("sequence default_value must be non-empty")
		}
		for _, item := range seq {
			if !matchesGeneratorType(t, item) {
				return fmt.Errorf("sequence element %v does not match type %q", item, t)
			}
		}
		return nil
	}
	if !matchesGeneratorType(t, v) {
		return fmt.Errorf("value %v does not match type %q", v, t)
	}
	return nil
}

func matchesGeneratorType(t GeneratorType, v any) bool {
	switch t {
	case GenString, GenDate, GenObjectID:
		_, ok := v.(string)
		return ok
	case GenInteger, GenFloat:
		switch v.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case GenBoolean:
		_, ok := v.(bool)
		return ok
	case GenEnum:
		return true // any value is acceptable; membership in values is not re-checked here
	default:
		return false
	}
}
