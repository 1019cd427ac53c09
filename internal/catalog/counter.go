package catalog

import (
	"fmt"
	"io"
)

// CounterEntry is one row of the Counter Catalog: a named aggregation
// counter, its local applicability predicate, its store-side match
// predicate, and the attributes its $group stage computes.
type CounterEntry struct {
	Name                  string         `json:"name"`
	Comment               string         `json:"comment,omitempty"`
	IndexTypeName         string         `json:"indexTypeName,omitempty"`
	ComputationConditions map[string]any `json:"computationConditions"`
	EvaluationConditions  map[string]any `json:"evaluationConditions"`
	Attributes            map[string]any `json:"attributes"`
}

// LoadCounterCatalog decodes and validates a Counter Catalog from r.
func LoadCounterCatalog(r io.Reader) ([]CounterEntry, error) {
	var entries []CounterEntry
	if err := decodeJSON(r, &entries); err != nil {
		return nil, fmt.Errorf("counter catalog: %w", err)
	}
	if err := validateCounterCatalog(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func validateCounterCatalog(entries []CounterEntry) error {
	seenNames := make(map[string]bool, len(entries))
	for i := range entries {
		e := &entries[i]
		label := fmt.Sprintf("#%d (%s)", i, e.Name)

		if e.Name == "" {
			return invalidf("counter", label, "name must be non-empty")
		}
		if seenNames[e.Name] {
			return invalidf("counter", label, "duplicate counter name %q", e.Name)
		}
		seenNames[e.Name] = true

		if e.ComputationConditions == nil {
			return invalidf("counter", label, "computationConditions must be an object")
		}
		if e.EvaluationConditions == nil {
			return invalidf("counter", label, "evaluationConditions must be an object")
		}
		if len(e.Attributes) == 0 {
			return invalidf("counter", label, "attributes must be a non-empty map")
		}
	}
	return nil
}
